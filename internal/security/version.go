package security

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	versionMu      sync.Mutex
	versionEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRefreshVersion returns a fresh opaque refresh-token version. Values are unique and sort by
// creation time.
func NewRefreshVersion() string {
	versionMu.Lock()
	defer versionMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), versionEntropy).String()
}
