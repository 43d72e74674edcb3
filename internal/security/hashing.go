package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns account passwords into the digest stored on the account row. The digest doubles
// as the invitation binding: Register looks a PENDING account up by the exact digest sealed into
// its invitation, so a digest is never re-derived, only compared.
type Hasher struct {
	// Cost is the bcrypt work factor from BCRYPT_COST.
	Cost int
}

// NewHasher returns a Hasher for the configured cost. Zero means bcrypt.DefaultCost; anything
// outside bcrypt's range is pulled back into it.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns a freshly salted digest, so hashing the same password twice gives two digests.
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare is bcrypt.CompareHashAndPassword on strings.
func (h *Hasher) Compare(digest, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
}

// Verify is the sign-in check. An empty or corrupt stored digest never matches.
func (h *Hasher) Verify(digest, password string) bool {
	return digest != "" && h.Compare(digest, password) == nil
}
