package domain

import (
	"errors"
	"strings"
	"time"
)

// Brand is an advertiser workspace. Access tokens are scoped to exactly one brand.
type Brand struct {
	ID        string
	Name      string
	Members   []string
	CreatedAt time.Time
}

// Validate validates the brand for persistence. Returns an error describing the first validation failure.
func (b *Brand) Validate() error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
