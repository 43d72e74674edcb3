package repository

import (
	"context"
)

// Repository keeps brand membership bidirectional: brands.members and accounts.brands always
// change together.
type Repository interface {
	// AddMember enrols accountID in brandID on both sides. added is false when both sides
	// already recorded the membership.
	AddMember(ctx context.Context, brandID, accountID string) (added bool, err error)
	// RemoveMember pulls the membership from both sides. removed is false when neither side had it.
	RemoveMember(ctx context.Context, brandID, accountID string) (removed bool, err error)
}
