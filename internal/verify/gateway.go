// Package verify is the boundary to the email verification provider that delivers one-time codes.
package verify

import (
	"context"
	"errors"
)

// Purpose tells the provider which template to send.
type Purpose string

const (
	PurposeInvitation Purpose = "invitation"
	PurposeSignIn     Purpose = "sign_in"
	PurposeConfirm    Purpose = "confirm"
	PurposeReset      Purpose = "reset"
)

// ErrNotConfigured is returned when the provider has no credentials.
var ErrNotConfigured = errors.New("verification provider not configured")

// CodeRequest asks the provider to send a code for Identifier to Email. Link, when set, is
// embedded in the message (invitation links).
type CodeRequest struct {
	Identifier string
	Email      string
	Purpose    Purpose
	Link       string
}

// Check is the provider's verdict on a submitted code.
type Check struct {
	Valid    bool
	Approved bool
}

// Gateway sends and checks one-time codes. Calls are synchronous and single-attempt; callers never retry.
//
// CheckCode approves code only when it was issued for one of purposes. With no purposes any
// outstanding code matches. Providers that cannot tell purposes apart ignore the argument.
type Gateway interface {
	RequestCode(ctx context.Context, req CodeRequest) error
	CheckCode(ctx context.Context, identifier, code string, purposes ...Purpose) (Check, error)
}

// Accepts reports whether p is one of purposes, or purposes is empty.
func Accepts(p Purpose, purposes []Purpose) bool {
	if len(purposes) == 0 {
		return true
	}
	for _, want := range purposes {
		if p == want {
			return true
		}
	}
	return false
}
