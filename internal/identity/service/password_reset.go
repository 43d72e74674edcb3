package service

import (
	"context"

	"adinsights/backend/internal/account/domain"
	"adinsights/backend/internal/audit"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/verify"
)

// EmailType selects which message WillResendEmail sends again.
type EmailType string

const (
	EmailConfirm EmailType = "CONFIRM"
	EmailReset   EmailType = "RESET"
)

// WantsResetPassword sends a reset code and returns the sid to present with it. A PENDING account
// gets ErrAccountPending: its password is the invitation credential, so it must register through
// the invitation (WillResendEmail with EmailConfirm) instead.
func (s *AuthService) WantsResetPassword(ctx context.Context, email string) (sid string, err error) {
	defer func() { s.observe("wants_reset_password", err) }()
	email = domain.NormalizeEmail(email)
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrUnknownAccount
	}
	if acct.Status == domain.StatusPending {
		return "", ErrAccountPending
	}
	sid, err = s.sealChallenge(email, challengeReset)
	if err != nil {
		return "", err
	}
	if err := s.requestCode(ctx, acct.Email, verify.PurposeReset, ""); err != nil {
		return "", err
	}
	s.record(ctx, "", acct.ID, audit.ActionResetRequested, audit.ResourceAccount, "")
	return sid, nil
}

// WillResetPassword replaces the password once the code for sid is approved. It returns false
// when the code is not approved. A DISABLED account may still reset; a PENDING one gets
// ErrAccountPending and keeps its invitation credential.
func (s *AuthService) WillResetPassword(ctx context.Context, code, sid, newPassword string) (ok bool, err error) {
	defer func() { s.observe("will_reset_password", err) }()
	if err := security.ValidatePassword(newPassword); err != nil {
		return false, err
	}
	email, err := s.openChallenge(sid, challengeReset)
	if err != nil {
		return false, err
	}
	if !s.checkCode(ctx, email, code, verify.PurposeReset) {
		return false, nil
	}
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if acct == nil {
		return false, ErrUnknownAccount
	}
	if acct.Status == domain.StatusPending {
		return false, ErrAccountPending
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, err
	}
	if err := s.accounts.SetPasswordHash(ctx, acct.ID, hash); err != nil {
		return false, err
	}
	s.record(ctx, "", acct.ID, audit.ActionPasswordReset, audit.ResourceAccount, "")
	return true, nil
}

// WillResendEmail sends a new code when the account status allows it: CONFIRM for ACTIVE or
// PENDING accounts, RESET for ACTIVE ones. Anything else is a silent no-op reported as false.
func (s *AuthService) WillResendEmail(ctx context.Context, email string, kind EmailType) (sent bool, err error) {
	defer func() { s.observe("will_resend_email", err) }()
	email = domain.NormalizeEmail(email)
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if acct == nil {
		return false, nil
	}
	var purpose verify.Purpose
	switch {
	case kind == EmailConfirm && (acct.Status == domain.StatusActive || acct.Status == domain.StatusPending):
		purpose = verify.PurposeConfirm
	case kind == EmailReset && acct.Status == domain.StatusActive:
		purpose = verify.PurposeReset
	default:
		return false, nil
	}
	if err := s.requestCode(ctx, acct.Email, purpose, ""); err != nil {
		return false, err
	}
	s.record(ctx, "", acct.ID, audit.ActionEmailResent, audit.ResourceAccount, string(kind))
	return true, nil
}
