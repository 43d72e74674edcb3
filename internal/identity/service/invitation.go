package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"adinsights/backend/internal/account/domain"
	accountrepo "adinsights/backend/internal/account/repository"
	"adinsights/backend/internal/audit"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/verify"
)

// InviteRequest names who to invite, with which scopes, into which brands (by name).
type InviteRequest struct {
	Email  string
	Name   string
	Scopes []string
	Brands []string
}

// Invitation is what was sent to the invitee.
type Invitation struct {
	AccountID string
	Email     string
	Link      string
}

// Invite creates the account as PENDING with a generated password when it does not exist yet, then
// enrols it in every named brand it is not already a member of and sends a registration link.
// ok is false, with no error, when a named brand does not exist; brands before it stay enrolled.
func (s *AuthService) Invite(ctx context.Context, req InviteRequest) (inv *Invitation, ok bool, err error) {
	defer func() { s.observe("invite", err) }()
	email := domain.NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, false, err
	}
	scopes := make([]domain.Scope, 0, len(req.Scopes))
	for _, raw := range req.Scopes {
		sc, valid := domain.ParseScope(raw)
		if !valid {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
		}
		scopes = append(scopes, sc)
	}

	acct, err := s.provision(ctx, email, strings.TrimSpace(req.Name), scopes)
	if err != nil {
		return nil, false, err
	}

	names := make([]string, 0, len(req.Brands))
	for _, name := range req.Brands {
		name = strings.TrimSpace(name)
		brand, err := s.brands.GetByName(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if brand == nil {
			s.log.WarnContext(ctx, "invite stopped at unknown brand", "brand", name, "account_id", acct.ID)
			return nil, false, nil
		}
		added, err := s.memberships.AddMember(ctx, brand.ID, acct.ID)
		if err != nil {
			return nil, false, fmt.Errorf("add member: %w", err)
		}
		if !added {
			s.log.InfoContext(ctx, "account already a brand member", "brand_id", brand.ID, "account_id", acct.ID)
		}
		names = append(names, brand.Name)
	}

	token, err := s.sealInvitation(email, acct.PasswordHash, names)
	if err != nil {
		return nil, false, err
	}
	link := s.registrationLink(token)
	if err := s.requestCode(ctx, email, verify.PurposeInvitation, link); err != nil {
		return nil, false, err
	}
	s.record(ctx, "", acct.ID, audit.ActionInvite, audit.ResourceAccount, strings.Join(names, ","))
	return &Invitation{AccountID: acct.ID, Email: email, Link: link}, true, nil
}

// provision returns the account for email, creating it as PENDING when missing. A concurrent
// invite that wins the insert is treated as already existing.
func (s *AuthService) provision(ctx context.Context, email, name string, scopes []domain.Scope) (*domain.Account, error) {
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountProvisioning, err)
	}
	if acct != nil {
		return acct, nil
	}
	password, err := security.GenerateStrongPassword(s.cfg.GeneratedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	acct = &domain.Account{
		ID:             uuid.New().String(),
		Email:          email,
		FullName:       name,
		PasswordHash:   hash,
		Status:         domain.StatusPending,
		RefreshVersion: security.NewRefreshVersion(),
		Scopes:         scopes,
		Brands:         []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := acct.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountProvisioning, err)
	}
	err = s.accounts.Create(ctx, acct)
	if errors.Is(err, accountrepo.ErrDuplicateEmail) {
		existing, getErr := s.accounts.GetByEmail(ctx, email)
		if getErr != nil || existing == nil {
			return nil, fmt.Errorf("%w: %v", ErrAccountProvisioning, err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountProvisioning, err)
	}
	return acct, nil
}

func (s *AuthService) registrationLink(token string) string {
	base := strings.TrimRight(s.cfg.FrontendURL, "/")
	return base + "/register?invitation=" + url.QueryEscape(token)
}

// Register sets the invitee's own password and activates the account. The invitation matches
// the PENDING account whose stored hash is the one sealed into it, so it works at most once:
// a reused or stale invitation returns false.
func (s *AuthService) Register(ctx context.Context, invitation, newPassword string) (ok bool, err error) {
	defer func() { s.observe("register", err) }()
	if err := security.ValidatePassword(newPassword); err != nil {
		return false, err
	}
	env, grant, err := s.openInvitation(invitation)
	if err != nil {
		return false, err
	}
	acct, err := s.accounts.GetPendingByPasswordHash(ctx, grant.Hash)
	if err != nil {
		return false, err
	}
	if acct == nil || acct.Email != domain.NormalizeEmail(env.Email) {
		return false, nil
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, err
	}
	ok, err = s.accounts.CompleteRegistration(ctx, acct.ID, grant.Hash, hash)
	if err != nil {
		return false, err
	}
	if ok {
		s.record(ctx, "", acct.ID, audit.ActionRegister, audit.ResourceAccount, "")
	}
	return ok, nil
}

// RemoveFromBrand pulls accountID out of brandID on both sides. removed is false when there was
// no membership. Existing access tokens for that brand are refused by the bearer gate afterwards.
func (s *AuthService) RemoveFromBrand(ctx context.Context, brandID, accountID string) (removed bool, err error) {
	defer func() { s.observe("remove_from_brand", err) }()
	removed, err = s.memberships.RemoveMember(ctx, brandID, accountID)
	if err != nil {
		return false, err
	}
	if removed {
		s.record(ctx, brandID, accountID, audit.ActionMemberRemoved, audit.ResourceBrandMembers, "")
	}
	return removed, nil
}
