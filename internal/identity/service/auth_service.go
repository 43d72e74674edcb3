package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	"adinsights/backend/internal/account/domain"
	"adinsights/backend/internal/audit"
	branddomain "adinsights/backend/internal/brand/domain"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/telemetry/metrics"
	"adinsights/backend/internal/verify"
)

// Sentinel errors for the auth service; handlers map them to HTTP and gRPC status codes.
var (
	ErrInvalidInvitation       = errors.New("invalid invitation")
	ErrInvalidChallenge        = errors.New("invalid or expired challenge")
	ErrInvalidScope            = errors.New("invalid scope")
	ErrInvalidEmail            = errors.New("invalid email")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrAccountPending          = errors.New("account registration is not complete")
	ErrCodeNotApproved         = errors.New("verification code not approved")
	ErrNotBrandMember          = errors.New("account is not a member of the brand")
	ErrNoBrand                 = errors.New("account has no brand membership")
	ErrRefreshTokenExpired     = errors.New("refresh token has been superseded")
	ErrAccountInactive         = errors.New("account is not active")
	ErrUnknownAccount          = errors.New("unknown account")
	ErrAccountProvisioning     = errors.New("account could not be provisioned")
	ErrVerificationUnavailable = errors.New("verification provider unavailable")
)

// AuthResult is the token pair minted by Authenticate, AuthenticateForBrand and Refresh.
type AuthResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	AccountID        string
	BrandID          string
}

// AccountRepo is the account persistence the auth service needs.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetPendingByPasswordHash(ctx context.Context, hash string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	CompleteRegistration(ctx context.Context, id, currentHash, newHash string) (bool, error)
	Activate(ctx context.Context, id string) error
	SetRefreshVersion(ctx context.Context, id, version string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// BrandRepo resolves brands named in invitations.
type BrandRepo interface {
	GetByName(ctx context.Context, name string) (*branddomain.Brand, error)
}

// MembershipRepo updates both sides of a brand membership together.
type MembershipRepo interface {
	AddMember(ctx context.Context, brandID, accountID string) (bool, error)
	RemoveMember(ctx context.Context, brandID, accountID string) (bool, error)
}

// Config holds the auth service settings loaded once at startup.
type Config struct {
	// FrontendURL is the base of the registration link sent with invitations.
	FrontendURL string
	// ChallengeTTL bounds the age of a sign-in or reset sid. Zero disables the check.
	ChallengeTTL time.Duration
	// InvitationTTL bounds the age of an invitation envelope. Zero means invitations never expire.
	InvitationTTL time.Duration
	// GeneratedPasswordLength is the length of the throwaway password set on invite.
	GeneratedPasswordLength int
}

// AuthService implements invitation, registration, two-factor sign-in, brand switching,
// refresh and password reset.
type AuthService struct {
	accounts    AccountRepo
	brands      BrandRepo
	memberships MembershipRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	cipher      *security.Cipher
	gateway     verify.Gateway
	cfg         Config

	audit   audit.AuditLogger
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. auditLogger and m may be nil.
func NewAuthService(
	accounts AccountRepo,
	brands BrandRepo,
	memberships MembershipRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	cipher *security.Cipher,
	gateway verify.Gateway,
	cfg Config,
	auditLogger audit.AuditLogger,
	m *metrics.Metrics,
	log *slog.Logger,
) *AuthService {
	if cfg.GeneratedPasswordLength == 0 {
		cfg.GeneratedPasswordLength = security.DefaultGeneratedPasswordLength
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		accounts:    accounts,
		brands:      brands,
		memberships: memberships,
		hasher:      hasher,
		tokens:      tokens,
		cipher:      cipher,
		gateway:     gateway,
		cfg:         cfg,
		audit:       auditLogger,
		metrics:     m,
		log:         log.With("component", "auth"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SignIn checks the password and sends a sign-in code. The returned sid must be presented with
// the code to Authenticate; no token is minted here.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (sid string, err error) {
	defer func() { s.observe("sign_in", err) }()
	email = domain.NormalizeEmail(email)
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.Status == domain.StatusDisabled || !s.hasher.Verify(acct.PasswordHash, password) {
		s.record(ctx, "", accountID(acct), audit.ActionSignInFailure, audit.ResourceAuth, email)
		return "", ErrInvalidCredentials
	}
	if acct.Status == domain.StatusPending {
		return "", ErrAccountPending
	}
	sid, err = s.sealChallenge(email, challengeSignIn)
	if err != nil {
		return "", err
	}
	if err := s.requestCode(ctx, acct.Email, verify.PurposeSignIn, ""); err != nil {
		return "", err
	}
	s.record(ctx, "", acct.ID, audit.ActionSignIn, audit.ResourceAuth, "")
	return sid, nil
}

// Authenticate completes two-factor sign-in. A PENDING account becomes ACTIVE. The session is
// scoped to the account's lowest brand id, and the refresh version is rotated so every refresh
// token issued earlier stops working.
func (s *AuthService) Authenticate(ctx context.Context, code, sid string) (res *AuthResult, err error) {
	defer func() { s.observe("authenticate", err) }()
	email, err := s.openChallenge(sid, challengeSignIn)
	if err != nil {
		return nil, err
	}
	if !s.checkCode(ctx, email, code, verify.PurposeSignIn, verify.PurposeConfirm) {
		return nil, ErrCodeNotApproved
	}
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Status == domain.StatusDisabled {
		return nil, ErrAccountInactive
	}
	if acct.Status == domain.StatusPending {
		if err := s.accounts.Activate(ctx, acct.ID); err != nil {
			return nil, err
		}
		acct.Status = domain.StatusActive
	}
	brandID, ok := defaultBrand(acct.Brands)
	if !ok {
		return nil, ErrNoBrand
	}
	res, err = s.startSession(ctx, acct, brandID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, brandID, acct.ID, audit.ActionAuthenticate, audit.ResourceAuth, "")
	return res, nil
}

// AuthenticateForBrand mints tokens for another brand of an already authenticated account.
// The refresh version is rotated, so refresh tokens for the previous brand stop working.
func (s *AuthService) AuthenticateForBrand(ctx context.Context, brandID, accountID string) (res *AuthResult, err error) {
	defer func() { s.observe("authenticate_for_brand", err) }()
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Status != domain.StatusActive {
		return nil, ErrAccountInactive
	}
	if !acct.IsMember(brandID) {
		return nil, ErrNotBrandMember
	}
	res, err = s.startSession(ctx, acct, brandID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, brandID, acct.ID, audit.ActionBrandSwitch, audit.ResourceAuth, "")
	return res, nil
}

// Refresh exchanges a refresh token for a new pair scoped to the same brand. The version is kept:
// only Authenticate and AuthenticateForBrand rotate it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *AuthResult, err error) {
	defer func() { s.observe("refresh", err) }()
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, security.ErrInvalidToken
	}
	acct, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(claims.Email))
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Status == domain.StatusDisabled {
		return nil, ErrAccountInactive
	}
	if claims.Version == "" || claims.Version != acct.RefreshVersion {
		return nil, ErrRefreshTokenExpired
	}
	if !acct.IsMember(claims.BrandID) {
		return nil, ErrNotBrandMember
	}
	res, err = s.issue(acct, claims.BrandID, acct.RefreshVersion)
	if err != nil {
		return nil, err
	}
	s.record(ctx, claims.BrandID, acct.ID, audit.ActionRefresh, audit.ResourceAuth, "")
	return res, nil
}

// startSession rotates the refresh version and mints a token pair carrying it.
func (s *AuthService) startSession(ctx context.Context, acct *domain.Account, brandID string) (*AuthResult, error) {
	version := security.NewRefreshVersion()
	if err := s.accounts.SetRefreshVersion(ctx, acct.ID, version); err != nil {
		return nil, fmt.Errorf("rotate refresh version: %w", err)
	}
	acct.RefreshVersion = version
	return s.issue(acct, brandID, version)
}

func (s *AuthService) issue(acct *domain.Account, brandID, version string) (*AuthResult, error) {
	access, accessExp, err := s.tokens.IssueAccess(security.AccessClaims{
		AccountID: acct.ID,
		BrandID:   brandID,
		Email:     acct.Email,
		FullName:  acct.FullName,
		Scopes:    acct.ScopeStrings(),
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(security.RefreshClaims{
		BrandID: brandID,
		Email:   acct.Email,
		Version: version,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		AccountID:        acct.ID,
		BrandID:          brandID,
	}, nil
}

// requestCode asks the gateway for a code. Provider failures are logged and reported as
// ErrVerificationUnavailable without the provider detail.
func (s *AuthService) requestCode(ctx context.Context, email string, purpose verify.Purpose, link string) error {
	err := s.gateway.RequestCode(ctx, verify.CodeRequest{
		Identifier: email,
		Email:      email,
		Purpose:    purpose,
		Link:       link,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "verification request failed", "purpose", purpose, "error", err)
		return ErrVerificationUnavailable
	}
	return nil
}

// checkCode reports whether the gateway approved code for one of purposes. Provider failures
// count as not approved.
func (s *AuthService) checkCode(ctx context.Context, email, code string, purposes ...verify.Purpose) bool {
	if code == "" {
		return false
	}
	check, err := s.gateway.CheckCode(ctx, email, code, purposes...)
	if err != nil {
		s.log.WarnContext(ctx, "verification check failed", "error", err)
		return false
	}
	return check.Valid && check.Approved
}

func (s *AuthService) record(ctx context.Context, brandID, accountID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, brandID, accountID, action, resource, metadata)
}

func (s *AuthService) observe(operation string, err error) {
	s.metrics.AuthOutcome(operation, outcome(err))
}

// outcome maps an error to a low-cardinality metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountPending):
		return "account_pending"
	case errors.Is(err, ErrCodeNotApproved):
		return "not_approved"
	case errors.Is(err, ErrInvalidChallenge), errors.Is(err, ErrInvalidInvitation):
		return "invalid_envelope"
	case errors.Is(err, ErrRefreshTokenExpired), errors.Is(err, security.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrNotBrandMember), errors.Is(err, ErrNoBrand):
		return "not_member"
	case errors.Is(err, ErrAccountInactive), errors.Is(err, ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, security.ErrWeakPassword), errors.Is(err, ErrInvalidScope), errors.Is(err, ErrInvalidEmail):
		return "invalid_input"
	case errors.Is(err, ErrVerificationUnavailable):
		return "provider_error"
	default:
		return "error"
	}
}

// defaultBrand picks the session brand after sign-in: the lexicographically smallest id, so the
// choice does not depend on storage order.
func defaultBrand(brands []string) (string, bool) {
	if len(brands) == 0 {
		return "", false
	}
	return slices.Min(brands), true
}

func accountID(a *domain.Account) string {
	if a == nil {
		return ""
	}
	return a.ID
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
