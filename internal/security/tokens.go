package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, expired or from another issuer.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims are the claims of a brand-scoped access token. Only iss and exp of the
// registered claims are set.
type AccessClaims struct {
	AccountID string   `json:"id"`
	BrandID   string   `json:"brand"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name,omitempty"`
	Scopes    []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether scope was granted.
func (c *AccessClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// RefreshClaims are the claims of a refresh token. Version must equal the account's stored
// refresh version for the token to be exchangeable.
type RefreshClaims struct {
	BrandID string `json:"brand_id"`
	Email   string `json:"email"`
	Version string `json:"version"`
	jwt.RegisteredClaims
}

// TokenProvider issues and validates access and refresh JWTs.
type TokenProvider struct {
	key        SigningKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with key. issuer is stamped on access tokens
// and checked on validation.
func NewTokenProvider(key SigningKey, issuer string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		key:        key,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issuer returns the issuer stamped on access tokens.
func (p *TokenProvider) Issuer() string { return p.issuer }

// IssueAccess signs claims as an access token. exp and iss are always set here; caller-supplied
// registered claims are discarded.
func (p *TokenProvider) IssueAccess(claims AccessClaims) (token string, expiresAt time.Time, err error) {
	expiresAt = p.now().UTC().Add(p.accessTTL).Truncate(time.Second)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    p.issuer,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

// IssueRefresh signs claims as a refresh token with exp set to now plus the refresh TTL.
func (p *TokenProvider) IssueRefresh(claims RefreshClaims) (token string, expiresAt time.Time, err error) {
	expiresAt = p.now().UTC().Add(p.refreshTTL).Truncate(time.Second)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	if p.key.method == nil {
		return "", ErrInvalidKey
	}
	t := jwt.NewWithClaims(p.key.method, claims)
	return t.SignedString(p.key.sign)
}

func (p *TokenProvider) parser(opts ...jwt.ParserOption) *jwt.Parser {
	base := []jwt.ParserOption{
		jwt.WithValidMethods([]string{p.key.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	return jwt.NewParser(append(base, opts...)...)
}

func (p *TokenProvider) keyFunc(*jwt.Token) (interface{}, error) {
	return p.key.verify, nil
}

// ValidateAccess verifies signature, expiration and issuer of an access token.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := p.parser(jwt.WithIssuer(p.issuer)).ParseWithClaims(tokenString, claims, p.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh verifies signature and expiration of a refresh token.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	token, err := p.parser().ParseWithClaims(tokenString, claims, p.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UnverifiedAccessClaims decodes the payload of an access token without checking its signature
// or expiry. Only use the result for routing hints before full validation.
func UnverifiedAccessClaims(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
