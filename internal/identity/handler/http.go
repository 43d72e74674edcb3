// Package handler exposes the auth service over HTTP (echo) and gRPC.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"adinsights/backend/internal/identity/service"
	"adinsights/backend/internal/platform/rbac"
	"adinsights/backend/internal/policy/engine"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/server/interceptors"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

// Auth is the subset of service.AuthService the handlers call.
type Auth interface {
	Invite(ctx context.Context, req service.InviteRequest) (*service.Invitation, bool, error)
	Register(ctx context.Context, invitation, newPassword string) (bool, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, code, sid string) (*service.AuthResult, error)
	AuthenticateForBrand(ctx context.Context, brandID, accountID string) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	WantsResetPassword(ctx context.Context, email string) (string, error)
	WillResetPassword(ctx context.Context, code, sid, newPassword string) (bool, error)
	WillResendEmail(ctx context.Context, email string, kind service.EmailType) (bool, error)
	RemoveFromBrand(ctx context.Context, brandID, accountID string) (bool, error)
}

// CookieConfig controls the refresh cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// HTTPHandler serves the /v1 auth routes.
type HTTPHandler struct {
	auth      Auth
	evaluator engine.ScopeEvaluator
	cookie    CookieConfig
	log       *slog.Logger
}

// NewHTTPHandler returns an HTTPHandler. A zero cookie TTL means 30 days.
func NewHTTPHandler(auth Auth, evaluator engine.ScopeEvaluator, cookie CookieConfig, log *slog.Logger) *HTTPHandler {
	if cookie.TTL <= 0 {
		cookie.TTL = 30 * 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPHandler{auth: auth, evaluator: evaluator, cookie: cookie, log: log.With("component", "auth_http")}
}

// Routes registers the handlers. authn admits bearer tokens; limit throttles the
// unauthenticated credential routes. Either may be nil.
func (h *HTTPHandler) Routes(e *echo.Echo, authn, limit echo.MiddlewareFunc) {
	var public, private []echo.MiddlewareFunc
	if limit != nil {
		public = append(public, limit)
	}
	if authn != nil {
		private = append(private, authn)
	}

	g := e.Group("/v1/auth")
	g.POST("/register", h.Register, public...)
	g.POST("/sign-in", h.SignIn, public...)
	g.POST("/authenticate", h.Authenticate, public...)
	g.POST("/refresh", h.Refresh, public...)
	g.POST("/password/forgot", h.ForgotPassword, public...)
	g.POST("/password/reset", h.ResetPassword, public...)
	g.POST("/email/resend", h.ResendEmail, public...)

	g.POST("/invite", h.Invite, private...)
	g.POST("/brands/:brand_id/token", h.SwitchBrand, private...)
	g.GET("/me", h.Me, private...)

	e.DELETE("/v1/brands/:brand_id/members/:account_id", h.RemoveMember, private...)
}

type inviteRequest struct {
	Email  string   `json:"email" validate:"required,email"`
	Name   string   `json:"name" validate:"max=200"`
	Scopes []string `json:"scopes" validate:"required,min=1"`
	Brands []string `json:"brands" validate:"required,min=1,dive,required"`
}

type inviteResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Link      string `json:"link"`
}

type registerRequest struct {
	Invitation string `json:"invitation" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type challengeResponse struct {
	SID string `json:"sid"`
}

type authenticateRequest struct {
	SID  string `json:"sid" validate:"required"`
	Code string `json:"code" validate:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	BrandID     string    `json:"brand_id"`
}

type forgotRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetRequest struct {
	SID      string `json:"sid" validate:"required"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=CONFIRM RESET"`
}

type meResponse struct {
	AccountID string    `json:"id"`
	BrandID   string    `json:"brand"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Invite handles POST /v1/auth/invite.
func (h *HTTPHandler) Invite(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := rbac.RequireScope(ctx, h.evaluator, engine.ActionBrandInvite); err != nil {
		return toHTTPError(err)
	}
	var req inviteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	inv, ok, err := h.auth.Invite(ctx, service.InviteRequest{
		Email: req.Email, Name: req.Name, Scopes: req.Scopes, Brands: req.Brands,
	})
	if err != nil {
		return toHTTPError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown brand")
	}
	return c.JSON(http.StatusCreated, inviteResponse{AccountID: inv.AccountID, Email: inv.Email, Link: inv.Link})
}

// Register handles POST /v1/auth/register.
func (h *HTTPHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ok, err := h.auth.Register(c.Request().Context(), req.Invitation, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "invitation already used")
	}
	return c.NoContent(http.StatusNoContent)
}

// SignIn handles POST /v1/auth/sign-in.
func (h *HTTPHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sid, err := h.auth.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, challengeResponse{SID: sid})
}

// Authenticate handles POST /v1/auth/authenticate.
func (h *HTTPHandler) Authenticate(c echo.Context) error {
	var req authenticateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Authenticate(c.Request().Context(), req.Code, req.SID)
	if err != nil {
		return toHTTPError(err)
	}
	return h.tokens(c, res)
}

// SwitchBrand handles POST /v1/auth/brands/:brand_id/token for the admitted account.
func (h *HTTPHandler) SwitchBrand(c echo.Context) error {
	ctx := c.Request().Context()
	accountID, ok := interceptors.GetAccountID(ctx)
	if !ok {
		return toHTTPError(rbac.ErrUnauthenticated)
	}
	res, err := h.auth.AuthenticateForBrand(ctx, c.Param("brand_id"), accountID)
	if err != nil {
		return toHTTPError(err)
	}
	return h.tokens(c, res)
}

// Refresh handles POST /v1/auth/refresh using the refresh cookie.
func (h *HTTPHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token not found")
	}
	res, err := h.auth.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrRefreshTokenExpired) || errors.Is(err, security.ErrInvalidToken) {
			h.clearRefreshCookie(c)
		}
		return toHTTPError(err)
	}
	return h.tokens(c, res)
}

// ForgotPassword handles POST /v1/auth/password/forgot.
func (h *HTTPHandler) ForgotPassword(c echo.Context) error {
	var req forgotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sid, err := h.auth.WantsResetPassword(c.Request().Context(), req.Email)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, challengeResponse{SID: sid})
}

// ResetPassword handles POST /v1/auth/password/reset.
func (h *HTTPHandler) ResetPassword(c echo.Context) error {
	var req resetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ok, err := h.auth.WillResetPassword(c.Request().Context(), req.Code, req.SID, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	if !ok {
		return toHTTPError(service.ErrCodeNotApproved)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResendEmail handles POST /v1/auth/email/resend. The reply does not reveal whether anything was sent.
func (h *HTTPHandler) ResendEmail(c echo.Context) error {
	var req resendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.auth.WillResendEmail(c.Request().Context(), req.Email, service.EmailType(req.Type)); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

// Me handles GET /v1/auth/me.
func (h *HTTPHandler) Me(c echo.Context) error {
	claims, ok := interceptors.IdentityFrom(c.Request().Context())
	if !ok {
		return toHTTPError(rbac.ErrUnauthenticated)
	}
	resp := meResponse{
		AccountID: claims.AccountID,
		BrandID:   claims.BrandID,
		Email:     claims.Email,
		FullName:  claims.FullName,
		Scopes:    claims.Scopes,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	return c.JSON(http.StatusOK, resp)
}

// RemoveMember handles DELETE /v1/brands/:brand_id/members/:account_id. Admins may only remove
// members of the brand their token is scoped to.
func (h *HTTPHandler) RemoveMember(c echo.Context) error {
	ctx := c.Request().Context()
	claims, err := rbac.RequireScope(ctx, h.evaluator, engine.ActionBrandRemoveMember)
	if err != nil {
		return toHTTPError(err)
	}
	brandID := c.Param("brand_id")
	if brandID != claims.BrandID {
		return toHTTPError(rbac.ErrForbidden)
	}
	removed, err := h.auth.RemoveFromBrand(ctx, brandID, c.Param("account_id"))
	if err != nil {
		return toHTTPError(err)
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "membership not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HTTPHandler) tokens(c echo.Context, res *service.AuthResult) error {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    res.RefreshToken,
		Path:     "/v1/auth",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		Expires:  time.Now().Add(h.cookie.TTL),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.AccessExpiresAt,
		BrandID:     res.BrandID,
	})
}

func (h *HTTPHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}

// toHTTPError maps service and admission errors to HTTP statuses. Unmapped errors are returned
// as-is and rendered as 500 by the error handler.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, security.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidInvitation),
		errors.Is(err, service.ErrInvalidChallenge),
		errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, service.ErrInvalidEmail):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrCodeNotApproved),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, rbac.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountPending),
		errors.Is(err, service.ErrNotBrandMember),
		errors.Is(err, service.ErrNoBrand),
		errors.Is(err, rbac.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUnknownAccount):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrVerificationUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
