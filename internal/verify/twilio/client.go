// Package twilio implements verify.Gateway on the Twilio Verify v2 REST API using the email channel.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adinsights/backend/internal/verify"
)

const (
	defaultBaseURL = "https://verify.twilio.com"
	defaultTimeout = 15 * time.Second
)

// Client talks to one Twilio Verify service.
type Client struct {
	AccountSID string
	AuthToken  string
	ServiceSID string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the given credentials. An empty baseURL selects the public API.
func NewClient(accountSID, authToken, serviceSID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		AccountSID: accountSID,
		AuthToken:  authToken,
		ServiceSID: serviceSID,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type verificationResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
}

// RequestCode starts an email verification. The link and purpose travel as template substitutions.
func (c *Client) RequestCode(ctx context.Context, req verify.CodeRequest) error {
	substitutions, err := json.Marshal(map[string]any{
		"substitutions": map[string]string{
			"email":   req.Email,
			"link":    req.Link,
			"purpose": string(req.Purpose),
		},
	})
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("To", req.Identifier)
	form.Set("Channel", "email")
	form.Set("ChannelConfiguration", string(substitutions))
	_, err = c.post(ctx, "/v2/Services/"+c.ServiceSID+"/Verifications", form)
	return err
}

// CheckCode submits code for identifier. A 404 means the verification expired or was already
// used and is reported as not approved. Twilio keeps one pending verification per recipient, so
// purposes are not checked here; a newer request always replaces the older code.
func (c *Client) CheckCode(ctx context.Context, identifier, code string, _ ...verify.Purpose) (verify.Check, error) {
	form := url.Values{}
	form.Set("To", identifier)
	form.Set("Code", code)
	resp, err := c.post(ctx, "/v2/Services/"+c.ServiceSID+"/VerificationCheck", form)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return verify.Check{}, nil
		}
		return verify.Check{}, err
	}
	return verify.Check{Valid: resp.Valid, Approved: resp.Status == "approved"}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("twilio: request failed status=%d body=%s", e.Code, e.Body)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*verificationResponse, error) {
	if c.AccountSID == "" || c.AuthToken == "" || c.ServiceSID == "" {
		return nil, verify.ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	var out verificationResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("twilio: decode response: %w", err)
	}
	return &out, nil
}
