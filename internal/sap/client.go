// Package sap implements the client for the ERP Service Layer: session
// lifecycle, paginated open-GRN queries, vendor lookup, and AP invoice
// posting.
package sap

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Config holds connection settings for the ERP Service Layer.
type Config struct {
	BaseURL   string
	Username  string
	Password  string
	CompanyDB string

	SessionTTL      time.Duration
	RequestTimeout  time.Duration
	PageSize        int
	FetchRetries    int
	FetchRetryDelay time.Duration
	PostRetries     int
	PostRetryDelay  time.Duration

	// InsecureSkipVerify disables TLS verification. Service Layer
	// installs commonly run with self-signed certificates.
	InsecureSkipVerify bool
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = 3
	}
	if c.FetchRetryDelay <= 0 {
		c.FetchRetryDelay = 2 * time.Second
	}
	if c.PostRetries <= 0 {
		c.PostRetries = 3
	}
	if c.PostRetryDelay <= 0 {
		c.PostRetryDelay = 2 * time.Second
	}
	return c
}

// Client is a thread-safe ERP Service Layer client. All authenticated
// calls obtain a session id from the shared SessionManager.
type Client struct {
	cfg      Config
	rest     *resty.Client
	sessions *SessionManager
	log      *logrus.Entry
}

// NewClient creates an ERP client. One client (and hence one session
// manager) is shared per process.
func NewClient(cfg Config, log *logrus.Logger) *Client {
	cfg = cfg.withDefaults()

	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")
	if cfg.InsecureSkipVerify {
		rest.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	c := &Client{
		cfg:  cfg,
		rest: rest,
		log:  log.WithField("component", "sap"),
	}
	c.sessions = newSessionManager(c, cfg.SessionTTL)
	return c
}

// Sessions exposes the client's session manager.
func (c *Client) Sessions() *SessionManager {
	return c.sessions
}

// EnsureSession returns a valid session id, logging in or refreshing as
// needed.
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	return c.sessions.Ensure(ctx)
}

// Close logs out the active ERP session, if any.
func (c *Client) Close(ctx context.Context) {
	c.sessions.Logout(ctx)
}

func sessionCookie(sessionID string) string {
	return "B1SESSION=" + sessionID
}

// login performs the full credential exchange and returns a new session id.
func (c *Client) login(ctx context.Context) (string, error) {
	body := map[string]string{
		"UserName":  c.cfg.Username,
		"Password":  c.cfg.Password,
		"CompanyDB": c.cfg.CompanyDB,
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		Post("/Login")
	if err != nil {
		return "", &AuthError{Message: "login request failed", Cause: err}
	}
	if resp.StatusCode() != 200 {
		return "", &AuthError{Message: fmt.Sprintf("login rejected with status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))}
	}

	var parsed struct {
		SessionID string `json:"SessionId"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &AuthError{Message: "malformed login response", Cause: err}
	}
	if parsed.SessionID == "" {
		return "", &AuthError{Message: "login response did not contain a session id"}
	}

	c.log.WithField("company_db", c.cfg.CompanyDB).Info("erp login succeeded")
	return parsed.SessionID, nil
}

// validateSession performs the cheap company-info call to confirm the
// session is still accepted by the ERP.
func (c *Client) validateSession(ctx context.Context, sessionID string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Cookie", sessionCookie(sessionID)).
		SetBody(map[string]any{}).
		Post("/CompanyService_GetCompanyInfo")
	if err != nil {
		return fmt.Errorf("session validation failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("session validation returned status %d", resp.StatusCode())
	}
	return nil
}

// logout releases the session server-side. Errors are logged only; a
// failed logout leaves nothing to recover.
func (c *Client) logout(ctx context.Context, sessionID string) {
	_, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Cookie", sessionCookie(sessionID)).
		Post("/Logout")
	if err != nil {
		c.log.WithError(err).Warn("erp logout failed")
		return
	}
	c.log.Info("erp session logged out")
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
