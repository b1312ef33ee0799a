// Package magiclink wraps the external passwordless identity provider's
// HTTP API: dispatching one-time sign-in links, resolving provider
// sessions and signing sessions out.
package magiclink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Provider error vocabulary. Token errors map one-to-one onto audit reasons.
var (
	ErrInvalidOrExpiredToken = errors.New("magic link token invalid or expired")
	ErrTokenAlreadyUsed      = errors.New("magic link token already used")
	ErrTokenExpired          = errors.New("magic link token expired")
	ErrProviderUnavailable   = errors.New("magic link provider unavailable")
)

// Session is the provider's view of a completed passwordless sign-in.
type Session struct {
	Email          string `json:"email"`
	ProviderUserID string `json:"provider_user_id"`
	SessionToken   string `json:"session_token"`
}

// Config contains credentials required to talk to the provider.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements the provider API over HTTP. Calls are bounded by the
// configured timeout; the provider itself specifies none.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a provider client instance.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("magic link provider credentials must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "magiclink").Logger(),
	}, nil
}

// SendLink asks the provider to email a one-time sign-in link.
func (c *Client) SendLink(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	if err := c.post(ctx, "/v1/links", payload, nil); err != nil {
		return err
	}

	c.logger.Info().Msg("magic link dispatched")
	return nil
}

// GetSession resolves a provider session token into the signed-in identity.
func (c *Client) GetSession(ctx context.Context, sessionToken string) (Session, error) {
	var session Session
	payload := map[string]string{"session_token": sessionToken}
	if err := c.post(ctx, "/v1/sessions/resolve", payload, &session); err != nil {
		return Session{}, err
	}

	return session, nil
}

// SignOut revokes the provider session. Used to fail closed when the
// provider identity has no matching application identity.
func (c *Client) SignOut(ctx context.Context, sessionToken string) error {
	payload := map[string]string{"session_token": sessionToken}
	return c.post(ctx, "/v1/sessions/sign-out", payload, nil)
}

type providerError struct {
	Code string `json:"code"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}

func (c *Client) mapError(status int, raw []byte) error {
	var parsed providerError
	_ = json.Unmarshal(raw, &parsed)

	switch parsed.Code {
	case "token_already_used":
		return ErrTokenAlreadyUsed
	case "token_expired":
		return ErrTokenExpired
	case "invalid_token", "invalid_or_expired_token":
		return ErrInvalidOrExpiredToken
	}

	if status == http.StatusUnauthorized || status == http.StatusNotFound {
		return ErrInvalidOrExpiredToken
	}

	return fmt.Errorf("%w: provider returned status %d", ErrProviderUnavailable, status)
}
