// Package metrc is the client for the state cannabis tracking service. It
// covers the three endpoints the label pipeline needs: package detail by
// label, package detail by id, and paginated lab-test results.
package metrc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the transport settings for a Client.
type Config struct {
	BaseURL     string
	VendorKey   string
	UserKey     string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	PageSize    int
}

// DefaultConfig returns sensible defaults for the Missouri service.
func DefaultConfig(vendorKey, userKey string) Config {
	return Config{
		BaseURL:     "https://api-missouri.metrc.com",
		VendorKey:   vendorKey,
		UserKey:     userKey,
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		BackoffBase: 1 * time.Second,
		BackoffMax:  8 * time.Second,
		PageSize:    20,
	}
}

// Client issues authenticated GET requests with bounded retry. All state is
// set at construction; a Client is safe for sequential reuse across searches.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     *zap.Logger

	// Retry knobs, overridable in tests.
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration

	pageSize int
}

// New creates a Client. The vendor and user keys are combined into a Basic
// auth token once, here; they are not inspected again.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	token := base64.StdEncoding.EncodeToString([]byte(cfg.VendorKey + ":" + cfg.UserKey))
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		authHeader:  "Basic " + token,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		pageSize:    cfg.PageSize,
	}
}

// get performs one authenticated GET, retrying transport-level failures with
// exponential backoff. HTTP error statuses are terminal and mapped onto the
// error taxonomy immediately; only connection/timeout failures are retried.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			wait := c.backoff(i)
			c.logger.Debug("backing off before retry",
				zap.String("path", path),
				zap.Int("attempt", i+1),
				zap.Duration("wait", wait))
			time.Sleep(wait)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("request issued",
			zap.String("path", path),
			zap.Int("attempt", i+1))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("request failed",
				zap.String("path", path),
				zap.Int("attempt", i+1),
				zap.Error(err))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			c.logger.Warn("reading response failed",
				zap.String("path", path),
				zap.Int("attempt", i+1),
				zap.Error(err))
			continue
		}

		c.logger.Debug("response received",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Int("bytes", len(body)))

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case resp.StatusCode == http.StatusBadRequest:
			return nil, &BadRequestError{Body: strings.TrimSpace(string(body))}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, &HTTPError{Status: resp.StatusCode}
		}
		return body, nil
	}

	return nil, &NetworkError{Attempts: c.maxRetries + 1, Err: lastErr}
}

// backoff returns the wait before retry attempt (1-based): base, 2*base,
// 4*base, ... capped at max. Doubling stops at the cap, so any configured
// retry count is safe.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.backoffBase
	for j := 1; j < attempt && wait < c.backoffMax; j++ {
		wait *= 2
	}
	if wait > c.backoffMax {
		wait = c.backoffMax
	}
	return wait
}

// decodeObject unmarshals body into v, mapping decode failures onto the
// taxonomy: ErrMalformedResponse for invalid JSON, ErrUnexpectedSchema for
// valid JSON of the wrong shape.
func decodeObject(body []byte, v any) error {
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return fmt.Errorf("%w: %v", ErrUnexpectedSchema, err)
}
