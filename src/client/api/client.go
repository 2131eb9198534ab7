// Package api implements the idealista API client: token lifecycle,
// resilient request execution, and page iteration.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/apimgr/idealista/src/cache"
	"github.com/apimgr/idealista/src/model"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.idealista.com"

// DefaultTimeout bounds each HTTP attempt.
const DefaultTimeout = 30 * time.Second

// Build info - set via -ldflags at build time, used for User-Agent.
var (
	ProjectName = "idealista"
	Version     = "dev"
)

// Client is the idealista API client. One HTTP call is in flight at a
// time; all blocking operations take a context.
type Client struct {
	BaseURL string

	httpClient    *http.Client
	policy        RetryPolicy
	tokens        *TokenManager
	logger        *slog.Logger
	now           func() time.Time
	scopeOverride *string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.BaseURL = url }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger replaces the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithScope sets the OAuth scope requested at the token endpoint.
func WithScope(scope string) Option {
	return func(c *Client) { c.scopeOverride = &scope }
}

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the given credentials and token store.
func NewClient(creds model.Credentials, store cache.Store, opts ...Option) *Client {
	c := &Client{
		BaseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		policy:     DefaultRetryPolicy(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = NewTokenManager(creds, store, c)
	if c.scopeOverride != nil {
		c.tokens.scope = *c.scopeOverride
	}
	return c
}

// Token ensures a valid bearer token, refreshing when forced or expired.
func (c *Client) Token(ctx context.Context, forceRefresh bool) (model.CachedToken, error) {
	return c.tokens.Ensure(ctx, forceRefresh)
}

// Search fetches one page of results. A 401 forces a single token refresh
// and replay, which is not counted against the retry budget.
func (c *Client) Search(ctx context.Context, query model.SearchQuery) (*model.SearchPage, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	token, err := c.tokens.Ensure(ctx, false)
	if err != nil {
		return nil, err
	}

	page, err := c.searchPage(ctx, query, token)
	if err != nil && errors.Is(err, model.ErrAuth) {
		token, err = c.tokens.Ensure(ctx, true)
		if err != nil {
			return nil, err
		}
		page, err = c.searchPage(ctx, query, token)
	}
	return page, err
}

func (c *Client) searchPage(ctx context.Context, query model.SearchQuery, token model.CachedToken) (*model.SearchPage, error) {
	url := fmt.Sprintf("%s/3.5/%s/search", c.BaseURL, query.Country)

	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, field := range query.Fields() {
			if err := w.WriteField(field[0], field[1]); err != nil {
				return nil, fmt.Errorf("encode form field %s: %w", field[0], err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent())
		return req, nil
	}

	body, err := c.execute(ctx, build)
	if err != nil {
		return nil, err
	}

	var page model.SearchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &page, nil
}

func userAgent() string {
	return fmt.Sprintf("%s-cli/%s", ProjectName, Version)
}
