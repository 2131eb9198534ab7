package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/apimgr/idealista/src/cache"
	"github.com/apimgr/idealista/src/model"
)

// TokenPath is the OAuth token endpoint path.
const TokenPath = "/oauth/token"

// DefaultScope is the OAuth scope requested with the client-credentials
// grant.
const DefaultScope = "read"

// TokenManager owns acquisition, caching, and expiry-aware reuse of the
// bearer token.
type TokenManager struct {
	creds  model.Credentials
	store  cache.Store
	client *Client
	scope  string
}

// NewTokenManager creates a token manager backed by the given store.
func NewTokenManager(creds model.Credentials, store cache.Store, client *Client) *TokenManager {
	return &TokenManager{
		creds:  creds,
		store:  store,
		client: client,
		scope:  DefaultScope,
	}
}

// Ensure returns a valid bearer token. Unless forceRefresh is set, a cached
// unexpired token is returned without any network call. A refresh performs
// exactly one cache write on success; cache read failures degrade to a miss.
func (m *TokenManager) Ensure(ctx context.Context, forceRefresh bool) (model.CachedToken, error) {
	if !forceRefresh && m.store != nil {
		cached, err := m.store.Get(ctx)
		if err != nil {
			m.client.logger.Warn("token cache read failed, refreshing", "error", err)
		} else if cached != nil && cached.Valid(m.client.now()) {
			return *cached, nil
		}
	}
	return m.refresh(ctx)
}

func (m *TokenManager) refresh(ctx context.Context) (model.CachedToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if m.scope != "" {
		form.Set("scope", m.scope)
	}
	encoded := form.Encode()
	endpoint := m.client.BaseURL + TokenPath

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(m.creds.APIKey, m.creds.APISecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent())
		return req, nil
	}

	body, err := m.client.execute(ctx, build)
	if err != nil {
		return model.CachedToken{}, authify(err)
	}

	var resp model.TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.CachedToken{}, fmt.Errorf("decode token response: %w", err)
	}
	if resp.AccessToken == "" {
		return model.CachedToken{}, fmt.Errorf("%w: token response missing access_token", model.ErrAuth)
	}

	token := model.NewCachedToken(resp, m.client.now())
	if m.store != nil {
		if err := m.store.Put(ctx, token); err != nil {
			// The token itself is fine; only persistence failed.
			m.client.logger.Warn("token cache write failed", "error", err)
		}
	}
	return token, nil
}

// authify reclassifies token-endpoint rejections as auth errors: a 400 or
// 403 from /oauth/token means bad credentials, not a bad request, and must
// never be retried by callers.
func authify(err error) error {
	var reqErr *model.RequestError
	if errors.As(err, &reqErr) && errors.Is(err, model.ErrFatalRequest) &&
		(reqErr.Status == http.StatusBadRequest || reqErr.Status == http.StatusForbidden) {
		return &model.RequestError{
			Status:   reqErr.Status,
			Attempts: reqErr.Attempts,
			URL:      reqErr.URL,
			Body:     reqErr.Body,
			Kind:     model.ErrAuth,
			Err:      reqErr.Err,
		}
	}
	return err
}
