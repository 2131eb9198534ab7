package model

import (
	"encoding/json"
	"time"
)

// ExpiryMargin is subtracted from the server-reported token lifetime so a
// token is refreshed before it actually expires mid-request.
const ExpiryMargin = 60 * time.Second

// Credentials holds the OAuth client id/secret pair. Immutable for the
// process lifetime.
type Credentials struct {
	APIKey    string
	APISecret string
}

// TokenResponse is the token endpoint's JSON payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// CachedToken is a bearer token plus its absolute expiry. Instances are
// replaced wholesale on refresh, never mutated.
type CachedToken struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// NewCachedToken builds a CachedToken from a token response, applying the
// expiry safety margin.
func NewCachedToken(resp TokenResponse, now time.Time) CachedToken {
	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return CachedToken{
		AccessToken: resp.AccessToken,
		TokenType:   tokenType,
		ExpiresAt:   now.Add(time.Duration(resp.ExpiresIn)*time.Second - ExpiryMargin),
	}
}

// Valid reports whether the token can still be used at the given instant.
func (t CachedToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// cachedTokenJSON is the on-disk shape: expiry as unix seconds.
type cachedTokenJSON struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// MarshalJSON writes the cache-file representation.
func (t CachedToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(cachedTokenJSON{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresAt:   t.ExpiresAt.Unix(),
	})
}

// UnmarshalJSON reads the cache-file representation.
func (t *CachedToken) UnmarshalJSON(data []byte) error {
	var raw cachedTokenJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.AccessToken = raw.AccessToken
	t.TokenType = raw.TokenType
	t.ExpiresAt = time.Unix(raw.ExpiresAt, 0)
	return nil
}
