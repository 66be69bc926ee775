package twitchapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenFetchTimeout bounds a client-credentials fetch that no caller waits for anymore.
const DefaultTokenFetchTimeout = 10 * time.Second

// TokenSource yields the Helix bearer token. Token must return once ctx is done.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenConfig selects how the Helix bearer token is obtained.
type TokenConfig struct {
	ClientID     string
	ClientSecret string
	// StaticToken wins when set; it is used verbatim.
	StaticToken string
	TokenURL    string
	// FetchTimeout bounds each token request; zero uses DefaultTokenFetchTimeout.
	FetchTimeout time.Duration
}

// NewTokenSource returns a static source for a configured token, or a cached
// client-credentials (app access token) source when only a client secret is present.
// NOTE: an app access token is enough for Helix reads; it cannot be used for chat.
func NewTokenSource(tc TokenConfig) (TokenSource, error) {
	if tc.StaticToken != "" {
		return StaticToken(tc.StaticToken), nil
	}
	if tc.ClientID == "" || tc.ClientSecret == "" {
		return nil, errors.New("missing client id/secret for twitch app token")
	}
	timeout := tc.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultTokenFetchTimeout
	}
	return &AppTokenCache{
		cfg: &clientcredentials.Config{
			ClientID:     tc.ClientID,
			ClientSecret: tc.ClientSecret,
			TokenURL:     tc.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		fetchTimeout: timeout,
	}, nil
}

// StaticToken is a fixed user or app token.
type StaticToken string

func (s StaticToken) Token(context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: string(s), TokenType: "Bearer"}, nil
}

// AppTokenCache holds the current app access token and refreshes it when it expires.
// Concurrent misses share one fetch; every caller stops waiting when its own ctx is done,
// so a stalled token endpoint never holds up more than the caller's own deadline.
type AppTokenCache struct {
	cfg          *clientcredentials.Config
	fetchTimeout time.Duration

	group singleflight.Group
	mu    sync.Mutex
	tok   *oauth2.Token
}

func (c *AppTokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	tok := c.tok
	c.mu.Unlock()
	if tok.Valid() {
		return tok, nil
	}

	ch := c.group.DoChan("app-token", func() (interface{}, error) {
		// detached from the first caller so one cancelled command does not fail the others
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		t, err := c.cfg.Token(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tok = t
		c.mu.Unlock()
		return t, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}
