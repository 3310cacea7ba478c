package mew

import (
	"context"
	"errors"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenCacheTTL is deliberately shorter than the token's real lifetime so a
// refresh happens well before the backend would start rejecting requests.
const tokenCacheTTL = 4 * time.Minute

func newCredentials(cfg Config) *clientcredentials.Config {
	params := url.Values{}
	if cfg.Audience != "" {
		params.Set("audience", cfg.Audience)
	}
	return &clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       "https://" + cfg.Auth0Domain + "/oauth/token",
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}
}

// AccessToken returns the cached access token while it is younger than
// tokenCacheTTL, performing a client-credentials exchange otherwise.
// Exchange failures surface as *AuthenticationError.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Since(c.tokenFetchedAt) < tokenCacheTTL {
		return c.token, nil
	}

	tok, err := c.creds.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &AuthenticationError{
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
				Err:    err,
			}
		}
		return "", &AuthenticationError{Err: err}
	}

	c.token = tok.AccessToken
	c.tokenFetchedAt = time.Now()
	c.log.Debug().Time("fetchedAt", c.tokenFetchedAt).Msg("refreshed access token")
	return c.token, nil
}
