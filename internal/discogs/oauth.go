package discogs

import (
	"context"
	"fmt"

	"github.com/dghubble/oauth1"
)

// OutOfBand is the callback value for flows where the user copies the
// verifier by hand.
const OutOfBand = "oob"

// Authorizer runs the three-legged OAuth 1.0a handshake for one consumer.
type Authorizer struct {
	cfg            Config
	consumerKey    string
	consumerSecret string
}

// NewAuthorizer returns an authorizer for the consumer pair.
func NewAuthorizer(cfg Config, consumerKey, consumerSecret string) *Authorizer {
	return &Authorizer{cfg: cfg.withDefaults(), consumerKey: consumerKey, consumerSecret: consumerSecret}
}

func (a *Authorizer) oauthConfig(ctx context.Context, callbackURL string) *oauth1.Config {
	if callbackURL == "" {
		callbackURL = OutOfBand
	}
	return &oauth1.Config{
		ConsumerKey:    a.consumerKey,
		ConsumerSecret: a.consumerSecret,
		CallbackURL:    callbackURL,
		Endpoint:       a.cfg.endpoint(),
		HTTPClient:     a.cfg.boundHTTPClient(ctx),
	}
}

// RequestToken obtains a request token and the authorization page URL.
func (a *Authorizer) RequestToken(ctx context.Context, callbackURL string) (RequestToken, error) {
	cfg := a.oauthConfig(ctx, callbackURL)

	token, secret, err := cfg.RequestToken()
	if err != nil {
		return RequestToken{}, fmt.Errorf("requesting token: %w", err)
	}

	authURL, err := cfg.AuthorizationURL(token)
	if err != nil {
		return RequestToken{}, fmt.Errorf("building authorization url: %w", err)
	}

	return RequestToken{Token: token, Secret: secret, AuthorizeURL: authURL.String()}, nil
}

// AccessToken exchanges an authorized request token and verifier for an
// access token pair.
func (a *Authorizer) AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (AccessToken, error) {
	cfg := a.oauthConfig(ctx, "")

	token, secret, err := cfg.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return AccessToken{}, fmt.Errorf("exchanging token: %w", err)
	}
	return AccessToken{Token: token, Secret: secret}, nil
}
