package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

// AuthState is a position in the OAuth handshake.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateTokenCheck
	StateRequestingToken
	StateAwaitingAuthorization
	StateExchangingToken
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateTokenCheck:
		return "token-check"
	case StateRequestingToken:
		return "requesting-token"
	case StateAwaitingAuthorization:
		return "awaiting-authorization"
	case StateExchangingToken:
		return "exchanging-token"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// CredentialStore is the durable home of the token pair.
type CredentialStore interface {
	Load() (models.Credentials, error)
	Save(creds models.Credentials) error
}

// SessionConfig configures a [SessionManager].
type SessionConfig struct {
	Credentials models.Credentials
	// CallbackURL is used by Begin when the caller passes none. Empty means
	// out-of-band.
	CallbackURL string
	Upstream    Upstream
	// Store may be nil, in which case no stored token is consulted.
	Store CredentialStore
	// Persist controls whether Complete writes the new token pair to Store.
	Persist bool
	Logger  *log.Logger
}

// AuthenticatedHandle is a ready-to-use catalog bound to a token pair.
type AuthenticatedHandle struct {
	catalog  Catalog
	identity models.Identity
	creds    models.Credentials
}

// Catalog returns the signed API client.
func (h *AuthenticatedHandle) Catalog() Catalog { return h.catalog }

// Identity returns the user fetched when the handle was built.
func (h *AuthenticatedHandle) Identity() models.Identity { return h.identity }

// Credentials returns the consumer and token pairs the handle signs with.
func (h *AuthenticatedHandle) Credentials() models.Credentials { return h.creds }

// Refresh re-fetches the identity.
func (h *AuthenticatedHandle) Refresh(ctx context.Context) error {
	id, err := h.catalog.Identity(ctx)
	if err != nil {
		return fmt.Errorf("%w: identity: %w", shared.ErrConnection, err)
	}
	h.identity = models.Identity{ID: id.ID, Username: id.Username}
	return nil
}

// SessionManager drives the OAuth state machine for one credential set.
// It is not safe for concurrent use; the web app builds one per request.
type SessionManager struct {
	creds       models.Credentials
	callbackURL string
	upstream    Upstream
	store       CredentialStore
	persist     bool
	logger      *log.Logger

	state  AuthState
	handle *AuthenticatedHandle
}

// NewSessionManager validates the consumer pair and returns a manager in
// the Unauthenticated state.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	if !cfg.Credentials.HasConsumer() {
		return nil, fmt.Errorf("%w: consumer key and secret are required", shared.ErrValidation)
	}
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("%w: upstream is required", shared.ErrValidation)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &SessionManager{
		creds:       cfg.Credentials,
		callbackURL: cfg.CallbackURL,
		upstream:    cfg.Upstream,
		store:       cfg.Store,
		persist:     cfg.Persist,
		logger:      shared.WithLogger(logger, "component", "session"),
		state:       StateUnauthenticated,
	}, nil
}

// State returns the current position in the handshake.
func (m *SessionManager) State() AuthState {
	return m.state
}

// Credentials returns the credentials the manager currently holds.
func (m *SessionManager) Credentials() models.Credentials {
	return m.creds
}

// Authenticate checks for a usable token pair, first in the configured
// credentials and then in the store. Without one it returns
// [shared.ErrAuthorizationRequired]. Calling it again with the same
// tokens returns the same handle.
func (m *SessionManager) Authenticate(ctx context.Context) (*AuthenticatedHandle, error) {
	if m.state == StateAuthenticated && m.handle != nil {
		return m.handle, nil
	}

	m.state = StateTokenCheck
	creds := m.creds
	if !creds.HasToken() && m.store != nil {
		stored, err := m.store.Load()
		if err != nil {
			m.logger.Warn("could not read stored credentials", "error", err)
		} else if stored.HasToken() {
			creds.OAuthToken = stored.OAuthToken
			creds.OAuthTokenSecret = stored.OAuthTokenSecret
		}
	}

	if !creds.HasToken() {
		m.state = StateUnauthenticated
		return nil, shared.ErrAuthorizationRequired
	}

	handle, err := m.buildHandle(ctx, creds)
	if err != nil {
		m.state = StateUnauthenticated
		return nil, err
	}

	m.creds = creds
	m.handle = handle
	m.state = StateAuthenticated
	m.logger.Info("authenticated with stored token", "username", handle.identity.Username)
	return handle, nil
}

// Begin obtains a request token and returns the pending state together
// with the URL the user must visit. An empty callbackURL falls back to the
// configured one, then to out-of-band.
func (m *SessionManager) Begin(ctx context.Context, callbackURL string) (models.PendingAuth, string, error) {
	if callbackURL == "" {
		callbackURL = m.callbackURL
	}
	if callbackURL == "" {
		callbackURL = discogs.OutOfBand
	}

	m.state = StateRequestingToken
	auth := m.upstream.Authorizer(m.creds.ConsumerKey, m.creds.ConsumerSecret)

	rt, err := auth.RequestToken(ctx, callbackURL)
	if err != nil {
		m.state = StateUnauthenticated
		return models.PendingAuth{}, "", fmt.Errorf("%w: failed to get authorization URL: %w", shared.ErrConnection, err)
	}

	pending := models.PendingAuth{
		ConsumerKey:        m.creds.ConsumerKey,
		ConsumerSecret:     m.creds.ConsumerSecret,
		RequestToken:       rt.Token,
		RequestTokenSecret: rt.Secret,
	}

	m.state = StateAwaitingAuthorization
	m.logger.Debug("request token issued", "callback", callbackURL)
	return pending, rt.AuthorizeURL, nil
}

// Complete exchanges the verifier delivered by the callback for an access
// token pair, persists it when enabled, and returns a ready handle.
func (m *SessionManager) Complete(ctx context.Context, pending models.PendingAuth, token, verifier string) (*AuthenticatedHandle, error) {
	if token == "" || verifier == "" {
		return nil, fmt.Errorf("%w: callback is missing oauth_token or oauth_verifier", shared.ErrAuthState)
	}
	if pending.IsZero() || pending.RequestToken == "" || pending.RequestTokenSecret == "" {
		return nil, fmt.Errorf("%w: no authorization in progress", shared.ErrAuthState)
	}
	if token != pending.RequestToken {
		return nil, fmt.Errorf("%w: callback token does not match the pending request token", shared.ErrAuthState)
	}

	creds := m.creds
	if pending.ConsumerKey != "" && pending.ConsumerSecret != "" {
		creds.ConsumerKey = pending.ConsumerKey
		creds.ConsumerSecret = pending.ConsumerSecret
	}

	m.state = StateExchangingToken
	auth := m.upstream.Authorizer(creds.ConsumerKey, creds.ConsumerSecret)

	at, err := auth.AccessToken(ctx, pending.RequestToken, pending.RequestTokenSecret, verifier)
	if err != nil {
		m.state = StateUnauthenticated
		return nil, fmt.Errorf("%w: OAuth authentication failed: %w", shared.ErrConnection, err)
	}

	creds.OAuthToken = at.Token
	creds.OAuthTokenSecret = at.Secret

	if m.persist && m.store != nil {
		if err := m.store.Save(creds); err != nil {
			m.logger.Error("failed to persist OAuth tokens", "error", err)
		}
	}

	handle, err := m.buildHandle(ctx, creds)
	if err != nil {
		m.state = StateUnauthenticated
		return nil, err
	}

	m.creds = creds
	m.handle = handle
	m.state = StateAuthenticated
	m.logger.Info("authorization complete", "username", handle.identity.Username)
	return handle, nil
}

// Reset drops the handle and token pair and returns to Unauthenticated.
func (m *SessionManager) Reset() {
	m.creds = m.creds.WithoutToken()
	m.handle = nil
	m.state = StateUnauthenticated
}

func (m *SessionManager) buildHandle(ctx context.Context, creds models.Credentials) (*AuthenticatedHandle, error) {
	handle := &AuthenticatedHandle{catalog: m.upstream.Catalog(creds), creds: creds}
	if err := handle.Refresh(ctx); err != nil {
		return nil, err
	}
	return handle, nil
}

// IsAuthorizationRequired reports whether err means the caller must run
// the handshake.
func IsAuthorizationRequired(err error) bool {
	return errors.Is(err, shared.ErrAuthorizationRequired)
}
