package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	tu "github.com/desertthunder/discx/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager(t *testing.T) {
	ctx := context.Background()

	t.Run("requires consumer credentials", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		for _, creds := range []models.Credentials{
			{},
			{ConsumerKey: "ck"},
			{ConsumerSecret: "cs"},
			{ConsumerKey: "  ", ConsumerSecret: "\t"},
			{ConsumerKey: "ck", ConsumerSecret: " \n"},
		} {
			_, err := NewSessionManager(SessionConfig{Credentials: creds, Upstream: fakeUpstream(fake)})
			assert.ErrorIs(t, err, shared.ErrValidation)
		}
		assert.Zero(t, fake.Calls("POST /oauth/request_token"), "no network call on validation failure")
	})

	t.Run("Authenticate without tokens requires authorization", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Store: &memoryStore{}, Logger: quiet})
		require.NoError(t, err)

		_, err = m.Authenticate(ctx)
		assert.ErrorIs(t, err, shared.ErrAuthorizationRequired)
		assert.True(t, IsAuthorizationRequired(err))
		assert.Equal(t, StateUnauthenticated, m.State())
	})

	t.Run("Authenticate with stored tokens is idempotent", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		store := &memoryStore{creds: authorized()}
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Store: store, Logger: quiet})
		require.NoError(t, err)

		h1, err := m.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, StateAuthenticated, m.State())
		assert.Equal(t, tu.FakeUsername, h1.Identity().Username)

		h2, err := m.Authenticate(ctx)
		require.NoError(t, err)
		assert.Same(t, h1, h2)
		assert.Equal(t, 1, fake.Calls("GET /oauth/identity"))
		assert.Zero(t, fake.Calls("POST /oauth/request_token"))
	})

	t.Run("Authenticate with rejected tokens", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		creds := consumer()
		creds.OAuthToken, creds.OAuthTokenSecret = "revoked", "revoked"
		m, err := NewSessionManager(SessionConfig{Credentials: creds, Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)

		_, err = m.Authenticate(ctx)
		assert.ErrorIs(t, err, shared.ErrConnection)
		assert.Equal(t, StateUnauthenticated, m.State())
	})

	t.Run("Begin and Complete", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		store := &memoryStore{}
		m, err := NewSessionManager(SessionConfig{
			Credentials: consumer(),
			CallbackURL: "http://127.0.0.1:5000/callback",
			Upstream:    fakeUpstream(fake),
			Store:       store,
			Persist:     true,
			Logger:      quiet,
		})
		require.NoError(t, err)

		pending, authURL, err := m.Begin(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingAuthorization, m.State())
		assert.Contains(t, authURL, "oauth_token="+tu.FakeRequestToken)
		assert.Equal(t, tu.FakeRequestTokenSecret, pending.RequestTokenSecret)
		assert.Equal(t, "ck", pending.ConsumerKey)

		h, err := m.Complete(ctx, pending, tu.FakeRequestToken, tu.FakeVerifier)
		require.NoError(t, err)
		assert.Equal(t, StateAuthenticated, m.State())
		assert.Equal(t, tu.FakeAccessToken, h.Credentials().OAuthToken)
		assert.Equal(t, 1, store.saves)
		assert.Equal(t, tu.FakeAccessTokenSecret, store.creds.OAuthTokenSecret)
	})

	t.Run("Complete without persistence", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		store := &memoryStore{}
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Store: store, Persist: false, Logger: quiet})
		require.NoError(t, err)

		pending, _, err := m.Begin(ctx, "")
		require.NoError(t, err)
		_, err = m.Complete(ctx, pending, tu.FakeRequestToken, tu.FakeVerifier)
		require.NoError(t, err)
		assert.Zero(t, store.saves)
	})

	t.Run("Complete tolerates a failing store", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		store := &memoryStore{saveErr: errBoom}
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Store: store, Persist: true, Logger: quiet})
		require.NoError(t, err)

		pending, _, err := m.Begin(ctx, "")
		require.NoError(t, err)
		_, err = m.Complete(ctx, pending, tu.FakeRequestToken, tu.FakeVerifier)
		require.NoError(t, err)
		assert.Equal(t, 1, store.saves)
	})

	t.Run("Complete rejects bad callback state", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)

		pending := models.PendingAuth{ConsumerKey: "ck", ConsumerSecret: "cs", RequestToken: tu.FakeRequestToken, RequestTokenSecret: tu.FakeRequestTokenSecret}

		tc := []struct {
			name     string
			pending  models.PendingAuth
			token    string
			verifier string
		}{
			{name: "missing verifier", pending: pending, token: tu.FakeRequestToken},
			{name: "missing token", pending: pending, verifier: tu.FakeVerifier},
			{name: "nothing pending", token: tu.FakeRequestToken, verifier: tu.FakeVerifier},
			{name: "token mismatch", pending: pending, token: "other", verifier: tu.FakeVerifier},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				_, err := m.Complete(ctx, tt.pending, tt.token, tt.verifier)
				assert.ErrorIs(t, err, shared.ErrAuthState)
			})
		}
		assert.Zero(t, fake.Calls("POST /oauth/access_token"))
	})

	t.Run("Complete with wrong verifier", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)

		pending, _, err := m.Begin(ctx, "")
		require.NoError(t, err)
		_, err = m.Complete(ctx, pending, tu.FakeRequestToken, "guess")
		assert.ErrorIs(t, err, shared.ErrConnection)
		assert.Equal(t, StateUnauthenticated, m.State())
	})

	t.Run("Begin failure", func(t *testing.T) {
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: failingUpstream{err: errBoom}, Logger: quiet})
		require.NoError(t, err)

		_, _, err = m.Begin(ctx, "oob")
		assert.ErrorIs(t, err, shared.ErrConnection)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, StateUnauthenticated, m.State())
	})

	t.Run("Reset", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: authorized(), Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)
		_, err = m.Authenticate(ctx)
		require.NoError(t, err)

		m.Reset()
		assert.Equal(t, StateUnauthenticated, m.State())
		assert.False(t, m.Credentials().HasToken())
		_, err = m.Authenticate(ctx)
		assert.ErrorIs(t, err, shared.ErrAuthorizationRequired)
	})
}

func TestConsoleFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("out of band", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)

		var out bytes.Buffer
		var opened string
		prompter := &stubPrompter{answer: "  " + tu.FakeVerifier + "\n"}

		h, err := m.ConsoleFlow(ctx, &out, PromptVerifier{Prompter: prompter}, func(u string) error {
			opened = u
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, tu.FakeUsername, h.Identity().Username)
		assert.Contains(t, out.String(), "oauth_token="+tu.FakeRequestToken)
		assert.Contains(t, opened, "/oauth/authorize")
		assert.Equal(t, 1, prompter.asked)
	})

	t.Run("stored token skips the prompt", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: authorized(), Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)

		prompter := &stubPrompter{}
		_, err = m.ConsoleFlow(ctx, &bytes.Buffer{}, PromptVerifier{Prompter: prompter}, nil)
		require.NoError(t, err)
		assert.Zero(t, prompter.asked)
	})

	t.Run("empty verifier", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		m, err := NewSessionManager(SessionConfig{Credentials: consumer(), Upstream: fakeUpstream(fake), Logger: quiet})
		require.NoError(t, err)

		_, err = m.ConsoleFlow(ctx, &bytes.Buffer{}, PromptVerifier{Prompter: &stubPrompter{answer: "\n"}}, nil)
		assert.ErrorIs(t, err, shared.ErrAuthState)
		assert.Equal(t, StateUnauthenticated, m.State())
	})
}

func TestAuthState(t *testing.T) {
	assert.Equal(t, "awaiting-authorization", StateAwaitingAuthorization.String())
	assert.Equal(t, "AuthState(42)", AuthState(42).String())
}
