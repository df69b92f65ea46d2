package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/models"
	tu "github.com/desertthunder/discx/internal/testing"
)

var quiet = log.New(io.Discard)

// memoryStore is an in-memory [CredentialStore].
type memoryStore struct {
	creds   models.Credentials
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryStore) Load() (models.Credentials, error) { return m.creds, m.loadErr }

func (m *memoryStore) Save(c models.Credentials) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.creds = c
	return nil
}

// stubPrompter returns a canned answer.
type stubPrompter struct {
	answer string
	err    error
	asked  int
}

func (s *stubPrompter) Prompt(string) (string, error) {
	s.asked++
	return s.answer, s.err
}

// failingUpstream fails every network call.
type failingUpstream struct{ err error }

func (f failingUpstream) Authorizer(string, string) Authorizer { return failingAuthorizer(f) }
func (f failingUpstream) Catalog(models.Credentials) Catalog   { return failingCatalog(f) }

type failingAuthorizer struct{ err error }

func (f failingAuthorizer) RequestToken(context.Context, string) (discogs.RequestToken, error) {
	return discogs.RequestToken{}, f.err
}

func (f failingAuthorizer) AccessToken(context.Context, string, string, string) (discogs.AccessToken, error) {
	return discogs.AccessToken{}, f.err
}

type failingCatalog struct{ err error }

func (f failingCatalog) Identity(context.Context) (*discogs.Identity, error) { return nil, f.err }
func (f failingCatalog) CollectionFolders(context.Context, string) ([]discogs.Folder, error) {
	return nil, f.err
}
func (f failingCatalog) FolderReleases(context.Context, string, int) ([]discogs.CollectionItem, error) {
	return nil, f.err
}
func (f failingCatalog) Release(context.Context, int) (*discogs.Release, error) { return nil, f.err }

func fakeUpstream(fake *tu.DiscogsFake) *DiscogsUpstream {
	return NewDiscogsUpstream(discogs.Config{
		APIURL:       fake.URL(),
		WebURL:       "https://www.discogs.com",
		AuthorizeURL: fake.URL() + "/oauth/authorize",
		UserAgent:    "discx-test/1.0",
	}, quiet)
}

func consumer() models.Credentials {
	return models.Credentials{ConsumerKey: "ck", ConsumerSecret: "cs"}
}

func authorized() models.Credentials {
	c := consumer()
	c.OAuthToken = tu.FakeAccessToken
	c.OAuthTokenSecret = tu.FakeAccessTokenSecret
	return c
}

func newAccessor(t *testing.T, fake *tu.DiscogsFake) *CollectionAccessor {
	t.Helper()
	m, err := NewSessionManager(SessionConfig{Credentials: authorized(), Upstream: fakeUpstream(fake), Logger: quiet})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h, err := m.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return NewCollectionAccessor(h, quiet)
}

var errBoom = errors.New("boom")
