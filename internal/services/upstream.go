package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/models"
)

// Authorizer runs the token handshake for one consumer pair.
type Authorizer interface {
	RequestToken(ctx context.Context, callbackURL string) (discogs.RequestToken, error)
	AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (discogs.AccessToken, error)
}

// Catalog reads from Discogs on behalf of one token pair.
type Catalog interface {
	Identity(ctx context.Context) (*discogs.Identity, error)
	CollectionFolders(ctx context.Context, username string) ([]discogs.Folder, error)
	FolderReleases(ctx context.Context, username string, folderID int) ([]discogs.CollectionItem, error)
	Release(ctx context.Context, id int) (*discogs.Release, error)
}

// Upstream builds authorizers and catalogs from credentials.
type Upstream interface {
	Authorizer(consumerKey, consumerSecret string) Authorizer
	Catalog(creds models.Credentials) Catalog
}

// DiscogsUpstream is the [Upstream] backed by the real Discogs API.
type DiscogsUpstream struct {
	Config discogs.Config
	Logger *log.Logger
}

// NewDiscogsUpstream returns an upstream for cfg.
func NewDiscogsUpstream(cfg discogs.Config, logger *log.Logger) *DiscogsUpstream {
	return &DiscogsUpstream{Config: cfg, Logger: logger}
}

func (u *DiscogsUpstream) Authorizer(consumerKey, consumerSecret string) Authorizer {
	return discogs.NewAuthorizer(u.Config, consumerKey, consumerSecret)
}

func (u *DiscogsUpstream) Catalog(creds models.Credentials) Catalog {
	return discogs.NewClient(u.Config, creds.ConsumerKey, creds.ConsumerSecret, creds.OAuthToken, creds.OAuthTokenSecret, u.Logger)
}
