package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	tu "github.com/desertthunder/discx/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionAccessor(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		a := NewCollectionAccessor(nil, quiet)

		folders, err := a.ListFolders(ctx)
		require.NoError(t, err)
		assert.Empty(t, folders)
		assert.NotNil(t, folders)

		_, err = a.ListReleases(ctx, 0)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = a.GetRelease(ctx, 1)
		assert.ErrorIs(t, err, shared.ErrConnection)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

		assert.Equal(t, UnknownFolder, a.FolderName(ctx, 0))
	})

	t.Run("ListFolders", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		fake.AddFolder(tu.FakeFolder{ID: 0, Name: "All"})
		fake.AddFolder(tu.FakeFolder{ID: 1, Name: "Uncategorized", Releases: []tu.FakeRelease{{ID: 9, Title: "x"}}})
		a := newAccessor(t, fake)

		folders, err := a.ListFolders(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Folder{{ID: 0, Name: "All"}, {ID: 1, Name: "Uncategorized", Count: 1}}, folders)
		assert.Equal(t, "Uncategorized", a.FolderName(ctx, 1))
		assert.Equal(t, UnknownFolder, a.FolderName(ctx, 99))
	})

	t.Run("ListReleases positional index", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		fake.AddFolder(tu.FakeFolder{ID: 5, Name: "Wall", Releases: []tu.FakeRelease{
			{ID: 300, Title: "Third", Year: 1999, Artists: []string{"C"}, Labels: []string{"Warp", "Other"}, Formats: []string{"Vinyl"}, DateAdded: "2017-06-22T16:43:48-07:00"},
			{ID: 100, Title: "First", Year: 2001},
			{ID: 200, Title: "Second", Year: 1987, Artists: []string{}},
		}})
		a := newAccessor(t, fake)

		releases, err := a.ListReleases(ctx, 5)
		require.NoError(t, err)
		require.Len(t, releases, 3)

		assert.Equal(t, 300, releases[0].ID)
		assert.Equal(t, 100, releases[1].ID)
		assert.Equal(t, 200, releases[2].ID)

		r := releases[0]
		require.NotNil(t, r.Artist)
		assert.Equal(t, "C", *r.Artist)
		assert.Equal(t, "Warp", r.LabelName())
		assert.Equal(t, "Vinyl", r.FormatName())
		assert.Equal(t, "https://www.discogs.com/release/300", r.URL)
		require.NotNil(t, r.DateAdded)
		assert.Equal(t, 2017, r.DateAdded.Year())

		assert.Nil(t, releases[1].Artist)
		assert.Nil(t, releases[1].Label)
	})

	t.Run("ListReleases unknown folder", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		fake.AddFolder(tu.FakeFolder{ID: 0, Name: "All"})
		a := newAccessor(t, fake)

		_, err := a.ListReleases(ctx, 42)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, err.Error(), "folder with ID 42")
	})

	t.Run("GetRelease", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		fake.AddRelease(tu.FakeRelease{ID: 249504, Title: "Never Gonna Give You Up", Year: 1987,
			Artists: []string{"Rick Astley", "Someone Else"}, Formats: []string{"Vinyl", "CD"},
			URI: "https://www.discogs.com/release/249504-Rick-Astley-Never-Gonna-Give-You-Up"})
		a := newAccessor(t, fake)

		r, err := a.GetRelease(ctx, 249504)
		require.NoError(t, err)
		assert.Equal(t, "Rick Astley", r.ArtistName())
		assert.Equal(t, "Vinyl", r.FormatName())
		assert.Equal(t, "https://www.discogs.com/release/249504", r.URL)
		assert.Equal(t, 1987, r.Year)
	})

	t.Run("GetRelease errors", func(t *testing.T) {
		fake := tu.NewDiscogsFake(t)
		fake.AddRelease(tu.FakeRelease{ID: 1, OmitTitle: true, Artists: []string{"A"}})
		fake.AddRelease(tu.FakeRelease{ID: 2, Title: "No artists key", OmitArtists: true})
		fake.AddRelease(tu.FakeRelease{ID: 3, Title: "Empty artists", Artists: []string{}})
		fake.FailRelease(4, http.StatusInternalServerError)
		a := newAccessor(t, fake)

		_, err := a.GetRelease(ctx, 1)
		assert.ErrorIs(t, err, shared.ErrDataShape)

		_, err = a.GetRelease(ctx, 2)
		assert.ErrorIs(t, err, shared.ErrDataShape)

		r, err := a.GetRelease(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, r.Artist)

		_, err = a.GetRelease(ctx, 4)
		assert.ErrorIs(t, err, shared.ErrConnection)

		_, err = a.GetRelease(ctx, 404)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, err, discogs.ErrNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		h := &AuthenticatedHandle{catalog: failingCatalog{err: errBoom}, identity: models.Identity{Username: "u"}}
		a := NewCollectionAccessor(h, quiet)

		_, err := a.ListFolders(ctx)
		assert.ErrorIs(t, err, shared.ErrConnection)
		assert.Equal(t, UnknownFolder, a.FolderName(ctx, 0))
	})
}

func TestCanonicalURL(t *testing.T) {
	tc := []struct {
		in, want string
	}{
		{in: "https://www.discogs.com/release/249504-Rick-Astley-Never-Gonna-Give-You-Up", want: "https://www.discogs.com/release/249504"},
		{in: "https://www.discogs.com/release/249504", want: "https://www.discogs.com/release/249504"},
		{in: "https://sandbox-api.example/release/7-x", want: "https://sandbox-api.example/release/7"},
		{in: "", want: ""},
	}
	for _, tt := range tc {
		assert.Equal(t, tt.want, CanonicalURL(tt.in), tt.in)
	}
}
