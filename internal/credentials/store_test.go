package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	logger := shared.NewLogger(os.Stderr)

	t.Run("Load missing file", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), ".env"), WithLogger(logger))
		creds, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, models.Credentials{}, creds)
	})

	t.Run("Save and Load round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		store := NewStore(path, WithLogger(logger))

		want := models.Credentials{
			ConsumerKey:      "ck",
			ConsumerSecret:   "cs",
			OAuthToken:       "tok",
			OAuthTokenSecret: "tok secret with spaces",
		}
		require.NoError(t, store.Save(want))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, want, got)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
	})

	t.Run("Save preserves unrelated keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("OTHER_SETTING=keep\nDISCOGS_CONSUMER_KEY=old\n"), 0o600))

		store := NewStore(path, WithLogger(logger))
		require.NoError(t, store.Save(models.Credentials{ConsumerKey: "new"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "OTHER_SETTING")

		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "new", got.ConsumerKey)
	})

	t.Run("SaveToken and Clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		store := NewStore(path, WithLogger(logger))
		require.NoError(t, store.Save(models.Credentials{ConsumerKey: "ck", ConsumerSecret: "cs"}))
		require.NoError(t, store.SaveToken("tok", "sec"))

		got, err := store.Load()
		require.NoError(t, err)
		assert.True(t, got.HasToken())
		assert.Equal(t, "ck", got.ConsumerKey)

		require.NoError(t, store.Clear())
		got, err = store.Load()
		require.NoError(t, err)
		assert.False(t, got.HasToken())
		assert.True(t, got.HasConsumer())
	})

	t.Run("SaveToken requires both values", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), ".env"), WithLogger(logger))
		assert.ErrorIs(t, store.SaveToken("tok", ""), shared.ErrValidation)
	})

	t.Run("ReadOnly suppresses writes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		store := NewStore(path, ReadOnly(true), WithLogger(logger))
		assert.True(t, store.IsReadOnly())

		require.NoError(t, store.Save(models.Credentials{ConsumerKey: "ck", ConsumerSecret: "cs"}))
		require.NoError(t, store.SaveToken("tok", "sec"))

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "read-only store must not create the file")
	})

	t.Run("Load of unreadable path", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir, WithLogger(logger))
		_, err := store.Load()
		assert.ErrorIs(t, err, shared.ErrCredentialsUnavailable)
	})
}
