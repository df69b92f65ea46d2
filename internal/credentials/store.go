// Package credentials persists the Discogs consumer and token pairs in a
// dotenv-format key-value file.
//
// The file is read and written directly; the process environment is never
// consulted or modified. Writes merge into the keys already present and
// replace the file atomically. Concurrent writers are last-writer-wins.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/joho/godotenv"
)

const (
	KeyConsumerKey      = "DISCOGS_CONSUMER_KEY"
	KeyConsumerSecret   = "DISCOGS_CONSUMER_SECRET"
	KeyOAuthToken       = "DISCOGS_OAUTH_TOKEN"
	KeyOAuthTokenSecret = "DISCOGS_OAUTH_TOKEN_SECRET"
)

// FilePerms restricts the credentials file to owner-only read/write.
const FilePerms = 0o600

// Store reads and writes the credentials file at a fixed path.
type Store struct {
	path     string
	readOnly bool
	logger   *log.Logger
}

// Option configures a [Store].
type Option func(*Store)

// ReadOnly turns every write into a logged no-op. Used when running under
// tests so a developer's real credentials file is never touched.
func ReadOnly(ro bool) Option {
	return func(s *Store) { s.readOnly = ro }
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = shared.WithLogger(s.logger, "component", "credentials")
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// IsReadOnly reports whether writes are suppressed.
func (s *Store) IsReadOnly() bool {
	return s.readOnly
}

// Load returns the credentials in the file. A missing file yields zero
// credentials and no error.
func (s *Store) Load() (models.Credentials, error) {
	values, err := s.read()
	if err != nil {
		return models.Credentials{}, err
	}

	return models.Credentials{
		ConsumerKey:      values[KeyConsumerKey],
		ConsumerSecret:   values[KeyConsumerSecret],
		OAuthToken:       values[KeyOAuthToken],
		OAuthTokenSecret: values[KeyOAuthTokenSecret],
	}, nil
}

// Save writes all non-empty fields of creds, preserving unrelated keys.
func (s *Store) Save(creds models.Credentials) error {
	updates := map[string]string{}
	for key, value := range map[string]string{
		KeyConsumerKey:      creds.ConsumerKey,
		KeyConsumerSecret:   creds.ConsumerSecret,
		KeyOAuthToken:       creds.OAuthToken,
		KeyOAuthTokenSecret: creds.OAuthTokenSecret,
	} {
		if value != "" {
			updates[key] = value
		}
	}
	return s.update(updates, nil)
}

// SaveToken writes only the token pair.
func (s *Store) SaveToken(token, secret string) error {
	if token == "" || secret == "" {
		return fmt.Errorf("%w: token and token secret are required", shared.ErrValidation)
	}
	return s.update(map[string]string{KeyOAuthToken: token, KeyOAuthTokenSecret: secret}, nil)
}

// Clear removes the token pair and keeps the consumer pair.
func (s *Store) Clear() error {
	return s.update(nil, []string{KeyOAuthToken, KeyOAuthTokenSecret})
}

func (s *Store) read() (map[string]string, error) {
	values, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", shared.ErrCredentialsUnavailable, s.path, err)
	}
	return values, nil
}

func (s *Store) update(set map[string]string, unset []string) error {
	if s.readOnly {
		s.logger.Debug("skipping credentials write in read-only mode", "path", s.path)
		return nil
	}

	values, err := s.read()
	if err != nil {
		return err
	}

	maps.Copy(values, set)
	for _, key := range unset {
		delete(values, key)
	}

	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("%w: encoding: %v", shared.ErrCredentialsUnavailable, err)
	}

	if err := writeAtomic(s.path, []byte(content+"\n")); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCredentialsUnavailable, err)
	}

	s.logger.Debug("credentials written", "path", s.path, "keys", len(values))
	return nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".env-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}

	success = true
	return nil
}
