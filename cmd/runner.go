package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/archive"
	"github.com/desertthunder/discx/internal/credentials"
	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/formatter"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/repositories"
	"github.com/desertthunder/discx/internal/services"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/desertthunder/discx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	upstream   services.Upstream
	store      *credentials.Store
	persist    bool
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	openURL    func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Upstream   services.Upstream
	Store      *credentials.Store
	// Persist allows writes to the credentials file. main turns it off under tests.
	Persist bool
	Logger  *log.Logger
	Output  io.Writer
	Input   io.Reader
	OpenURL func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Upstream == nil {
		opts.Upstream = services.NewDiscogsUpstream(discogsConfig(opts.Config), opts.Logger)
	}
	if opts.Store == nil {
		opts.Store = credentials.NewStore(
			opts.Config.Discogs.CredentialsPath,
			credentials.ReadOnly(!opts.Persist),
			credentials.WithLogger(opts.Logger),
		)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		upstream:   opts.Upstream,
		store:      opts.Store,
		persist:    opts.Persist,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		openURL:    opts.OpenURL,
	}
}

func discogsConfig(cfg *shared.Config) discogs.Config {
	return discogs.Config{
		APIURL:       cfg.Discogs.APIURL,
		WebURL:       cfg.Discogs.WebURL,
		AuthorizeURL: cfg.Discogs.AuthorizeURL,
		UserAgent:    cfg.Discogs.UserAgent,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, foldersCommand, releasesCommand, releaseCommand,
		exportCommand, historyCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. to move output off stderr while a TUI runs.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) sessionManager() (*services.SessionManager, error) {
	creds, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if !creds.HasConsumer() {
		return nil, fmt.Errorf("%w: set %s and %s in %s or run 'discx auth login'",
			shared.ErrMissingCredentials, credentials.KeyConsumerKey, credentials.KeyConsumerSecret, r.store.Path())
	}
	return r.newSessionManager(creds, r.store)
}

func (r *Runner) newSessionManager(creds models.Credentials, store services.CredentialStore) (*services.SessionManager, error) {
	return services.NewSessionManager(services.SessionConfig{
		Credentials: creds,
		CallbackURL: r.config.Discogs.CallbackURL,
		Upstream:    r.upstream,
		Store:       store,
		Persist:     r.persist,
		Logger:      r.logger,
	})
}

// collection authenticates with the stored token pair.
func (r *Runner) collection(ctx context.Context) (*services.CollectionAccessor, error) {
	mgr, err := r.sessionManager()
	if err != nil {
		return nil, err
	}

	handle, err := mgr.Authenticate(ctx)
	if err != nil {
		if services.IsAuthorizationRequired(err) {
			return nil, fmt.Errorf("%w: run 'discx auth login' first", err)
		}
		return nil, err
	}
	return services.NewCollectionAccessor(handle, r.logger), nil
}

func (r *Runner) openDatabase(ctx context.Context) (*sql.DB, error) {
	db, err := shared.OpenDatabase(ctx, r.config.Database, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// templates returns the configured template source. A configured path that
// does not exist falls back to the bundled template.
func (r *Runner) templates(path string) *formatter.TemplateSource {
	if path == "" {
		path = r.config.Export.TemplatePath
	}
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("template file not found, using bundled template", "path", path)
			path = ""
		}
	}
	return formatter.NewTemplateSource(path, r.logger)
}

// exporter builds an [tasks.Exporter] that records history to db (when
// non-nil) and archives to S3 when configured.
func (r *Runner) exporter(ctx context.Context, fetcher tasks.ReleaseFetcher, templates tasks.TemplateProvider, db *sql.DB) *tasks.Exporter {
	options := []tasks.ExporterOption{}
	if db != nil {
		options = append(options, tasks.WithRecorder(repositories.NewExportRepository(db)))
	}
	if archiver := r.archiver(ctx); archiver != nil {
		options = append(options, tasks.WithArchiver(archiver))
	}

	opts := tasks.ExportOpts{
		Workers:           r.config.Export.Workers,
		RequestsPerSecond: r.config.Export.RequestsPerSecond,
	}
	return tasks.NewExporter(fetcher, templates, opts, r.logger, options...)
}

func (r *Runner) archiver(ctx context.Context) tasks.Archiver {
	if !r.config.Archive.Enabled() {
		return nil
	}
	a, err := archive.NewS3Archiver(ctx, r.config.Archive, r.logger)
	if err != nil {
		r.logger.Warn("export archive disabled", "error", err)
		return nil
	}
	return a
}

func jsonBytes(data any) ([]byte, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(b, '\n'), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
