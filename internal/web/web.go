// Package web serves the browser flow: sign in with Discogs, pick a
// folder, select releases, preview the label rows and download the CSV.
//
// # Routes
//
//	GET  /               → sign-in form, or straight to folders with stored credentials
//	POST /authenticate   → request token, redirect to Discogs
//	GET  /callback       → exchange verifier for the access token
//	GET  /folders        → collection folders
//	POST /folders        → redirect to the chosen folder
//	GET  /releases/{id}  → folder releases, newest year first (?sort=oldest_first)
//	POST /releases/{id}  → remember the selection, go to preview
//	GET  /preview        → fetch selected releases, show editable rows
//	POST /download       → CSV attachment, recorded in history
//	GET  /history        → recent exports
//	POST /clear-session  → forget everything but the flash
//	GET  /health         → "OK"
//
// # State Management
//
// Browser state lives in SQLite ([SessionStore]) keyed by a random id. The
// cookie only carries that id inside an HS256 token signed with the server
// secret. Handlers build a fresh services.SessionManager per request from
// the credentials kept in the session.
//
// Errors become a flash message and a redirect to a safe page; upstream
// details only reach the log.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/server"
	"github.com/desertthunder/discx/internal/services"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/desertthunder/discx/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "folders", "releases", "preview", "history"}

// ExportHistory records exports and lists recent ones.
// repositories.ExportRepository satisfies it.
type ExportHistory interface {
	tasks.ExportRecorder
	List(ctx context.Context, limit int) ([]*models.ExportEntry, error)
}

// Options wires an [App].
type Options struct {
	Config      *shared.Config
	Sessions    SessionStore
	History     ExportHistory // optional
	Upstream    services.Upstream
	Credentials services.CredentialStore // optional credential file
	// Persist controls whether a completed sign-in is written to Credentials.
	Persist   bool
	Templates tasks.TemplateProvider
	Archiver  tasks.Archiver // optional
	Logger    *log.Logger
	Now       func() time.Time
}

// App holds the web application's dependencies.
type App struct {
	cfg       *shared.Config
	sessions  SessionStore
	history   ExportHistory
	upstream  services.Upstream
	creds     services.CredentialStore
	persist   bool
	templates tasks.TemplateProvider
	archiver  tasks.Archiver
	logger    *log.Logger
	now       func() time.Time

	secret []byte
	ttl    time.Duration
	pages  map[string]*template.Template
}

// New validates opts and parses the page templates.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config is required", shared.ErrMissingConfig)
	}
	if opts.Sessions == nil || opts.Upstream == nil {
		return nil, fmt.Errorf("%w: session store and upstream are required", shared.ErrValidation)
	}
	if opts.Config.Server.SecretKey == "" {
		return nil, fmt.Errorf("%w: server.secret_key is required", shared.ErrMissingConfig)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	templates := opts.Templates
	if templates == nil {
		templates = tasks.StaticTemplate{}
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s page: %w", name, err)
		}
		pages[name] = t
	}

	return &App{
		cfg:       opts.Config,
		sessions:  opts.Sessions,
		history:   opts.History,
		upstream:  opts.Upstream,
		creds:     opts.Credentials,
		persist:   opts.Persist,
		templates: templates,
		archiver:  opts.Archiver,
		logger:    shared.WithLogger(logger, "component", "web"),
		now:       now,
		secret:    []byte(opts.Config.Server.SecretKey),
		ttl:       opts.Config.Server.SessionTTL(),
		pages:     pages,
	}, nil
}

// Handler returns the routed application with logging and recovery.
func (a *App) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.Recoverer(a.logger), server.RequestLogger(a.logger))

	page := func(method, path string, fn http.HandlerFunc) {
		r.Handle(method, path, a.withSession(fn))
	}

	page(http.MethodGet, "/{$}", a.index)
	page(http.MethodPost, "/authenticate", a.authenticate)
	page(http.MethodGet, "/callback", a.callback)
	page(http.MethodGet, "/folders", a.folders)
	page(http.MethodPost, "/folders", a.chooseFolder)
	page(http.MethodGet, "/releases/{id}", a.releases)
	page(http.MethodPost, "/releases/{id}", a.selectReleases)
	page(http.MethodGet, "/preview", a.preview)
	page(http.MethodPost, "/download", a.download)
	page(http.MethodGet, "/history", a.exportHistory)
	page(http.MethodPost, "/clear-session", a.clearSession)
	r.HandleFunc(http.MethodGet, "/health", health)

	return r
}

// Server wraps [App.Handler] in an http.Server bound to the configured address.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"year": func(y int) string {
		if y <= 0 {
			return ""
		}
		return fmt.Sprint(y)
	},
	"yearPtr": func(y *int) string {
		if y == nil {
			return ""
		}
		return fmt.Sprint(*y)
	},
}
