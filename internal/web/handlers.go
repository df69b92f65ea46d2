package web

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/services"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/desertthunder/discx/internal/tasks"
)

const historyLimit = 20

// pageData is handed to every page template.
type pageData struct {
	Title         string
	Flashes       []models.Flash
	Authenticated bool
	Username      string
	Body          any
}

func (a *App) render(w http.ResponseWriter, r *http.Request, sess *models.WebSession, name, title string, body any) {
	data := pageData{
		Title:         title,
		Flashes:       sess.PopFlashes(),
		Authenticated: sess.Data.Credentials.HasToken(),
		Username:      sess.Data.Username,
		Body:          body,
	}
	a.save(r, sess)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.pages[name].ExecuteTemplate(w, "layout.html", data); err != nil {
		a.logger.Error("failed to render page", "page", name, "error", err)
	}
}

func (a *App) redirect(w http.ResponseWriter, r *http.Request, sess *models.WebSession, to string) {
	a.save(r, sess)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, sess *models.WebSession, to, msg string, err error) {
	if err != nil {
		a.logger.Error(msg, "error", err)
	}
	sess.AddFlash(models.FlashError, msg)
	a.redirect(w, r, sess, to)
}

func (a *App) manager(creds models.Credentials, store services.CredentialStore) (*services.SessionManager, error) {
	return services.NewSessionManager(services.SessionConfig{
		Credentials: creds,
		CallbackURL: a.cfg.Discogs.CallbackURL,
		Upstream:    a.upstream,
		Store:       store,
		Persist:     a.persist,
		Logger:      a.logger,
	})
}

// accessor builds a collection accessor from the session's token pair.
func (a *App) accessor(r *http.Request, sess *models.WebSession) (*services.CollectionAccessor, error) {
	mgr, err := a.manager(sess.Data.Credentials, nil)
	if err != nil {
		return nil, err
	}
	handle, err := mgr.Authenticate(r.Context())
	if err != nil {
		return nil, err
	}
	return services.NewCollectionAccessor(handle, a.logger), nil
}

func (a *App) exporter(fetcher tasks.ReleaseFetcher) *tasks.Exporter {
	opts := []tasks.ExporterOption{tasks.WithClock(a.now)}
	if a.history != nil {
		opts = append(opts, tasks.WithRecorder(a.history))
	}
	if a.archiver != nil {
		opts = append(opts, tasks.WithArchiver(a.archiver))
	}
	return tasks.NewExporter(fetcher, a.templates, tasks.ExportOpts{
		Workers:           a.cfg.Export.Workers,
		RequestsPerSecond: a.cfg.Export.RequestsPerSecond,
	}, a.logger, opts...)
}

func (a *App) callbackURL(r *http.Request) string {
	if a.cfg.Discogs.CallbackURL != "" {
		return a.cfg.Discogs.CallbackURL
	}
	return "http://" + r.Host + "/callback"
}

// requireAuth redirects home when the session holds no token pair.
func (a *App) requireAuth(w http.ResponseWriter, r *http.Request, sess *models.WebSession) bool {
	if sess.Data.Credentials.HasToken() {
		return true
	}
	a.fail(w, r, sess, "/", "Please authenticate first", nil)
	return false
}

type indexBody struct {
	ConsumerKey string
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if sess.Data.Credentials.HasToken() {
		a.redirect(w, r, sess, "/folders")
		return
	}

	var stored models.Credentials
	if a.creds != nil {
		c, err := a.creds.Load()
		if err != nil {
			a.logger.Warn("could not read credentials file", "error", err)
		}
		stored = c
	}

	if stored.HasConsumer() && stored.HasToken() {
		mgr, err := a.manager(stored, nil)
		if err == nil {
			handle, authErr := mgr.Authenticate(r.Context())
			if authErr == nil {
				sess.Data.Credentials = handle.Credentials()
				sess.Data.Username = handle.Identity().Username
				sess.AddFlash(models.FlashSuccess, "Successfully authenticated using stored credentials!")
				a.redirect(w, r, sess, "/folders")
				return
			}
			err = authErr
		}
		a.logger.Warn("auto-authentication failed", "error", err)
	}

	a.render(w, r, sess, "index", "Sign in", indexBody{ConsumerKey: stored.ConsumerKey})
}

func (a *App) authenticate(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := r.ParseForm(); err != nil {
		a.fail(w, r, sess, "/", "Invalid form submission", err)
		return
	}

	key := strings.TrimSpace(r.PostForm.Get("consumer_key"))
	secret := strings.TrimSpace(r.PostForm.Get("consumer_secret"))
	if key == "" || secret == "" {
		a.fail(w, r, sess, "/", "Consumer key and secret are required", nil)
		return
	}

	mgr, err := a.manager(models.Credentials{ConsumerKey: key, ConsumerSecret: secret}, nil)
	if err != nil {
		a.fail(w, r, sess, "/", "An error occurred during authentication", err)
		return
	}

	pending, authURL, err := mgr.Begin(r.Context(), a.callbackURL(r))
	if err != nil {
		a.fail(w, r, sess, "/", "Could not start authorization with Discogs", err)
		return
	}

	sess.Data.Pending = pending
	a.redirect(w, r, sess, authURL)
}

func (a *App) callback(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	pending := sess.Data.Pending
	sess.Data.Pending = models.PendingAuth{}

	if pending.IsZero() {
		a.fail(w, r, sess, "/", "Authentication failed: no authorization in progress", nil)
		return
	}

	q := r.URL.Query()
	if q.Get("denied") != "" {
		a.fail(w, r, sess, "/", "Authorization was denied on Discogs", nil)
		return
	}

	mgr, err := a.manager(models.Credentials{ConsumerKey: pending.ConsumerKey, ConsumerSecret: pending.ConsumerSecret}, a.creds)
	if err != nil {
		a.fail(w, r, sess, "/", "Authentication failed", err)
		return
	}

	handle, err := mgr.Complete(r.Context(), pending, q.Get("oauth_token"), q.Get("oauth_verifier"))
	if err != nil {
		a.fail(w, r, sess, "/", "Authentication failed", err)
		return
	}

	sess.Data.Credentials = handle.Credentials()
	sess.Data.Username = handle.Identity().Username
	sess.AddFlash(models.FlashSuccess, "Successfully authenticated!")
	a.redirect(w, r, sess, "/folders")
}

type foldersBody struct {
	Folders []models.Folder
}

func (a *App) folders(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if !a.requireAuth(w, r, sess) {
		return
	}

	acc, err := a.accessor(r, sess)
	if err != nil {
		a.fail(w, r, sess, "/", "Failed to retrieve collection folders", err)
		return
	}

	folders, err := acc.ListFolders(r.Context())
	if err != nil {
		a.fail(w, r, sess, "/", "Failed to retrieve collection folders", err)
		return
	}
	if len(folders) == 0 {
		sess.AddFlash(models.FlashInfo, "No folders found in your collection")
	}

	a.render(w, r, sess, "folders", "Folders", foldersBody{Folders: folders})
}

func (a *App) chooseFolder(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := r.ParseForm(); err != nil {
		a.fail(w, r, sess, "/folders", "Invalid form submission", err)
		return
	}

	id, err := strconv.Atoi(r.PostForm.Get("folder_id"))
	if err != nil || id < 0 {
		a.fail(w, r, sess, "/folders", "Please choose a folder", nil)
		return
	}
	a.redirect(w, r, sess, fmt.Sprintf("/releases/%d", id))
}

type releasesBody struct {
	FolderID   int
	FolderName string
	Releases   []models.Release
	Sort       string
	Selected   map[int]bool
}

// sortReleases orders by year, newest first unless oldestFirst. Ties keep
// upstream order.
func sortReleases(releases []models.Release, oldestFirst bool) {
	slices.SortStableFunc(releases, func(x, y models.Release) int {
		if oldestFirst {
			return cmp.Compare(x.Year, y.Year)
		}
		return cmp.Compare(y.Year, x.Year)
	})
}

func (a *App) releases(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if !a.requireAuth(w, r, sess) {
		return
	}

	folderID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, sess, "/folders", "Unknown folder", nil)
		return
	}

	acc, err := a.accessor(r, sess)
	if err != nil {
		a.fail(w, r, sess, "/folders", "Failed to retrieve releases from folder", err)
		return
	}

	releases, err := acc.ReleasesInOrder(r.Context(), folderID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		a.fail(w, r, sess, "/folders", "Folder not found in your collection", err)
		return
	case err != nil:
		a.fail(w, r, sess, "/folders", "Failed to retrieve releases from folder", err)
		return
	case len(releases) == 0:
		sess.AddFlash(models.FlashInfo, "No releases found in this folder")
		a.redirect(w, r, sess, "/folders")
		return
	}

	order := r.URL.Query().Get("sort")
	sortReleases(releases, order == "oldest_first")

	selected := make(map[int]bool, len(sess.Data.SelectedIDs))
	if sess.Data.FolderID == folderID {
		for _, id := range sess.Data.SelectedIDs {
			selected[id] = true
		}
	}
	sess.Data.FolderID = folderID

	a.render(w, r, sess, "releases", "Releases", releasesBody{
		FolderID:   folderID,
		FolderName: acc.FolderName(r.Context(), folderID),
		Releases:   releases,
		Sort:       order,
		Selected:   selected,
	})
}

func (a *App) selectReleases(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	back := "/releases/" + r.PathValue("id")

	folderID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, sess, "/folders", "Unknown folder", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.fail(w, r, sess, back, "Invalid form submission", err)
		return
	}

	if r.PostForm.Has("sort_only") {
		order := r.PostForm.Get("sort_order")
		if order != "oldest_first" {
			order = "newest_first"
		}
		a.redirect(w, r, sess, back+"?sort="+order)
		return
	}

	var ids []int
	for _, v := range r.PostForm["release_ids"] {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		a.fail(w, r, sess, back, "No releases selected", nil)
		return
	}

	sess.Data.FolderID = folderID
	sess.Data.SelectedIDs = ids
	sess.Data.Preview = nil
	sess.Data.Skipped = nil
	a.redirect(w, r, sess, "/preview")
}

type previewBody struct {
	Records []models.ExtractedRecord
	Header  []string
	Rows    [][]string
	Skipped []int
	Back    string
}

func (a *App) backToFolder(sess *models.WebSession) string {
	if sess.Data.FolderID > 0 {
		return fmt.Sprintf("/releases/%d", sess.Data.FolderID)
	}
	return "/folders"
}

func (a *App) preview(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if !a.requireAuth(w, r, sess) {
		return
	}
	back := a.backToFolder(sess)

	if len(sess.Data.SelectedIDs) == 0 {
		a.fail(w, r, sess, back, "No releases selected", nil)
		return
	}

	if sess.Data.Preview == nil {
		acc, err := a.accessor(r, sess)
		if err != nil {
			a.fail(w, r, sess, back, "Failed to generate CSV preview", err)
			return
		}

		result, err := a.exporter(acc).Preview(r.Context(), sess.Data.SelectedIDs, nil)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			a.fail(w, r, sess, back, "No valid releases selected", err)
			return
		case err != nil:
			a.fail(w, r, sess, back, "Failed to generate CSV preview", err)
			return
		}

		sess.Data.Preview = result.Records
		sess.Data.Skipped = result.Skipped
		if n := len(result.Skipped); n > 0 {
			sess.AddFlash(models.FlashInfo, fmt.Sprintf("Skipped %d release(s) that could not be loaded", n))
		}
	}

	tmpl, err := a.templates.Current()
	if err == nil {
		err = tmpl.Validate()
	}
	if err != nil {
		a.fail(w, r, sess, back, "The label template is invalid", err)
		return
	}

	rows := tmpl.Render(sess.Data.Preview)
	a.render(w, r, sess, "preview", "Preview", previewBody{
		Records: sess.Data.Preview,
		Header:  rows[0],
		Rows:    rows[1:],
		Skipped: sess.Data.Skipped,
		Back:    back,
	})
}

// applyEdits overwrites preview fields with values posted from the
// editable preview (artist_N, title_N, url_N, 1-based).
func applyEdits(records []models.ExtractedRecord, form map[string][]string) []models.ExtractedRecord {
	out := slices.Clone(records)
	for i := range out {
		n := strconv.Itoa(i + 1)
		if v, ok := form["artist_"+n]; ok && len(v) > 0 {
			out[i].Artist = v[0]
		}
		if v, ok := form["title_"+n]; ok && len(v) > 0 {
			out[i].Title = v[0]
		}
		if v, ok := form["url_"+n]; ok && len(v) > 0 {
			out[i].URL = v[0]
		}
	}
	return out
}

func (a *App) download(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if !a.requireAuth(w, r, sess) {
		return
	}
	if len(sess.Data.Preview) == 0 {
		a.fail(w, r, sess, "/folders", "No CSV preview available", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.fail(w, r, sess, "/preview", "Invalid form submission", err)
		return
	}

	records := applyEdits(sess.Data.Preview, r.PostForm)

	var folderID *int
	if sess.Data.FolderID > 0 {
		id := sess.Data.FolderID
		folderID = &id
	}

	result, err := a.exporter(nil).Publish(r.Context(), tasks.ExportRequest{
		Username:   sess.Data.Username,
		FolderID:   folderID,
		ReleaseIDs: sess.Data.SelectedIDs,
	}, &tasks.PreviewResult{Records: records, Skipped: sess.Data.Skipped}, nil)
	if err != nil {
		a.fail(w, r, sess, "/preview", "Failed to generate CSV file", err)
		return
	}

	a.save(r, sess)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if _, err := w.Write(result.Data); err != nil {
		a.logger.Warn("failed to send CSV", "error", err)
	}
}

type historyBody struct {
	Entries []*models.ExportEntry
}

func (a *App) exportHistory(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	var entries []*models.ExportEntry
	if a.history != nil {
		list, err := a.history.List(r.Context(), historyLimit)
		if err != nil {
			a.fail(w, r, sess, "/", "Failed to load export history", err)
			return
		}
		entries = list
	}

	a.render(w, r, sess, "history", "History", historyBody{Entries: entries})
}

func (a *App) clearSession(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	sess.Clear()
	sess.AddFlash(models.FlashInfo, "Session cleared")
	a.redirect(w, r, sess, "/")
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}
