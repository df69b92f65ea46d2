package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Tokens issued by [DiscogsFake].
const (
	FakeRequestToken       = "req-token"
	FakeRequestTokenSecret = "req-secret"
	FakeAccessToken        = "access-token"
	FakeAccessTokenSecret  = "access-secret"
	FakeVerifier           = "verifier-123"
	FakeUsername           = "crate_digger"
)

// FakeRelease describes a release served by [DiscogsFake].
type FakeRelease struct {
	ID        int
	Title     string
	Year      int
	Artists   []string
	Labels    []string
	Formats   []string
	URI       string
	DateAdded string

	OmitTitle   bool
	OmitArtists bool
}

// FakeFolder is a collection folder and its releases in upstream order.
type FakeFolder struct {
	ID       int
	Name     string
	Releases []FakeRelease
}

// DiscogsFake is an in-process stand-in for api.discogs.com. It accepts
// any OAuth signature but checks that the expected tokens are presented.
type DiscogsFake struct {
	Server *httptest.Server

	mu                 sync.Mutex
	Username           string
	Folders            []FakeFolder
	Releases           map[int]FakeRelease
	FailReleases       map[int]int
	RequestTokenStatus int
	userAgents         []string
	calls              map[string]int
}

// NewDiscogsFake starts a fake server that is closed when the test ends.
func NewDiscogsFake(t *testing.T) *DiscogsFake {
	t.Helper()

	f := &DiscogsFake{
		Username:     FakeUsername,
		Releases:     map[int]FakeRelease{},
		FailReleases: map[int]int{},
		calls:        map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/request_token", f.requestToken)
	mux.HandleFunc("POST /oauth/access_token", f.accessToken)
	mux.HandleFunc("GET /oauth/identity", f.identity)
	mux.HandleFunc("GET /users/{username}/collection/folders", f.folders)
	mux.HandleFunc("GET /users/{username}/collection/folders/{id}/releases", f.folderReleases)
	mux.HandleFunc("GET /releases/{id}", f.release)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base API URL.
func (f *DiscogsFake) URL() string {
	return f.Server.URL
}

// AddFolder registers a folder and makes each of its releases fetchable by id.
func (f *DiscogsFake) AddFolder(folder FakeFolder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Folders = append(f.Folders, folder)
	for _, r := range folder.Releases {
		f.Releases[r.ID] = r
	}
}

// AddRelease registers a release that belongs to no folder.
func (f *DiscogsFake) AddRelease(r FakeRelease) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Releases[r.ID] = r
}

// FailRelease makes GET /releases/{id} answer with status.
func (f *DiscogsFake) FailRelease(id, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailReleases[id] = status
}

// Calls returns how many times a route ("METHOD /path" pattern) was hit.
func (f *DiscogsFake) Calls(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pattern]
}

// SawUserAgent reports whether any request carried ua.
func (f *DiscogsFake) SawUserAgent(ua string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.userAgents, ua)
}

// SetRequestTokenStatus makes the request token endpoint fail with status.
func (f *DiscogsFake) SetRequestTokenStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RequestTokenStatus = status
}

func (f *DiscogsFake) record(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := next.Handler(r)
		f.mu.Lock()
		f.calls[pattern]++
		f.userAgents = append(f.userAgents, r.UserAgent())
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func oauthParam(r *http.Request, name string) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "OAuth ") {
		return ""
	}
	for _, part := range strings.Split(strings.TrimPrefix(auth, "OAuth "), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (f *DiscogsFake) requestToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.RequestTokenStatus
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, "Invalid consumer.", status)
		return
	}
	if oauthParam(r, "oauth_consumer_key") == "" || oauthParam(r, "oauth_callback") == "" {
		http.Error(w, "Invalid consumer.", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s&oauth_callback_confirmed=true", FakeRequestToken, FakeRequestTokenSecret)
}

func (f *DiscogsFake) accessToken(w http.ResponseWriter, r *http.Request) {
	if oauthParam(r, "oauth_token") != FakeRequestToken || oauthParam(r, "oauth_verifier") != FakeVerifier {
		http.Error(w, "Invalid verifier.", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s", FakeAccessToken, FakeAccessTokenSecret)
}

func (f *DiscogsFake) authorized(w http.ResponseWriter, r *http.Request) bool {
	if oauthParam(r, "oauth_token") != FakeAccessToken {
		writeMessage(w, http.StatusUnauthorized, "You must authenticate to access this resource.")
		return false
	}
	return true
}

func (f *DiscogsFake) identity(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": f.Username})
}

func (f *DiscogsFake) folders(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.PathValue("username") != f.Username {
		writeMessage(w, http.StatusNotFound, "User does not exist or may have been deleted.")
		return
	}

	folders := make([]map[string]any, 0, len(f.Folders))
	for _, folder := range f.Folders {
		folders = append(folders, map[string]any{"id": folder.ID, "name": folder.Name, "count": len(folder.Releases)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (f *DiscogsFake) folderReleases(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id, _ := strconv.Atoi(r.PathValue("id"))
	var folder *FakeFolder
	for i := range f.Folders {
		if f.Folders[i].ID == id {
			folder = &f.Folders[i]
		}
	}
	if folder == nil {
		writeMessage(w, http.StatusNotFound, "Folder not found.")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	total := len(folder.Releases)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	items := make([]map[string]any, 0, end-start)
	for _, rel := range folder.Releases[start:end] {
		bi := releaseJSON(rel)
		delete(bi, "uri")
		items = append(items, map[string]any{
			"id":                rel.ID,
			"instance_id":       rel.ID * 10,
			"folder_id":         folder.ID,
			"date_added":        rel.DateAdded,
			"basic_information": bi,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pagination": map[string]any{"page": page, "pages": pages, "per_page": perPage, "items": total},
		"releases":   items,
	})
}

func (f *DiscogsFake) release(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, _ := strconv.Atoi(r.PathValue("id"))
	if status, ok := f.FailReleases[id]; ok {
		writeMessage(w, status, "Release unavailable.")
		return
	}
	rel, ok := f.Releases[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Release not found.")
		return
	}
	writeJSON(w, http.StatusOK, releaseJSON(rel))
}

func releaseJSON(rel FakeRelease) map[string]any {
	out := map[string]any{"id": rel.ID, "year": rel.Year}
	if !rel.OmitTitle {
		out["title"] = rel.Title
	}
	if !rel.OmitArtists {
		out["artists"] = named(rel.Artists)
	}
	out["labels"] = named(rel.Labels)
	out["formats"] = named(rel.Formats)
	if rel.URI != "" {
		out["uri"] = rel.URI
	}
	return out
}

func named(names []string) []map[string]any {
	out := make([]map[string]any, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]any{"name": n})
	}
	return out
}
