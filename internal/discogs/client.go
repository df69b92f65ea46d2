// Package discogs is a small OAuth 1.0a client for the parts of the Discogs
// API that discx uses: the authorization handshake, identity, collection
// folders, folder releases and single releases.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dghubble/oauth1"
)

const (
	DefaultAPIURL       = "https://api.discogs.com"
	DefaultWebURL       = "https://www.discogs.com"
	DefaultAuthorizeURL = "https://www.discogs.com/oauth/authorize"
	DefaultUserAgent    = "discx/0.1"

	// MaxPerPage is the largest page size Discogs accepts.
	MaxPerPage = 100

	defaultTimeout = 30 * time.Second
)

// Config describes the Discogs endpoints and HTTP behavior.
type Config struct {
	APIURL       string
	WebURL       string
	AuthorizeURL string
	UserAgent    string
	PerPage      int
	Timeout      time.Duration
	// Transport overrides the base round tripper; tests point it at httptest.
	Transport http.RoundTripper
}

func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.WebURL == "" {
		c.WebURL = DefaultWebURL
	}
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.PerPage <= 0 || c.PerPage > MaxPerPage {
		c.PerPage = MaxPerPage
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.WebURL = strings.TrimRight(c.WebURL, "/")
	return c
}

func (c Config) endpoint() oauth1.Endpoint {
	return oauth1.Endpoint{
		RequestTokenURL: c.APIURL + "/oauth/request_token",
		AuthorizeURL:    c.AuthorizeURL,
		AccessTokenURL:  c.APIURL + "/oauth/access_token",
	}
}

// baseHTTPClient returns an unsigned client that only adds the User-Agent.
func (c Config) baseHTTPClient() *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{base: c.Transport, userAgent: c.UserAgent},
		Timeout:   c.Timeout,
	}
}

// boundHTTPClient is baseHTTPClient with every request bound to ctx.
func (c Config) boundHTTPClient(ctx context.Context) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{base: c.Transport, userAgent: c.UserAgent, ctx: ctx},
		Timeout:   c.Timeout,
	}
}

// Client performs signed requests on behalf of one token pair.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient returns a client signing with the consumer and token pairs.
func NewClient(cfg Config, consumerKey, consumerSecret, token, tokenSecret string, logger *log.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	oauthCfg := oauth1.NewConfig(consumerKey, consumerSecret)
	oauthCfg.Endpoint = cfg.endpoint()

	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, cfg.baseHTTPClient())
	httpClient := oauthCfg.Client(ctx, oauth1.NewToken(token, tokenSecret))
	httpClient.Timeout = cfg.Timeout

	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// ReleaseURL returns the public page of a release.
func (c *Client) ReleaseURL(id int) string {
	return fmt.Sprintf("%s/release/%d", c.cfg.WebURL, id)
}

// doRequest performs a signed GET against the API and decodes the JSON body into result.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, result any) error {
	apiURL := c.cfg.APIURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("discogs request", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp, path)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response, path string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		apiErr.Message = eb.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// Identity returns the user the token pair belongs to.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.doRequest(ctx, "/oauth/identity", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// CollectionFolders lists the user's collection folders.
func (c *Client) CollectionFolders(ctx context.Context, username string) ([]Folder, error) {
	var list folderList
	path := fmt.Sprintf("/users/%s/collection/folders", url.PathEscape(username))
	if err := c.doRequest(ctx, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Folders, nil
}

// FolderReleasesPage fetches one page of a folder's releases.
func (c *Client) FolderReleasesPage(ctx context.Context, username string, folderID, page int) ([]CollectionItem, Pagination, error) {
	var body folderReleasesPage
	path := fmt.Sprintf("/users/%s/collection/folders/%d/releases", url.PathEscape(username), folderID)
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(c.cfg.PerPage)},
	}
	if err := c.doRequest(ctx, path, query, &body); err != nil {
		return nil, Pagination{}, err
	}

	for i := range body.Releases {
		bi := &body.Releases[i].BasicInformation
		if bi.ID == 0 {
			bi.ID = body.Releases[i].ID
		}
		bi.URI = c.ReleaseURL(bi.ID)
	}
	return body.Releases, body.Pagination, nil
}

// FolderReleases fetches every page of a folder's releases and returns
// them in upstream order.
func (c *Client) FolderReleases(ctx context.Context, username string, folderID int) ([]CollectionItem, error) {
	var items []CollectionItem
	for page := 1; ; page++ {
		batch, pagination, err := c.FolderReleasesPage(ctx, username, folderID, page)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)

		if pagination.Pages <= page || len(batch) == 0 {
			break
		}
	}
	return items, nil
}

// Release fetches a single release.
func (c *Client) Release(ctx context.Context, id int) (*Release, error) {
	var r Release
	if err := c.doRequest(ctx, fmt.Sprintf("/releases/%d", id), nil, &r); err != nil {
		return nil, err
	}
	if r.URI == "" && r.ID != 0 {
		r.URI = c.ReleaseURL(r.ID)
	}
	return &r, nil
}
