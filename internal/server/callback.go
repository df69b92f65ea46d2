package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/shared"
)

// CallbackResult contains what the provider handed back on the callback.
type CallbackResult struct {
	Token    string
	Verifier string
	err      error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler captures the OAuth 1.0a callback (oauth_token and
// oauth_verifier). Implements the Handler interface for registration with
// a Router.
type CallbackHandler struct {
	path        string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler serving GET path.
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:       path,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET " + h.path}
}

// ServeHTTP handles the callback request. Only the first callback counts.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if denied := q.Get("denied"); denied != "" {
		h.Send(CallbackResult{err: fmt.Errorf("%w: authorization was denied", shared.ErrAuthState)})
		http.Error(w, "Authorization denied", http.StatusBadRequest)
		return
	}

	token, verifier := q.Get("oauth_token"), q.Get("oauth_verifier")
	if token == "" || verifier == "" {
		h.Send(CallbackResult{err: fmt.Errorf("%w: callback is missing oauth_token or oauth_verifier", shared.ErrAuthState)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(CallbackResult{Token: token, Verifier: verifier})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #333; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Discogs Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving callback completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

// CallbackServer is a temporary loopback server that receives the Discogs
// redirect for terminal logins. It satisfies services.VerifierSource.
type CallbackServer struct {
	base     *url.URL
	handler  *CallbackHandler
	srv      *http.Server
	listener net.Listener
	logger   *log.Logger
}

// NewCallbackServer prepares a server for callbackURL, which must be an
// http URL with a host and port. Port 0 picks a free port on Start.
func NewCallbackServer(callbackURL string, logger *log.Logger) (*CallbackServer, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: callback url: %v", shared.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: callback url must be http://host:port/path, got %q", shared.ErrInvalidConfig, callbackURL)
	}
	if u.Path == "" {
		u.Path = "/callback"
	}
	if logger == nil {
		logger = log.Default()
	}

	handler := NewCallbackHandler(u.Path)
	router := NewBasicRouter()
	router.Use(Recoverer(logger))
	router.Handler(handler)

	return &CallbackServer{
		base:    u,
		handler: handler,
		srv:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		logger:  shared.WithLogger(logger, "component", "callback"),
	}, nil
}

// Start begins listening in the background.
func (s *CallbackServer) Start() error {
	l, err := net.Listen("tcp", s.base.Host)
	if err != nil {
		return fmt.Errorf("%w: cannot listen for callback on %s: %v", shared.ErrConnection, s.base.Host, err)
	}
	s.listener = l
	s.base.Host = l.Addr().String()

	go func() {
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server stopped", "error", err)
		}
	}()
	s.logger.Debug("listening for callback", "addr", s.base.Host)
	return nil
}

// CallbackURL is the URL Discogs redirects to after authorization.
func (s *CallbackServer) CallbackURL() string {
	return s.base.String()
}

// Await blocks until the callback arrives or ctx ends.
func (s *CallbackServer) Await(ctx context.Context, _ string) (string, string, error) {
	select {
	case res, ok := <-s.handler.Result():
		if !ok {
			return "", "", fmt.Errorf("%w: callback already consumed", shared.ErrAuthState)
		}
		if err := res.Error(); err != nil {
			return "", "", err
		}
		return res.Token, res.Verifier, nil
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
