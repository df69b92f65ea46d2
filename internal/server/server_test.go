package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard)

func TestBasicRouter(t *testing.T) {
	t.Run("method patterns share a path", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/folders", func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "list") })
		r.HandleFunc(http.MethodPost, "/folders", func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "choose") })

		for method, want := range map[string]string{http.MethodGet: "list", http.MethodPost: "choose"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/folders", nil))
			assert.Equal(t, want, rec.Body.String())
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/folders", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("path wildcards", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("get", "/releases/{id}", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, req.PathValue("id"))
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/releases/42", nil))
		assert.Equal(t, "42", rec.Body.String())
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.HandleFunc(http.MethodGet, "/", func(http.ResponseWriter, *http.Request) { order = append(order, "handler") })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"first", "second", "handler"}, order)
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("recoverer", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recoverer(log.New(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "kaboom")
		assert.Contains(t, buf.String(), "kaboom")
	})

	t.Run("request logger omits query", func(t *testing.T) {
		var buf bytes.Buffer
		h := RequestLogger(log.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?oauth_verifier=secret", nil))
		out := buf.String()
		assert.Contains(t, out, "/callback")
		assert.Contains(t, out, "418")
		assert.NotContains(t, out, "secret")
	})
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantToken  string
		wantErr    bool
	}{
		{"success", "?oauth_token=req-token&oauth_verifier=v1", http.StatusOK, "req-token", false},
		{"denied", "?denied=req-token", http.StatusBadRequest, "", true},
		{"missing verifier", "?oauth_token=req-token", http.StatusBadRequest, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCallbackHandler("")
			assert.Equal(t, []string{"GET /callback"}, h.Routes())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			res := <-h.Result()
			if tt.wantErr {
				assert.ErrorIs(t, res.Error(), shared.ErrAuthState)
				return
			}
			require.NoError(t, res.Error())
			assert.Equal(t, tt.wantToken, res.Token)
			assert.Equal(t, "v1", res.Verifier)
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewCallbackHandler("/cb")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cb?oauth_token=a&oauth_verifier=b", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?oauth_token=c&oauth_verifier=d", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		res := <-h.Result()
		assert.Equal(t, "a", res.Token)
	})
}

func TestCallbackServer(t *testing.T) {
	t.Run("receives redirect", func(t *testing.T) {
		s, err := NewCallbackServer("http://127.0.0.1:0/callback", quiet)
		require.NoError(t, err)
		require.NoError(t, s.Start())
		t.Cleanup(func() { s.Shutdown(context.Background()) })

		assert.NotContains(t, s.CallbackURL(), ":0/")
		assert.True(t, strings.HasSuffix(s.CallbackURL(), "/callback"))

		go func() {
			resp, err := http.Get(s.CallbackURL() + "?oauth_token=req-token&oauth_verifier=v9")
			if err == nil {
				resp.Body.Close()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		token, verifier, err := s.Await(ctx, "req-token")
		require.NoError(t, err)
		assert.Equal(t, "req-token", token)
		assert.Equal(t, "v9", verifier)
	})

	t.Run("await honours context", func(t *testing.T) {
		s, err := NewCallbackServer("http://127.0.0.1:0/callback", quiet)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err = s.Await(ctx, "x")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("rejects non-http callback", func(t *testing.T) {
		_, err := NewCallbackServer("oob", quiet)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}
