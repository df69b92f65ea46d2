package discogs

import (
	"context"
	"net/http"
)

// userAgentTransport stamps every request with the configured User-Agent,
// which Discogs requires. When ctx is set it replaces the request context;
// oauth1 builds its token requests without one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
	ctx       context.Context
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if t.ctx != nil {
		ctx = t.ctx
	}

	r := req.Clone(ctx)
	if t.userAgent != "" {
		r.Header.Set("User-Agent", t.userAgent)
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
