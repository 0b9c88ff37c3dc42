package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Request describes one outbound API call. Body is marshalled to JSON once,
// up front, so a queued call can be replayed byte-for-byte after a token
// refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Options are per-call flags. SkipAuthRefresh surfaces a 401 directly to the
// caller instead of coordinating a refresh; it is what breaks recursion for
// calls made from inside the refresh flow. SkipGlobalErrorHandler suppresses
// every side effect. RedirectOnError turns any failure into navigation to
// the error route instead of a toast.
type Options struct {
	SkipAuthRefresh        bool
	SkipGlobalErrorHandler bool
	RedirectOnError        bool
}

// call is the immutable per-attempt wrapper around a request: the encoded
// body plus the one-shot retry marker. A fresh call is created for every
// Do invocation, so retry bookkeeping never leaks between calls.
type call struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	retried bool
}

func newCall(req Request) (*call, error) {
	if req.Method == "" {
		return nil, fmt.Errorf("request method is empty")
	}
	if !strings.HasPrefix(req.Path, "/") {
		return nil, fmt.Errorf("request path %q must start with /", req.Path)
	}

	var body []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = encoded
	}

	return &call{
		method: req.Method,
		path:   req.Path,
		query:  req.Query,
		body:   body,
	}, nil
}

// authEndpoint reports whether the call targets the authentication API
// itself; those calls never carry a bearer header so an expired token can
// not 401 a public auth endpoint.
func (c *call) authEndpoint() bool {
	return strings.Contains(c.path, "/auth/")
}
