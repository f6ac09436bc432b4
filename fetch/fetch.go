// Package fetch retrieves module binaries for the loader.
//
// A Fetcher resolves a path to a Response. Like a browser fetch, a request
// that reaches the server resolves with whatever status it returned; only
// failures to obtain a response at all are errors. Callers decide what a
// non-success status means.
package fetch

import (
	"context"
	"io"
	"net/url"

	"github.com/wippyai/wasm-loader/errors"
)

// Response is a fetched resource. The caller must close Body.
type Response struct {
	Body        io.ReadCloser
	Path        string
	ContentType string
	// Size is the payload length, or -1 when unknown.
	Size   int64
	Status int
}

// OK reports whether Status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Close closes the body if present.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Fetcher retrieves the resource addressed by path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, path string) (*Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string) (*Response, error) {
	return f(ctx, path)
}

// Schemes routes a path to a Fetcher by URL scheme. The empty key handles
// paths without a scheme.
type Schemes map[string]Fetcher

func (s Schemes) Fetch(ctx context.Context, path string) (*Response, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, errors.Transport(path, 0, err)
	}
	f, ok := s[u.Scheme]
	if !ok || f == nil {
		return nil, errors.Transport(path, 0,
			errors.InvalidInput(errors.PhaseFetch, "unsupported scheme "+u.Scheme))
	}
	return f.Fetch(ctx, path)
}
