package fetch

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/wippyai/wasm-loader/errors"
)

// DefaultUserAgent is sent when no other user agent is configured.
const DefaultUserAgent = "wasm-loader"

// HTTP fetches over HTTP(S).
type HTTP struct {
	client    *http.Client
	base      *url.URL
	header    http.Header
	userAgent string
}

// HTTPOption configures an HTTP fetcher.
type HTTPOption func(*HTTP) error

// WithClient replaces the default http.Client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) error {
		h.client = c
		return nil
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) error {
		client := *h.client
		client.Timeout = d
		h.client = &client
		return nil
	}
}

// WithBaseURL resolves relative paths such as "/bin/sample.wasm" against base.
func WithBaseURL(base string) HTTPOption {
	return func(h *HTTP) error {
		if base == "" {
			return nil
		}
		u, err := url.Parse(base)
		if err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse base URL")
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.InvalidInput(errors.PhaseConfig, "base URL must be absolute: "+base)
		}
		h.base = u
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) error {
		h.userAgent = ua
		return nil
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) error {
		h.header.Add(key, value)
		return nil
	}
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(opts ...HTTPOption) (*HTTP, error) {
	h := &HTTP{
		client:    &http.Client{},
		header:    make(http.Header),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Resolve returns the absolute URL path refers to.
func (h *HTTP) Resolve(path string) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if h.base != nil {
		u = h.base.ResolveReference(u)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.InvalidInput(errors.PhaseFetch, "relative path without base URL")
	}
	return u, nil
}

func (h *HTTP) Fetch(ctx context.Context, path string) (*Response, error) {
	u, err := h.Resolve(path)
	if err != nil {
		return nil, errors.Transport(path, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Transport(path, 0, err)
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/wasm, */*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Transport(path, 0, err)
	}

	return &Response{
		Body:        resp.Body,
		Path:        u.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Status:      resp.StatusCode,
	}, nil
}
