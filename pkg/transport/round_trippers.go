// Package transport provides decorators for outbound HTTP requests.
package transport

import (
	"net/http"
)

// ModifyRequestOption mutates an outgoing request before it is sent.
type ModifyRequestOption func(req *http.Request)

type modifyRequestRoundTripper struct {
	roundTripper http.RoundTripper
	options      []ModifyRequestOption
}

// NewModifyRequestRoundTripper decorates rt so every request passes through
// the given options before reaching the wire.
func NewModifyRequestRoundTripper(rt http.RoundTripper, opts ...ModifyRequestOption) http.RoundTripper {
	return &modifyRequestRoundTripper{roundTripper: rt, options: opts}
}

func (rt *modifyRequestRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for _, opt := range rt.options {
		opt(req)
	}
	return rt.roundTripper.RoundTrip(req)
}

// WithUserAgent is a functional option to set the HTTP client user agent.
func WithUserAgent(userAgent string) ModifyRequestOption {
	return func(req *http.Request) {
		req.Header.Set("User-Agent", userAgent)
	}
}

// WithAcceptLanguage is a functional option to set the HTTP client accept language.
func WithAcceptLanguage(acceptLanguage string) ModifyRequestOption {
	return func(req *http.Request) {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
}

// WithQueryParam is a functional option to set a fixed query parameter on
// every request URL.
func WithQueryParam(key, value string) ModifyRequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Set(key, value)
		req.URL.RawQuery = q.Encode()
	}
}
