package request

import "net/http"

// Factory stamps out requests sharing a transport and default headers.
// Useful for tests that inject a transport and for clients that talk to one
// API with common headers. The zero value is usable and equivalent to the
// package-level constructors.
type Factory struct {
	transport http.RoundTripper
	headers   map[string]string
}

// Option configures a Factory.
type Option func(*Factory)

// WithTransport sets the round tripper used by every request the factory
// creates, replacing the default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Factory) { f.transport = rt }
}

// WithDefaultHeader adds a header applied to every request the factory
// creates. Per-request headers override it.
func WithDefaultHeader(name, value string) Option {
	return func(f *Factory) {
		if f.headers == nil {
			f.headers = make(map[string]string)
		}
		f.headers[name] = value
	}
}

// WithDefaultHeaders adds every header in the map to each request the
// factory creates.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(f *Factory) {
		if f.headers == nil {
			f.headers = make(map[string]string)
		}
		for name, value := range headers {
			f.headers[name] = value
		}
	}
}

// NewFactory builds a Factory from options.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New starts a request with the factory's transport and default headers.
func (f *Factory) New(method, url string) *Request {
	r := New(method, url)
	r.transport = f.transport
	for name, value := range f.headers {
		r.header.Set(name, value)
	}
	return r
}

// Get starts a 'GET' request via the factory.
func (f *Factory) Get(url string) *Request { return f.New(http.MethodGet, url) }

// Post starts a 'POST' request via the factory.
func (f *Factory) Post(url string) *Request { return f.New(http.MethodPost, url) }

// Put starts a 'PUT' request via the factory.
func (f *Factory) Put(url string) *Request { return f.New(http.MethodPut, url) }

// Delete starts a 'DELETE' request via the factory.
func (f *Factory) Delete(url string) *Request { return f.New(http.MethodDelete, url) }

// Head starts a 'HEAD' request via the factory.
func (f *Factory) Head(url string) *Request { return f.New(http.MethodHead, url) }

// Options starts an 'OPTIONS' request via the factory.
func (f *Factory) Options(url string) *Request { return f.New(http.MethodOptions, url) }
