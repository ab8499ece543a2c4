package request

import (
	"crypto/tls"
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/httpkit/packages/urlutil"
)

const (
	// CharsetUTF8 is the default charset for request and response text.
	CharsetUTF8 = "UTF-8"
	// ContentTypeForm is the 'application/x-www-form-urlencoded' content type.
	ContentTypeForm = "application/x-www-form-urlencoded"
	// ContentTypeJSON is the 'application/json' content type.
	ContentTypeJSON = "application/json"
	// EncodingGzip is the 'gzip' encoding header value.
	EncodingGzip = "gzip"

	// DefaultBufferSize is the chunk size used when copying streams.
	DefaultBufferSize = 8192

	boundary             = "00content0boundary00"
	contentTypeMultipart = "multipart/form-data; boundary=" + boundary
	crlf                 = "\r\n"
)

// ProgressFunc is invoked as body data is uploaded. total is -1 when the
// total upload size is unknown.
type ProgressFunc func(uploaded, total int64)

type bodyMode int

const (
	modeNone bodyMode = iota
	modeRaw
	modeForm
	modeMultipart
)

func (m bodyMode) String() string {
	switch m {
	case modeRaw:
		return "raw body"
	case modeForm:
		return "form body"
	case modeMultipart:
		return "multipart body"
	default:
		return "no body"
	}
}

// Request describes a single outbound HTTP call. It is built fluently, sent
// by the first terminal (response-reading) call, and cannot be reused for a
// second round trip. A Request must not be shared across goroutines.
type Request struct {
	method string
	rawURL string

	transport http.RoundTripper
	header    http.Header

	connectTimeout    time.Duration
	readTimeout       time.Duration
	followRedirects   bool
	proxyURL          *url.URL
	insecureTLS       bool
	bufferSize        int
	chunked           bool
	contentLength     int64
	uncompress        bool
	ignoreCloseErrors bool

	progress     ProgressFunc
	totalSize    int64
	totalWritten int64

	mode        bodyMode
	formWritten bool
	partWritten bool

	out    *bodyWriter
	result chan roundTripResult
	client *http.Client

	resp      *http.Response
	bodyBytes []byte
	bodyRead  bool
	err       error
}

type roundTripResult struct {
	resp *http.Response
	err  error
}

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// New starts a request with the given method and URL.
func New(method, rawURL string) *Request {
	r := &Request{
		method:            method,
		rawURL:            rawURL,
		header:            make(http.Header),
		followRedirects:   true,
		ignoreCloseErrors: true,
		bufferSize:        DefaultBufferSize,
		contentLength:     -1,
		totalSize:         -1,
	}
	if !validMethods[method] {
		r.err = usageErrorf("unsupported method %q", method)
	}
	return r
}

// Get starts a 'GET' request to the given URL.
func Get(url string) *Request { return New(http.MethodGet, url) }

// Post starts a 'POST' request to the given URL.
func Post(url string) *Request { return New(http.MethodPost, url) }

// Put starts a 'PUT' request to the given URL.
func Put(url string) *Request { return New(http.MethodPut, url) }

// Delete starts a 'DELETE' request to the given URL.
func Delete(url string) *Request { return New(http.MethodDelete, url) }

// Head starts a 'HEAD' request to the given URL.
func Head(url string) *Request { return New(http.MethodHead, url) }

// Options starts an 'OPTIONS' request to the given URL.
func Options(url string) *Request { return New(http.MethodOptions, url) }

// Trace starts a 'TRACE' request to the given URL.
func Trace(url string) *Request { return New(http.MethodTrace, url) }

// GetQuery starts a 'GET' request with the map appended as query parameters.
// When encode is true the full URL is percent-encoded first.
func GetQuery(base string, query map[string]any, encode bool) *Request {
	return newWithQuery(http.MethodGet, base, query, encode)
}

// PostQuery starts a 'POST' request with the map appended as query parameters.
func PostQuery(base string, query map[string]any, encode bool) *Request {
	return newWithQuery(http.MethodPost, base, query, encode)
}

// PutQuery starts a 'PUT' request with the map appended as query parameters.
func PutQuery(base string, query map[string]any, encode bool) *Request {
	return newWithQuery(http.MethodPut, base, query, encode)
}

// DeleteQuery starts a 'DELETE' request with the map appended as query parameters.
func DeleteQuery(base string, query map[string]any, encode bool) *Request {
	return newWithQuery(http.MethodDelete, base, query, encode)
}

// HeadQuery starts a 'HEAD' request with the map appended as query parameters.
func HeadQuery(base string, query map[string]any, encode bool) *Request {
	return newWithQuery(http.MethodHead, base, query, encode)
}

// GetPairs starts a 'GET' request with the flat name/value pairs appended as
// query parameters.
func GetPairs(base string, encode bool, pairs ...any) *Request {
	return newWithPairs(http.MethodGet, base, encode, pairs)
}

// PostPairs starts a 'POST' request with the flat name/value pairs appended
// as query parameters.
func PostPairs(base string, encode bool, pairs ...any) *Request {
	return newWithPairs(http.MethodPost, base, encode, pairs)
}

// PutPairs starts a 'PUT' request with the flat name/value pairs appended as
// query parameters.
func PutPairs(base string, encode bool, pairs ...any) *Request {
	return newWithPairs(http.MethodPut, base, encode, pairs)
}

// DeletePairs starts a 'DELETE' request with the flat name/value pairs
// appended as query parameters.
func DeletePairs(base string, encode bool, pairs ...any) *Request {
	return newWithPairs(http.MethodDelete, base, encode, pairs)
}

// HeadPairs starts a 'HEAD' request with the flat name/value pairs appended
// as query parameters.
func HeadPairs(base string, encode bool, pairs ...any) *Request {
	return newWithPairs(http.MethodHead, base, encode, pairs)
}

func newWithQuery(method, base string, query map[string]any, encode bool) *Request {
	u := urlutil.Append(base, query)
	if encode {
		encoded, err := urlutil.Encode(u)
		if err != nil {
			r := New(method, base)
			r.err = wrapErr("encode url", err)
			return r
		}
		u = encoded
	}
	return New(method, u)
}

func newWithPairs(method, base string, encode bool, pairs []any) *Request {
	u, err := urlutil.AppendPairs(base, pairs...)
	if err != nil {
		r := New(method, base)
		r.err = usageErrorf("%v", err)
		return r
	}
	if encode {
		encoded, eerr := urlutil.Encode(u)
		if eerr != nil {
			r := New(method, base)
			r.err = wrapErr("encode url", eerr)
			return r
		}
		u = encoded
	}
	return New(method, u)
}

// Method returns the HTTP method of this request.
func (r *Request) Method() string { return r.method }

// URL returns the target URL of this request.
func (r *Request) URL() string { return r.rawURL }

func (r *Request) String() string { return r.method + " " + r.rawURL }

// Err returns the first error latched on this request, if any. Terminal
// operations return the same error; Err is useful mid-chain in tests.
func (r *Request) Err() error { return r.err }

// Header sets a request header. Headers must be set before the request body
// is opened; later calls latch an invalid-usage error.
func (r *Request) Header(name, value string) *Request {
	if r.err != nil {
		return r
	}
	if name == "" {
		r.err = usageErrorf("header name cannot be empty")
		return r
	}
	if r.out != nil || r.resp != nil {
		r.err = usageErrorf("header %q set after request body opened", name)
		return r
	}
	r.header.Set(name, value)
	return r
}

// Headers sets every header in the map.
func (r *Request) Headers(headers map[string]string) *Request {
	for name, value := range headers {
		r.Header(name, value)
	}
	return r
}

// UserAgent sets the 'User-Agent' header.
func (r *Request) UserAgent(userAgent string) *Request {
	return r.Header("User-Agent", userAgent)
}

// Referer sets the 'Referer' header.
func (r *Request) Referer(referer string) *Request {
	return r.Header("Referer", referer)
}

// Accept sets the 'Accept' header.
func (r *Request) Accept(accept string) *Request {
	return r.Header("Accept", accept)
}

// AcceptJSON sets the 'Accept' header to 'application/json'.
func (r *Request) AcceptJSON() *Request {
	return r.Accept(ContentTypeJSON)
}

// AcceptEncoding sets the 'Accept-Encoding' header.
func (r *Request) AcceptEncoding(acceptEncoding string) *Request {
	return r.Header("Accept-Encoding", acceptEncoding)
}

// AcceptGzipEncoding sets the 'Accept-Encoding' header to 'gzip'. Pair with
// Uncompress to read the body transparently decompressed.
func (r *Request) AcceptGzipEncoding() *Request {
	return r.AcceptEncoding(EncodingGzip)
}

// AcceptCharset sets the 'Accept-Charset' header.
func (r *Request) AcceptCharset(acceptCharset string) *Request {
	return r.Header("Accept-Charset", acceptCharset)
}

// Authorization sets the 'Authorization' header.
func (r *Request) Authorization(authorization string) *Request {
	return r.Header("Authorization", authorization)
}

// ProxyAuthorization sets the 'Proxy-Authorization' header.
func (r *Request) ProxyAuthorization(proxyAuthorization string) *Request {
	return r.Header("Proxy-Authorization", proxyAuthorization)
}

// Basic sets the 'Authorization' header to the name and password in Basic
// authentication format.
func (r *Request) Basic(name, password string) *Request {
	return r.Authorization("Basic " + base64.StdEncoding.EncodeToString([]byte(name+":"+password)))
}

// ProxyBasic sets the 'Proxy-Authorization' header to the name and password
// in Basic authentication format.
func (r *Request) ProxyBasic(name, password string) *Request {
	return r.ProxyAuthorization("Basic " + base64.StdEncoding.EncodeToString([]byte(name+":"+password)))
}

// IfNoneMatch sets the 'If-None-Match' header.
func (r *Request) IfNoneMatch(etag string) *Request {
	return r.Header("If-None-Match", etag)
}

// IfModifiedSince sets the 'If-Modified-Since' header.
func (r *Request) IfModifiedSince(t time.Time) *Request {
	return r.Header("If-Modified-Since", t.UTC().Format(http.TimeFormat))
}

// ContentType sets the 'Content-Type' request header.
func (r *Request) ContentType(contentType string) *Request {
	return r.ContentTypeCharset(contentType, "")
}

// ContentTypeCharset sets the 'Content-Type' request header with a charset
// parameter.
func (r *Request) ContentTypeCharset(contentType, charset string) *Request {
	if charset != "" {
		return r.Header("Content-Type", contentType+"; charset="+charset)
	}
	return r.Header("Content-Type", contentType)
}

// ContentLength declares a fixed request body length.
func (r *Request) ContentLength(n int64) *Request {
	if r.err != nil {
		return r
	}
	if n < 0 {
		r.err = usageErrorf("content length must not be negative")
		return r
	}
	r.contentLength = n
	r.header.Set("Content-Length", strconv.FormatInt(n, 10))
	return r
}

// Chunk forces chunked transfer encoding for the request body. A positive
// size sets the write buffer size; zero keeps the current one.
func (r *Request) Chunk(size int) *Request {
	if r.err != nil {
		return r
	}
	if size < 0 {
		r.err = usageErrorf("chunk size must not be negative")
		return r
	}
	if size > 0 {
		r.bufferSize = size
	}
	r.chunked = true
	r.contentLength = -1
	r.header.Del("Content-Length")
	return r
}

// BufferSize sets the chunk size used when buffering and copying between
// streams. The default is 8,192 bytes.
func (r *Request) BufferSize(size int) *Request {
	if r.err != nil {
		return r
	}
	if size < 1 {
		r.err = usageErrorf("buffer size must be greater than zero")
		return r
	}
	r.bufferSize = size
	return r
}

// Uncompress sets whether the response body is transparently decompressed
// when the response declares 'Content-Encoding: gzip'. This does not set any
// request header; use AcceptGzipEncoding to ask the server for gzip.
func (r *Request) Uncompress(uncompress bool) *Request {
	if r.err == nil {
		r.uncompress = uncompress
	}
	return r
}

// IgnoreCloseErrors sets whether errors from closing streams are swallowed.
// The default is true; an error from the unit of work always wins over a
// close error either way.
func (r *Request) IgnoreCloseErrors(ignore bool) *Request {
	if r.err == nil {
		r.ignoreCloseErrors = ignore
	}
	return r
}

// Progress registers a callback invoked as body data is uploaded. A nil
// callback clears it.
func (r *Request) Progress(fn ProgressFunc) *Request {
	if r.err == nil {
		r.progress = fn
	}
	return r
}

// ReadTimeout bounds the whole round trip including reading the response.
func (r *Request) ReadTimeout(d time.Duration) *Request {
	if r.err == nil {
		r.readTimeout = d
	}
	return r
}

// ConnectTimeout bounds establishing the connection.
func (r *Request) ConnectTimeout(d time.Duration) *Request {
	if r.err == nil {
		r.connectTimeout = d
	}
	return r
}

// FollowRedirects sets whether redirect responses are followed. The default
// is true.
func (r *Request) FollowRedirects(follow bool) *Request {
	if r.err == nil {
		r.followRedirects = follow
	}
	return r
}

// UseProxy routes the request through an HTTP proxy. It must be called
// before the connection opens.
func (r *Request) UseProxy(host string, port int) *Request {
	if r.err != nil {
		return r
	}
	if r.client != nil {
		r.err = usageErrorf("proxy must be configured before the connection is opened")
		return r
	}
	proxyURL, err := url.Parse("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		r.err = usageErrorf("invalid proxy address %s:%d", host, port)
		return r
	}
	r.proxyURL = proxyURL
	return r
}

// TrustAllCerts disables certificate chain verification for HTTPS requests.
// Only intended for controlled test environments.
func (r *Request) TrustAllCerts() *Request {
	if r.err == nil {
		r.insecureTLS = true
	}
	return r
}

// TrustAllHosts disables hostname verification for HTTPS requests. Only
// intended for controlled test environments.
func (r *Request) TrustAllHosts() *Request {
	if r.err == nil {
		r.insecureTLS = true
	}
	return r
}

// httpClient lazily builds the client for this request. Connection settings
// changed afterwards have no effect.
func (r *Request) httpClient() *http.Client {
	if r.client != nil {
		return r.client
	}

	rt := r.transport
	if rt == nil {
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: r.connectTimeout,
			}).DialContext,
		}
		if r.proxyURL != nil {
			transport.Proxy = http.ProxyURL(r.proxyURL)
		}
		if r.insecureTLS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		rt = transport
	}

	client := &http.Client{
		Transport: rt,
		Timeout:   r.readTimeout,
	}
	if !r.followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	r.client = client
	return client
}

// buildHTTPRequest snapshots the configured method, URL and headers into an
// http.Request with the given body.
func (r *Request) buildHTTPRequest(body *pipeBody) (*http.Request, error) {
	u, err := url.Parse(r.rawURL)
	if err != nil {
		return nil, wrapErr("parse url", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, wrapErr("parse url", usageErrorf("URL %q must be absolute", r.rawURL))
	}

	req := &http.Request{
		Method: r.method,
		URL:    u,
		Header: r.header.Clone(),
	}
	if body != nil {
		req.Body = body
		if r.contentLength >= 0 && !r.chunked {
			req.ContentLength = r.contentLength
		}
	}
	return req, nil
}
