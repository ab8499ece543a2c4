package request

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpkit/packages/params"
)

// response performs the round trip on first call and caches the result.
// When a streaming body is in flight it is finalized first.
func (r *Request) response() (*http.Response, error) {
	if r.resp != nil {
		return r.resp, nil
	}

	if r.result != nil {
		r.closeOutput()
		res := <-r.result
		r.result = nil
		switch {
		case res.err != nil:
			if r.err == nil {
				r.err = wrapErr("round trip", res.err)
			}
		case r.err != nil:
			res.resp.Body.Close()
		default:
			r.resp = res.resp
		}
		return r.resp, r.err
	}

	if r.err != nil {
		return nil, r.err
	}

	req, err := r.buildHTTPRequest(nil)
	if err != nil {
		r.err = err
		return nil, r.err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		r.err = wrapErr("round trip", err)
		return nil, r.err
	}
	r.resp = resp
	return resp, nil
}

// Code sends the request if needed and returns the response status code.
func (r *Request) Code() (int, error) {
	resp, err := r.response()
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// Message returns the response reason phrase, e.g. "OK".
func (r *Request) Message() (string, error) {
	resp, err := r.response()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))), nil
}

func (r *Request) codeIs(code int) (bool, error) {
	got, err := r.Code()
	if err != nil {
		return false, err
	}
	return got == code, nil
}

// OK reports whether the response code is 200.
func (r *Request) OK() (bool, error) { return r.codeIs(http.StatusOK) }

// Created reports whether the response code is 201.
func (r *Request) Created() (bool, error) { return r.codeIs(http.StatusCreated) }

// NoContent reports whether the response code is 204.
func (r *Request) NoContent() (bool, error) { return r.codeIs(http.StatusNoContent) }

// NotModified reports whether the response code is 304.
func (r *Request) NotModified() (bool, error) { return r.codeIs(http.StatusNotModified) }

// BadRequest reports whether the response code is 400.
func (r *Request) BadRequest() (bool, error) { return r.codeIs(http.StatusBadRequest) }

// NotFound reports whether the response code is 404.
func (r *Request) NotFound() (bool, error) { return r.codeIs(http.StatusNotFound) }

// ServerError reports whether the response code is 500.
func (r *Request) ServerError() (bool, error) { return r.codeIs(http.StatusInternalServerError) }

// Stream returns the response body stream. When Uncompress(true) was set and
// the response declares 'Content-Encoding: gzip', the stream is transparently
// decompressed. The caller owns closing the stream unless a caching terminal
// call (Bytes, Body) already consumed it.
func (r *Request) Stream() (io.ReadCloser, error) {
	resp, err := r.response()
	if err != nil {
		return nil, err
	}
	if r.bodyRead {
		return io.NopCloser(bytes.NewReader(r.bodyBytes)), nil
	}

	body := resp.Body
	if r.uncompress && strings.EqualFold(resp.Header.Get("Content-Encoding"), EncodingGzip) {
		gz, gerr := gzip.NewReader(body)
		if gerr != nil {
			body.Close()
			r.err = wrapErr("open gzip stream", gerr)
			return nil, r.err
		}
		return &gzipStream{gz: gz, underlying: body}, nil
	}
	return body, nil
}

type gzipStream struct {
	gz         *gzip.Reader
	underlying io.ReadCloser
}

func (s *gzipStream) Read(p []byte) (int, error) { return s.gz.Read(p) }

func (s *gzipStream) Close() error {
	err := s.gz.Close()
	if cerr := s.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}

// Bytes reads and caches the whole response body. Later body calls serve
// from the cache.
func (r *Request) Bytes() ([]byte, error) {
	if r.bodyRead {
		return r.bodyBytes, nil
	}
	stream, err := r.Stream()
	if err != nil {
		return nil, err
	}
	data, rerr := io.ReadAll(stream)
	cerr := stream.Close()
	if rerr != nil {
		r.err = wrapErr("read body", rerr)
		return nil, r.err
	}
	if cerr != nil && !r.ignoreCloseErrors {
		r.err = wrapErr("close body", cerr)
		return nil, r.err
	}
	r.bodyBytes = data
	r.bodyRead = true
	return data, nil
}

// Body returns the response body decoded as text per the response charset.
func (r *Request) Body() (string, error) {
	charset, _, err := r.Parameter("Content-Type", "charset")
	if err != nil {
		return "", err
	}
	return r.BodyCharset(charset)
}

// BodyCharset returns the response body decoded as text in the given
// charset. An empty charset means UTF-8.
func (r *Request) BodyCharset(charset string) (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	text, derr := decodeText(data, validCharset(charset))
	if derr != nil {
		r.err = wrapErr("decode body", derr)
		return "", r.err
	}
	return text, nil
}

// Reader returns a buffered reader yielding the response body as UTF-8 text
// decoded from the response charset. Closing it closes the body stream.
func (r *Request) Reader() (io.ReadCloser, error) {
	charset, _, err := r.Parameter("Content-Type", "charset")
	if err != nil {
		return nil, err
	}
	stream, err := r.Stream()
	if err != nil {
		return nil, err
	}
	decoded, derr := decodeReader(stream, validCharset(charset))
	if derr != nil {
		stream.Close()
		r.err = wrapErr("decode body", derr)
		return nil, r.err
	}
	return &readCloser{Reader: decoded, closer: stream}, nil
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (rc *readCloser) Close() error { return rc.closer.Close() }

// Receive copies the response body to w in buffer-size chunks. The body
// stream is always closed; a copy error wins over a close error.
func (r *Request) Receive(w io.Writer) error {
	stream, err := r.Stream()
	if err != nil {
		return err
	}
	chunk := make([]byte, r.bufferSize)
	_, cpErr := io.CopyBuffer(w, stream, chunk)
	cerr := stream.Close()
	if cpErr != nil {
		r.err = wrapErr("receive body", cpErr)
		return r.err
	}
	if cerr != nil && !r.ignoreCloseErrors {
		r.err = wrapErr("close body", cerr)
		return r.err
	}
	return nil
}

// ReceiveFile writes the response body to the named file, creating or
// truncating it.
func (r *Request) ReceiveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		r.err = wrapErr("create file", err)
		return r.err
	}
	rerr := r.Receive(f)
	cerr := f.Close()
	if rerr != nil {
		return rerr
	}
	if cerr != nil && !r.ignoreCloseErrors {
		r.err = wrapErr("close file", cerr)
		return r.err
	}
	return nil
}

// ResponseHeader returns the value of a response header, or "" when absent.
func (r *Request) ResponseHeader(name string) (string, error) {
	resp, err := r.response()
	if err != nil {
		return "", err
	}
	return resp.Header.Get(name), nil
}

// ResponseHeaders returns all response headers.
func (r *Request) ResponseHeaders() (http.Header, error) {
	resp, err := r.response()
	if err != nil {
		return nil, err
	}
	return resp.Header, nil
}

// HeaderValues returns every value of a response header.
func (r *Request) HeaderValues(name string) ([]string, error) {
	resp, err := r.response()
	if err != nil {
		return nil, err
	}
	return resp.Header.Values(name), nil
}

// IntHeader returns a response header parsed as an integer, or -1 when the
// header is absent or not a number.
func (r *Request) IntHeader(name string) (int, error) {
	value, err := r.ResponseHeader(name)
	if err != nil {
		return -1, err
	}
	n, perr := strconv.Atoi(strings.TrimSpace(value))
	if perr != nil {
		return -1, nil
	}
	return n, nil
}

// DateHeader returns a response header parsed as an HTTP date, or the zero
// time when the header is absent or malformed.
func (r *Request) DateHeader(name string) (time.Time, error) {
	value, err := r.ResponseHeader(name)
	if err != nil {
		return time.Time{}, err
	}
	t, perr := http.ParseTime(value)
	if perr != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// Parameter returns a named parameter of a response header. ok reports
// whether the parameter is present, which distinguishes an empty value from
// an absent one.
func (r *Request) Parameter(headerName, paramName string) (value string, ok bool, err error) {
	header, err := r.ResponseHeader(headerName)
	if err != nil {
		return "", false, err
	}
	value, ok = params.Get(header, paramName)
	return value, ok, nil
}

// Parameters returns every parameter of a response header.
func (r *Request) Parameters(headerName string) (map[string]string, error) {
	header, err := r.ResponseHeader(headerName)
	if err != nil {
		return nil, err
	}
	return params.All(header), nil
}

// Charset returns the charset parameter of the response 'Content-Type'
// header, or "" when none is declared.
func (r *Request) Charset() (string, error) {
	charset, _, err := r.Parameter("Content-Type", "charset")
	return charset, err
}

// ContentEncoding returns the response 'Content-Encoding' header.
func (r *Request) ContentEncoding() (string, error) {
	return r.ResponseHeader("Content-Encoding")
}

// ResponseContentType returns the response 'Content-Type' header.
func (r *Request) ResponseContentType() (string, error) {
	return r.ResponseHeader("Content-Type")
}

// ResponseContentLength returns the declared response body length, or -1
// when unknown.
func (r *Request) ResponseContentLength() (int64, error) {
	resp, err := r.response()
	if err != nil {
		return -1, err
	}
	return resp.ContentLength, nil
}

// IsBodyEmpty reports whether the response declares a zero-length body.
func (r *Request) IsBodyEmpty() (bool, error) {
	n, err := r.ResponseContentLength()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Server returns the response 'Server' header.
func (r *Request) Server() (string, error) { return r.ResponseHeader("Server") }

// CacheControl returns the response 'Cache-Control' header.
func (r *Request) CacheControl() (string, error) { return r.ResponseHeader("Cache-Control") }

// ETag returns the response 'ETag' header.
func (r *Request) ETag() (string, error) { return r.ResponseHeader("ETag") }

// Location returns the response 'Location' header.
func (r *Request) Location() (string, error) { return r.ResponseHeader("Location") }

// Date returns the response 'Date' header as a time.
func (r *Request) Date() (time.Time, error) { return r.DateHeader("Date") }

// Expires returns the response 'Expires' header as a time.
func (r *Request) Expires() (time.Time, error) { return r.DateHeader("Expires") }

// LastModified returns the response 'Last-Modified' header as a time.
func (r *Request) LastModified() (time.Time, error) { return r.DateHeader("Last-Modified") }

// Close releases the response body and any in-flight request body. It is
// safe to call when the request never ran.
func (r *Request) Close() error {
	var err error
	if r.result != nil {
		r.closeOutput()
		res := <-r.result
		r.result = nil
		if res.err == nil {
			res.resp.Body.Close()
		}
	}
	if r.resp != nil && !r.bodyRead {
		if cerr := r.resp.Body.Close(); cerr != nil && !r.ignoreCloseErrors {
			err = wrapErr("close body", cerr)
		}
	}
	return err
}
