package request

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"sort"

	"golang.org/x/text/transform"

	"github.com/abdul-hamid-achik/httpkit/packages/params"
)

// pipeBody is the read side of the request body handed to the transport.
type pipeBody struct {
	*io.PipeReader
}

// bodyWriter buffers writes to the request body pipe. Strings written via
// WriteString pass through a charset encoder when the request's Content-Type
// declares a non-UTF-8 charset.
type bodyWriter struct {
	pipe *io.PipeWriter
	buf  *bufio.Writer
	text io.Writer
}

func (w *bodyWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *bodyWriter) WriteString(s string) error {
	_, err := io.WriteString(w.text, s)
	return err
}

func (w *bodyWriter) Close() error {
	var err error
	if c, ok := w.text.(io.Closer); ok {
		err = c.Close()
	}
	if ferr := w.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := w.pipe.Close(); err == nil {
		err = cerr
	}
	return err
}

// setMode latches the body mode on first use and rejects mixing modes.
func (r *Request) setMode(m bodyMode) bool {
	if r.err != nil {
		return false
	}
	if r.mode == modeNone {
		r.mode = m
		return true
	}
	if r.mode != m {
		r.err = usageErrorf("cannot write %s after %s", m, r.mode)
		return false
	}
	return true
}

// openOutput starts the round trip with a streaming body. The transport
// reads from a pipe fed by subsequent body writes; the response is collected
// by the terminal call.
func (r *Request) openOutput() bool {
	if r.err != nil {
		return false
	}
	if r.out != nil {
		return true
	}

	charset, _ := params.Get(r.header.Get("Content-Type"), "charset")
	enc, err := charsetEncoding(charset)
	if err != nil {
		r.err = wrapErr("open body", err)
		return false
	}

	pr, pw := io.Pipe()
	req, err := r.buildHTTPRequest(&pipeBody{pr})
	if err != nil {
		pw.CloseWithError(err)
		r.err = err
		return false
	}

	buf := bufio.NewWriterSize(pw, r.bufferSize)
	out := &bodyWriter{pipe: pw, buf: buf, text: buf}
	if enc != nil {
		out.text = transform.NewWriter(buf, enc.NewEncoder())
	}
	r.out = out

	r.result = make(chan roundTripResult, 1)
	client := r.httpClient()
	go func() {
		resp, derr := client.Do(req)
		if derr != nil {
			// Unblock any in-flight body writes.
			pr.CloseWithError(derr)
		}
		r.result <- roundTripResult{resp: resp, err: derr}
	}()
	return true
}

// closeOutput finalizes the request body. Close errors are swallowed unless
// IgnoreCloseErrors(false) was set, and never mask an earlier error.
func (r *Request) closeOutput() {
	if r.out == nil {
		return
	}
	out := r.out
	r.out = nil

	if r.err == nil && r.mode == modeMultipart {
		if werr := out.WriteString(crlf + "--" + boundary + "--" + crlf); werr != nil {
			r.err = wrapErr("write multipart boundary", werr)
		}
	}
	cerr := out.Close()
	if cerr != nil && r.err == nil && !r.ignoreCloseErrors {
		r.err = wrapErr("close body", cerr)
	}
}

// copyToOutput streams src to the request body in bufferSize chunks,
// reporting progress after each chunk. src is always closed when it
// implements io.Closer; a copy error wins over a close error.
func (r *Request) copyToOutput(src io.Reader) error {
	chunk := make([]byte, r.bufferSize)
	var err error
	for {
		n, rerr := src.Read(chunk)
		if n > 0 {
			if _, werr := r.out.Write(chunk[:n]); werr != nil {
				err = werr
				break
			}
			r.totalWritten += int64(n)
			if r.progress != nil {
				r.progress(r.totalWritten, r.totalSize)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			err = rerr
			break
		}
	}
	if c, ok := src.(io.Closer); ok {
		if cerr := c.Close(); err == nil && cerr != nil && !r.ignoreCloseErrors {
			err = cerr
		}
	}
	return err
}

func (r *Request) addTotalSize(n int64) {
	if r.totalSize == -1 {
		r.totalSize = 0
	}
	r.totalSize += n
}

// Send writes the string as the raw request body, encoded per the charset
// of the 'Content-Type' header.
func (r *Request) Send(body string) *Request {
	if !r.setMode(modeRaw) || !r.openOutput() {
		return r
	}
	if err := r.out.WriteString(body); err != nil {
		r.err = wrapErr("write body", err)
	}
	return r
}

// SendBytes writes the bytes as the raw request body.
func (r *Request) SendBytes(body []byte) *Request {
	if !r.setMode(modeRaw) || !r.openOutput() {
		return r
	}
	r.addTotalSize(int64(len(body)))
	if err := r.copyToOutput(bytes.NewReader(body)); err != nil {
		r.err = wrapErr("write body", err)
	}
	return r
}

// SendReader streams the reader as the raw request body. The reader is
// closed when it implements io.Closer.
func (r *Request) SendReader(body io.Reader) *Request {
	if !r.setMode(modeRaw) || !r.openOutput() {
		return r
	}
	if err := r.copyToOutput(body); err != nil {
		r.err = wrapErr("write body", err)
	}
	return r
}

// SendFile streams the named file as the raw request body.
func (r *Request) SendFile(path string) *Request {
	if !r.setMode(modeRaw) {
		return r
	}
	f, info, err := openFile(path)
	if err != nil {
		r.err = wrapErr("open file", err)
		return r
	}
	r.addTotalSize(info.Size())
	if !r.openOutput() {
		f.Close()
		return r
	}
	if cerr := r.copyToOutput(f); cerr != nil {
		r.err = wrapErr("write body", cerr)
	}
	return r
}

// JSON marshals v and sends it as the request body, setting the
// 'Content-Type' header to 'application/json' when none is set.
func (r *Request) JSON(v any) *Request {
	if r.err != nil {
		return r
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.err = wrapErr("marshal json", err)
		return r
	}
	if r.header.Get("Content-Type") == "" {
		r.ContentType(ContentTypeJSON)
	}
	return r.SendBytes(data)
}

// Form writes a form field. The first form field sets the 'Content-Type'
// header to 'application/x-www-form-urlencoded; charset=UTF-8' when no
// content type is set.
func (r *Request) Form(name, value string) *Request {
	return r.FormCharset(name, value, CharsetUTF8)
}

// FormCharset writes a form field percent-encoded in the given charset.
func (r *Request) FormCharset(name, value, charset string) *Request {
	if !r.setMode(modeForm) {
		return r
	}
	charset = validCharset(charset)
	first := !r.formWritten
	if first && r.header.Get("Content-Type") == "" {
		r.ContentTypeCharset(ContentTypeForm, charset)
	}
	if !r.openOutput() {
		return r
	}
	r.formWritten = true

	encName, err := formEncode(name, charset)
	if err == nil {
		var encValue string
		encValue, err = formEncode(value, charset)
		if err == nil {
			field := encName + "=" + encValue
			if !first {
				field = "&" + field
			}
			_, err = io.WriteString(r.out, field)
		}
	}
	if err != nil {
		r.err = wrapErr("write form", err)
	}
	return r
}

// FormMap writes every entry of the map as a form field in sorted key order.
func (r *Request) FormMap(form map[string]string) *Request {
	return r.FormMapCharset(form, CharsetUTF8)
}

// FormMapCharset writes every entry of the map as a form field encoded in
// the given charset, in sorted key order.
func (r *Request) FormMapCharset(form map[string]string, charset string) *Request {
	for _, name := range sortedKeys(form) {
		r.FormCharset(name, form[name], charset)
	}
	return r
}

// formEncode percent-encodes s for a form body after converting it to the
// given charset. Spaces become '+'.
func formEncode(s, charset string) (string, error) {
	raw, err := encodeText(s, charset)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(raw)), nil
}

// Part writes a string multipart part. The first part sets the
// 'Content-Type' header to 'multipart/form-data' with the part boundary
// when no content type is set.
func (r *Request) Part(name, value string) *Request {
	return r.PartWithType(name, "", "", value)
}

// PartWithType writes a string multipart part with a filename and part
// content type. Empty filename and content type are omitted from the part
// header.
func (r *Request) PartWithType(name, filename, contentType, value string) *Request {
	if !r.startPart(name, filename, contentType) {
		return r
	}
	if err := r.out.WriteString(value); err != nil {
		r.err = wrapErr("write part", err)
	}
	return r
}

// PartFile streams the named file as a multipart part.
func (r *Request) PartFile(name, filename, path string) *Request {
	return r.PartFileWithType(name, filename, "", path)
}

// PartFileWithType streams the named file as a multipart part with a part
// content type.
func (r *Request) PartFileWithType(name, filename, contentType, path string) *Request {
	if r.err != nil {
		return r
	}
	f, info, err := openFile(path)
	if err != nil {
		r.err = wrapErr("open file", err)
		return r
	}
	r.addTotalSize(info.Size())
	if !r.startPart(name, filename, contentType) {
		f.Close()
		return r
	}
	if cerr := r.copyToOutput(f); cerr != nil {
		r.err = wrapErr("write part", cerr)
	}
	return r
}

// PartReader streams the reader as a multipart part.
func (r *Request) PartReader(name, filename string, body io.Reader) *Request {
	return r.PartReaderWithType(name, filename, "", body)
}

// PartReaderWithType streams the reader as a multipart part with a part
// content type. The reader is closed when it implements io.Closer.
func (r *Request) PartReaderWithType(name, filename, contentType string, body io.Reader) *Request {
	if !r.startPart(name, filename, contentType) {
		return r
	}
	if err := r.copyToOutput(body); err != nil {
		r.err = wrapErr("write part", err)
	}
	return r
}

// startPart opens the multipart body if needed and writes the boundary and
// part header for the next part.
func (r *Request) startPart(name, filename, contentType string) bool {
	if !r.setMode(modeMultipart) {
		return false
	}
	first := !r.partWritten
	if first && r.header.Get("Content-Type") == "" {
		r.ContentType(contentTypeMultipart)
	}
	if !r.openOutput() {
		return false
	}
	r.partWritten = true

	sep := "--" + boundary + crlf
	if !first {
		sep = crlf + sep
	}
	header := sep + `Content-Disposition: form-data; name="` + name + `"`
	if filename != "" {
		header += `; filename="` + filename + `"`
	}
	header += crlf
	if contentType != "" {
		header += "Content-Type: " + contentType + crlf
	}
	header += crlf

	if err := r.out.WriteString(header); err != nil {
		r.err = wrapErr("write part header", err)
		return false
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func openFile(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, usageErrorf("%q is a directory, not a file", path)
	}
	return f, info, nil
}
