package request

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer records the method, content type and body of each request.
type echoServer struct {
	*httptest.Server
	method      string
	contentType string
	body        string
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	e := &echoServer{}
	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.method = r.Method
		e.contentType = r.Header.Get("Content-Type")
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		e.body = string(data)
	}))
	t.Cleanup(e.Server.Close)
	return e
}

func TestSend(t *testing.T) {
	server := newEchoServer(t)

	ok, err := Post(server.URL).Send("hello world").OK()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, http.MethodPost, server.method)
	assert.Equal(t, "hello world", server.body)
}

func TestSend_Chained(t *testing.T) {
	server := newEchoServer(t)

	_, err := Put(server.URL).Send("part one ").Send("part two").Code()
	require.NoError(t, err)
	assert.Equal(t, "part one part two", server.body)
}

func TestSendBytes(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).SendBytes([]byte{0x00, 0x01, 0x02}).Code()
	require.NoError(t, err)
	assert.Equal(t, "\x00\x01\x02", server.body)
}

func TestSendReader(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).SendReader(strings.NewReader("from reader")).Code()
	require.NoError(t, err)
	assert.Equal(t, "from reader", server.body)
}

func TestSendFile(t *testing.T) {
	server := newEchoServer(t)

	path := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o644))

	_, err := Put(server.URL).SendFile(path).Code()
	require.NoError(t, err)
	assert.Equal(t, "file contents", server.body)
}

func TestSendFile_Missing(t *testing.T) {
	_, err := Put("http://test.com").SendFile(filepath.Join(t.TempDir(), "absent")).Code()
	assert.ErrorIs(t, err, ErrRequest)
}

func TestSendFile_Directory(t *testing.T) {
	_, err := Put("http://test.com").SendFile(t.TempDir()).Code()
	assert.ErrorIs(t, err, ErrInvalidUsage)
}

func TestSend_NonUTF8Charset(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).
		ContentTypeCharset("text/plain", "ISO-8859-1").
		Send("café").
		Code()
	require.NoError(t, err)
	assert.Equal(t, "caf\xe9", server.body)
}

func TestSend_RelativeURL(t *testing.T) {
	_, err := Post("/relative").Send("x").Send("y").Code()
	assert.ErrorIs(t, err, ErrInvalidUsage)
}

func TestChunk(t *testing.T) {
	var transferEncoding []string
	var contentLength int64
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transferEncoding = r.TransferEncoding
		contentLength = r.ContentLength
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(data)
	}))
	defer server.Close()

	_, err := Post(server.URL).Chunk(64).Send("chunked body").Code()
	require.NoError(t, err)
	assert.Equal(t, []string{"chunked"}, transferEncoding)
	assert.Equal(t, int64(-1), contentLength)
	assert.Equal(t, "chunked body", body)
}

func TestChunk_OverridesContentLength(t *testing.T) {
	var transferEncoding []string
	var contentLength int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transferEncoding = r.TransferEncoding
		contentLength = r.ContentLength
		io.Copy(io.Discard, r.Body)
	}))
	defer server.Close()

	_, err := Post(server.URL).ContentLength(5).Chunk(0).Send("hello").Code()
	require.NoError(t, err)
	assert.Equal(t, []string{"chunked"}, transferEncoding)
	assert.Equal(t, int64(-1), contentLength)
}

func TestChunk_NegativeSize(t *testing.T) {
	_, err := Post("http://test.com").Chunk(-1).Code()
	assert.ErrorIs(t, err, ErrInvalidUsage)
}

func TestContentLength_Fixed(t *testing.T) {
	var transferEncoding []string
	var contentLength int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transferEncoding = r.TransferEncoding
		contentLength = r.ContentLength
		io.Copy(io.Discard, r.Body)
	}))
	defer server.Close()

	_, err := Post(server.URL).ContentLength(5).Send("hello").Code()
	require.NoError(t, err)
	assert.Empty(t, transferEncoding)
	assert.Equal(t, int64(5), contentLength)
}

func TestJSON(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).JSON(map[string]any{"name": "test", "count": 3}).Code()
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, server.contentType)
	assert.JSONEq(t, `{"name":"test","count":3}`, server.body)
}

func TestForm(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).Form("name", "user").Form("number", "100").Code()
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded; charset=UTF-8", server.contentType)
	assert.Equal(t, "name=user&number=100", server.body)
}

func TestFormMap(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).FormMap(map[string]string{
		"number": "100",
		"name":   "user",
	}).Code()
	require.NoError(t, err)
	assert.Equal(t, "name=user&number=100", server.body)
}

func TestForm_Escaping(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).Form("q", "a b&c=d").Code()
	require.NoError(t, err)
	assert.Equal(t, "q=a+b%26c%3Dd", server.body)
}

func TestFormCharset(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).FormCharset("name", "café", "ISO-8859-1").Code()
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded; charset=ISO-8859-1", server.contentType)
	assert.Equal(t, "name=caf%E9", server.body)
}

func TestMultipart(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).
		Part("description", "content2").
		PartWithType("size", "file.txt", "", "content1").
		Code()
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=00content0boundary00", server.contentType)

	want := "--00content0boundary00\r\n" +
		"Content-Disposition: form-data; name=\"description\"\r\n" +
		"\r\n" +
		"content2" +
		"\r\n--00content0boundary00\r\n" +
		"Content-Disposition: form-data; name=\"size\"; filename=\"file.txt\"\r\n" +
		"\r\n" +
		"content1" +
		"\r\n--00content0boundary00--\r\n"
	assert.Equal(t, want, server.body)
}

func TestMultipart_PartContentType(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).
		PartWithType("doc", "doc.json", "application/json", `{"a":1}`).
		Code()
	require.NoError(t, err)
	assert.Contains(t, server.body, "Content-Disposition: form-data; name=\"doc\"; filename=\"doc.json\"\r\n")
	assert.Contains(t, server.body, "Content-Type: application/json\r\n")
}

func TestMultipart_ParsedByServer(t *testing.T) {
	var field, fileContents string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		field = r.FormValue("description")
		f, _, err := r.FormFile("upload")
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		fileContents = string(data)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("file payload"), 0o644))

	_, err := Post(server.URL).
		Part("description", "a description").
		PartFile("upload", "data.bin", path).
		Code()
	require.NoError(t, err)
	assert.Equal(t, "a description", field)
	assert.Equal(t, "file payload", fileContents)
}

func TestMultipart_Reader(t *testing.T) {
	server := newEchoServer(t)

	_, err := Post(server.URL).
		PartReader("blob", "blob.bin", strings.NewReader("reader payload")).
		Code()
	require.NoError(t, err)
	assert.Contains(t, server.body, "reader payload")
}

func TestBodyModes_CannotMix(t *testing.T) {
	server := newEchoServer(t)

	tests := []struct {
		name  string
		build func() *Request
	}{
		{"raw then form", func() *Request { return Post(server.URL).Send("x").Form("a", "b") }},
		{"form then raw", func() *Request { return Post(server.URL).Form("a", "b").Send("x") }},
		{"raw then part", func() *Request { return Post(server.URL).Send("x").Part("a", "b") }},
		{"part then form", func() *Request { return Post(server.URL).Part("a", "b").Form("c", "d") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Code()
			assert.ErrorIs(t, err, ErrInvalidUsage)
		})
	}
}

func TestProgress(t *testing.T) {
	server := newEchoServer(t)

	payload := strings.Repeat("x", 3*DefaultBufferSize)
	var uploaded, total int64
	var calls int
	_, err := Post(server.URL).
		Progress(func(u, t int64) {
			uploaded, total = u, t
			calls++
		}).
		SendBytes([]byte(payload)).
		Code()
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), uploaded)
	assert.Equal(t, int64(len(payload)), total)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestProgress_UnknownTotal(t *testing.T) {
	server := newEchoServer(t)

	var total int64
	_, err := Post(server.URL).
		Progress(func(u, t int64) { total = t }).
		SendReader(strings.NewReader("data")).
		Code()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), total)
}
