package request

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// validCharset falls back to UTF-8 for an absent charset.
func validCharset(charset string) string {
	if charset == "" {
		return CharsetUTF8
	}
	return charset
}

// charsetEncoding resolves an IANA charset name. A nil encoding means the
// charset is UTF-8 (or absent) and no transformation is needed.
func charsetEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

// encodeText converts a UTF-8 string to bytes in the given charset.
func encodeText(s, charset string) ([]byte, error) {
	enc, err := charsetEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(s), nil
	}
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	return out, err
}

// decodeText converts bytes in the given charset to a UTF-8 string.
func decodeText(data []byte, charset string) (string, error) {
	enc, err := charsetEncoding(charset)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return string(data), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeReader wraps r so reads yield UTF-8 text decoded from the charset.
func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	enc, err := charsetEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
