// Package urlutil builds and normalizes request URLs: appending query
// parameters to a base URL and percent-encoding a URL into its strict
// ASCII form.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// ErrMalformed is returned by Encode when the input cannot be parsed as an
// absolute URL.
var ErrMalformed = errors.New("malformed URL")

// ErrOddPairs is returned by AppendPairs when the flat key/value list has an
// odd number of elements.
var ErrOddPairs = errors.New("must specify an even number of parameter names/values")

// Append appends the map entries as query parameters to the base URL.
// Keys are appended in sorted order so the result is deterministic. A nil
// value renders as "key=" and a slice or array value renders as repeated
// "key[]=element" pairs. A nil or empty map returns the base URL unchanged.
//
// Values are not percent-encoded; pass the result through Encode when the
// keys or values may contain reserved characters.
func Append(base string, query map[string]any) string {
	if len(query) == 0 {
		return base
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(base)
	addPathSeparator(base, &b)
	addParamPrefix(base, &b)

	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		addParam(k, query[k], &b)
	}
	return b.String()
}

// AppendPairs appends the flat list of alternating names and values as query
// parameters to the base URL. An empty list returns the base URL unchanged.
func AppendPairs(base string, pairs ...any) (string, error) {
	if len(pairs) == 0 {
		return base, nil
	}
	if len(pairs)%2 != 0 {
		return "", ErrOddPairs
	}

	var b strings.Builder
	b.WriteString(base)
	addPathSeparator(base, &b)
	addParamPrefix(base, &b)

	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		addParam(fmt.Sprint(pairs[i]), pairs[i+1], &b)
	}
	return b.String(), nil
}

// addPathSeparator appends a '/' when the base URL has no path segment,
// i.e. when the last slash is still part of the "://" separator.
func addPathSeparator(base string, b *strings.Builder) {
	if strings.IndexByte(base, ':')+2 == strings.LastIndexByte(base, '/') {
		b.WriteByte('/')
	}
}

// addParamPrefix appends '?' when the base URL has no query string yet, or
// '&' when it has one that does not already end in a separator.
func addParamPrefix(base string, b *strings.Builder) {
	queryStart := strings.IndexByte(base, '?')
	last := len(base) - 1
	if queryStart == -1 {
		b.WriteByte('?')
	} else if queryStart < last && base[last] != '&' {
		b.WriteByte('&')
	}
}

func addParam(key string, value any, b *strings.Builder) {
	if value != nil {
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				if i > 0 {
					b.WriteByte('&')
				}
				b.WriteString(key)
				b.WriteString("[]=")
				elem := rv.Index(i)
				if elem.Kind() == reflect.Interface && elem.IsNil() {
					continue
				}
				b.WriteString(fmt.Sprint(elem.Interface()))
			}
			return
		}
	}

	b.WriteString(key)
	b.WriteByte('=')
	if value != nil {
		b.WriteString(fmt.Sprint(value))
	}
}

// Encode returns the strict ASCII percent-encoded form of the URL,
// preserving scheme, host (with port), path and query while dropping any
// fragment. Literal '+' characters in the query are escaped to %2B since
// they are otherwise ambiguous with space-as-plus form encoding. Encode is
// idempotent on URLs that are already fully encoded.
func Encode(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrMalformed, raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w %q: missing scheme or host", ErrMalformed, raw)
	}

	encoded := url.URL{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
	}

	result := encoded.String()
	if parsed.ForceQuery || parsed.RawQuery != "" {
		result += "?" + encodeQuery(parsed.RawQuery)
	}
	return result, nil
}

// encodeQuery percent-encodes spaces, control bytes, non-ASCII bytes and
// literal '+' in a raw query string while leaving its structure (existing
// percent escapes, '&', '=') untouched.
func encodeQuery(rawQuery string) string {
	var b strings.Builder
	for i := 0; i < len(rawQuery); i++ {
		c := rawQuery[i]
		switch {
		case c == '+':
			b.WriteString("%2B")
		case c == ' ' || c < 0x20 || c > 0x7e:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
