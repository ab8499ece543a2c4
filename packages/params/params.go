// Package params extracts name=value parameters from semicolon-delimited
// HTTP header values, such as the charset in
// "Content-Type: text/html; charset=UTF-8".
package params

import "strings"

// Get returns the named parameter from the header value. The boolean reports
// whether the parameter was present at all; a parameter written as "name="
// or `name=""` is present with an empty value.
func Get(header, name string) (string, bool) {
	if header == "" || name == "" {
		return "", false
	}

	rest, ok := parameterSection(header)
	if !ok {
		return "", false
	}

	for _, segment := range strings.Split(rest, ";") {
		k, v, ok := splitParam(segment)
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

// All returns every parameter in the header value as a name to value map.
// The map is non-nil but empty when the header carries no parameters.
func All(header string) map[string]string {
	result := make(map[string]string)
	rest, ok := parameterSection(header)
	if !ok {
		return result
	}

	for _, segment := range strings.Split(rest, ";") {
		if k, v, ok := splitParam(segment); ok {
			result[k] = v
		}
	}
	return result
}

// parameterSection returns everything after the first ';'. A header without
// a ';', or one ending in ';', has no parameters.
func parameterSection(header string) (string, bool) {
	i := strings.IndexByte(header, ';')
	if i == -1 || i == len(header)-1 {
		return "", false
	}
	return header[i+1:], true
}

// splitParam splits one "name=value" segment, trimming whitespace and
// stripping one layer of surrounding double quotes from the value. Segments
// without a '=' or with an empty name are skipped.
func splitParam(segment string) (name, value string, ok bool) {
	eq := strings.IndexByte(segment, '=')
	if eq == -1 {
		return "", "", false
	}

	name = strings.TrimSpace(segment[:eq])
	if name == "" {
		return "", "", false
	}

	value = strings.TrimSpace(segment[eq+1:])
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	return name, value, true
}
