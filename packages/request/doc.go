// Package request provides a fluent builder for making HTTP requests on top
// of the standard library's http package.
//
// Each Request supports exactly one round trip. Builder calls configure
// headers, connection settings and the body; the first terminal call (Code,
// Body, Bytes, Stream, ...) finalizes the body, performs the round trip and
// caches the response:
//
//	body, err := request.Post("https://api.example.com/users").
//		ContentType("application/json").
//		Send(`{"name": "test"}`).
//		Body()
//
// Builder methods never return errors; the first failure is latched on the
// Request and returned by the terminal call.
package request
