// Package cmd implements the httpkit CLI commands using Cobra.
//
// Available commands:
//   - get/post/put/delete/head/options: Send a request to a URL
//   - bench: Benchmark an endpoint and report latency statistics
//   - history: Show or clear recorded requests
//   - version: Show httpkit version information
//
// Request commands support flags for headers, bodies (raw, file, form,
// multipart), JSON extraction, schema validation, and watch mode for
// development workflows.
package cmd
