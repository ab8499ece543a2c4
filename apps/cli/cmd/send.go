package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/httpkit/packages/config"
	"github.com/abdul-hamid-achik/httpkit/packages/history"
	"github.com/abdul-hamid-achik/httpkit/packages/request"
	"github.com/abdul-hamid-achik/httpkit/packages/urlutil"
)

type sendOptions struct {
	headers     []string
	data        string
	dataFile    string
	formFields  []string
	parts       []string
	queryParams []string
	encodeURL   bool

	timeout        time.Duration
	connectTimeout time.Duration
	proxy          string
	insecure       bool
	noRedirect     bool
	gzip           bool

	include    bool
	outputFile string
	noColor    bool
	verbose    bool

	requestID  bool
	jsonPath   string
	schemaFile string
	watch      bool
	noHistory  bool
	configPath string
}

func newVerbCommand(method string) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <url>",
		Short: "Send a " + method + " request",
		Long: fmt.Sprintf(`Send a %s request to a URL.

Examples:
  # Simple request
  httpkit %[2]s https://api.example.com/users

  # With headers and query parameters
  httpkit %[2]s https://api.example.com/users -H "Accept: application/json" -q page=2

  # Send a body from a flag or file
  httpkit %[2]s https://api.example.com/users -d '{"name":"test"}'
  httpkit %[2]s https://api.example.com/users --data-file payload.json

  # Form fields and multipart uploads
  httpkit %[2]s https://api.example.com/login -f user=kevin -f pass=secret
  httpkit %[2]s https://api.example.com/upload -F file=@report.pdf

  # Extract a JSON field and validate against a schema
  httpkit %[2]s https://api.example.com/users --json "users.0.name" --schema user.schema.json`,
			method, strings.ToLower(method)),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, method, args[0], opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header (\"Name: value\", repeatable)")
	flags.StringVarP(&opts.data, "data", "d", "", "Raw request body")
	flags.StringVar(&opts.dataFile, "data-file", "", "File to send as the request body")
	flags.StringArrayVarP(&opts.formFields, "form", "f", nil, "Form field (name=value, repeatable)")
	flags.StringArrayVarP(&opts.parts, "part", "F", nil, "Multipart part (name=value or name=@file, repeatable)")
	flags.StringArrayVarP(&opts.queryParams, "query-param", "q", nil, "Query parameter (name=value, repeatable)")
	flags.BoolVar(&opts.encodeURL, "encode-url", false, "Percent-encode the URL before sending")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Overall request timeout (e.g. 30s)")
	flags.DurationVar(&opts.connectTimeout, "connect-timeout", 0, "Connection timeout (e.g. 5s)")
	flags.StringVar(&opts.proxy, "proxy", "", "HTTP proxy as host:port")
	flags.BoolVarP(&opts.insecure, "insecure", "k", false, "Disable SSL certificate validation")
	flags.BoolVar(&opts.noRedirect, "no-redirect", false, "Do not follow redirects")
	flags.BoolVar(&opts.gzip, "gzip", false, "Request and transparently decompress gzip responses")
	flags.BoolVarP(&opts.include, "include", "i", false, "Include response headers in output")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "Write the response body to a file")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&opts.requestID, "request-id", false, "Attach a generated X-Request-ID header")
	flags.StringVar(&opts.jsonPath, "json", "", "Print only this JSON path of the response body")
	flags.StringVar(&opts.schemaFile, "schema", "", "Validate the response body against a JSON schema file")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Re-send when the body file changes (requires --data-file)")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record this request in history")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path")

	return cmd
}

func sendCommand(cmd *cobra.Command, method, url string, opts *sendOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	if opts.noColor || cfg.GetNoColor() {
		color.NoColor = true
	}

	if !opts.watch {
		if err := sendOnce(cmd, method, url, opts, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(exitCode(err))
		}
		return nil
	}

	targets := watchTargets(opts)
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "error: --watch requires --data-file or a file part")
		os.Exit(ExitUsageError)
	}
	return watchAndSend(cmd, method, url, opts, cfg, targets)
}

// watchTargets returns the body files a watched request depends on.
func watchTargets(opts *sendOptions) []string {
	var targets []string
	if opts.dataFile != "" {
		targets = append(targets, filepath.Clean(opts.dataFile))
	}
	for _, part := range opts.parts {
		if _, value, found := strings.Cut(part, "="); found {
			if path, isFile := strings.CutPrefix(value, "@"); isFile {
				targets = append(targets, filepath.Clean(path))
			}
		}
	}
	return targets
}

// watchAndSend re-sends the request whenever one of the body files changes.
func watchAndSend(cmd *cobra.Command, method, url string, opts *sendOptions, cfg *config.Config, targets []string) error {
	if err := sendOnce(cmd, method, url, opts, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories; editors often replace the file on save.
	watched := make(map[string]bool)
	targetSet := make(map[string]bool, len(targets))
	for _, target := range targets {
		targetSet[target] = true
		dir := filepath.Dir(target)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", target, err)
			}
			watched[dir] = true
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", strings.Join(targets, ", "))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var debounceTimer *time.Timer
	resend := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && targetSet[filepath.Clean(event.Name)] {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(200*time.Millisecond, func() {
					select {
					case resend <- struct{}{}:
					default:
					}
				})
			}
		case <-resend:
			if err := sendOnce(cmd, method, url, opts, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watch error: %v\n", werr)
		case <-sigCh:
			return nil
		}
	}
}

// exitCode maps an error from a single send to a process exit code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errSchemaInvalid):
		return ExitSchemaFailure
	case errors.Is(err, request.ErrInvalidUsage):
		return ExitUsageError
	case errors.Is(err, request.ErrRequest):
		return ExitNetworkError
	}
	return ExitRequestError
}

// sendOnce performs one request and reports the outcome. It returns errors
// rather than exiting so watch mode can keep running across failures.
func sendOnce(cmd *cobra.Command, method, url string, opts *sendOptions, cfg *config.Config) error {
	r, requestID, err := buildRequest(method, url, opts, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	code, err := r.Code()
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	recordHistory(requestID, r, code, elapsed, opts, cfg)

	return printResponse(cmd, r, code, elapsed, opts)
}

// buildRequest translates flags and config into a request. The returned id
// is empty unless --request-id was set.
func buildRequest(method, url string, opts *sendOptions, cfg *config.Config) (*request.Request, string, error) {
	if len(opts.queryParams) > 0 {
		query := make(map[string]any, len(opts.queryParams))
		for _, param := range opts.queryParams {
			name, value, err := splitPair(param, "query parameter")
			if err != nil {
				return nil, "", err
			}
			query[name] = value
		}
		url = urlutil.Append(url, query)
	}
	if opts.encodeURL {
		encoded, err := urlutil.Encode(url)
		if err != nil {
			return nil, "", err
		}
		url = encoded
	}

	r := request.New(method, url)

	for name, value := range cfg.Headers {
		r.Header(name, value)
	}
	for _, header := range opts.headers {
		name, value, found := strings.Cut(header, ":")
		if !found || strings.TrimSpace(name) == "" {
			return nil, "", fmt.Errorf("%w: invalid header %q, want \"Name: value\"", request.ErrInvalidUsage, header)
		}
		r.Header(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	var requestID string
	if opts.requestID {
		requestID = uuid.NewString()
		r.Header("X-Request-ID", requestID)
	}

	timeout := opts.timeout
	if timeout == 0 && cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}
	if timeout > 0 {
		r.ReadTimeout(timeout)
	}
	connectTimeout := opts.connectTimeout
	if connectTimeout == 0 && cfg.ConnectTimeout > 0 {
		connectTimeout = time.Duration(cfg.ConnectTimeout) * time.Millisecond
	}
	if connectTimeout > 0 {
		r.ConnectTimeout(connectTimeout)
	}

	proxy := opts.proxy
	if proxy == "" {
		proxy = cfg.Proxy
	}
	if proxy != "" {
		host, portStr, found := strings.Cut(proxy, ":")
		if !found {
			return nil, "", fmt.Errorf("%w: invalid proxy %q, want host:port", request.ErrInvalidUsage, proxy)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid proxy port %q", request.ErrInvalidUsage, portStr)
		}
		r.UseProxy(host, port)
	}

	if opts.insecure || cfg.GetInsecure() {
		r.TrustAllCerts()
	}
	if opts.noRedirect || !cfg.GetFollowRedirects() {
		r.FollowRedirects(false)
	}
	if opts.gzip || cfg.GetGzip() {
		r.AcceptGzipEncoding().Uncompress(true)
	}

	switch {
	case opts.data != "":
		r.Send(opts.data)
	case opts.dataFile != "":
		r.SendFile(opts.dataFile)
	case len(opts.formFields) > 0:
		for _, field := range opts.formFields {
			name, value, err := splitPair(field, "form field")
			if err != nil {
				return nil, "", err
			}
			r.Form(name, value)
		}
	case len(opts.parts) > 0:
		for _, part := range opts.parts {
			name, value, err := splitPair(part, "part")
			if err != nil {
				return nil, "", err
			}
			if path, found := strings.CutPrefix(value, "@"); found {
				r.PartFile(name, filepath.Base(path), path)
			} else {
				r.Part(name, value)
			}
		}
	}

	return r, requestID, nil
}

func splitPair(s, kind string) (string, string, error) {
	name, value, found := strings.Cut(s, "=")
	if !found || name == "" {
		return "", "", fmt.Errorf("%w: invalid %s %q, want name=value", request.ErrInvalidUsage, kind, s)
	}
	return name, value, nil
}

func printResponse(cmd *cobra.Command, r *request.Request, code int, elapsed time.Duration, opts *sendOptions) error {
	out := cmd.OutOrStdout()

	statusColor := color.New(color.FgGreen)
	switch {
	case code >= 500:
		statusColor = color.New(color.FgRed)
	case code >= 400:
		statusColor = color.New(color.FgYellow)
	case code >= 300:
		statusColor = color.New(color.FgCyan)
	}
	message, err := r.Message()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", statusColor.Sprintf("%d %s", code, message), color.New(color.Faint).Sprintf("(%s)", elapsed.Round(time.Millisecond)))

	if opts.include {
		headers, err := r.ResponseHeaders()
		if err != nil {
			return err
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		for _, name := range sortedHeaderNames(headers) {
			for _, value := range headers[name] {
				fmt.Fprintf(out, "%s: %s\n", cyan(name), value)
			}
		}
		fmt.Fprintln(out)
	}

	if opts.outputFile != "" {
		if err := r.ReceiveFile(opts.outputFile); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved response body to %s\n", opts.outputFile)
		return nil
	}

	body, err := r.Body()
	if err != nil {
		return err
	}

	if opts.schemaFile != "" {
		if err := validateSchema(body, opts.schemaFile); err != nil {
			return err
		}
		if opts.verbose {
			fmt.Fprintln(out, color.GreenString("schema: valid"))
		}
	}

	if opts.jsonPath != "" {
		result := gjson.Get(body, opts.jsonPath)
		if !result.Exists() {
			return fmt.Errorf("no value at JSON path %q", opts.jsonPath)
		}
		fmt.Fprintln(out, result.String())
		return nil
	}

	if body != "" {
		fmt.Fprintln(out, body)
	}
	return nil
}

// errSchemaInvalid marks a response body that failed schema validation.
var errSchemaInvalid = errors.New("schema validation failed")

func validateSchema(body, schemaPath string) error {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + abs)
	documentLoader := gojsonschema.NewStringLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var b strings.Builder
	for _, desc := range result.Errors() {
		fmt.Fprintf(&b, "\n  - %s", desc)
	}
	return fmt.Errorf("%w:%s", errSchemaInvalid, b.String())
}

func recordHistory(requestID string, r *request.Request, code int, elapsed time.Duration, opts *sendOptions, cfg *config.Config) {
	if opts.noHistory || !cfg.GetHistory() {
		return
	}

	store, err := history.Open(cfg.GetHistoryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return
	}
	defer store.Close()

	err = store.Record(context.Background(), history.Entry{
		RequestID: requestID,
		Method:    r.Method(),
		URL:       r.URL(),
		Status:    code,
		Duration:  elapsed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func sortedHeaderNames(headers map[string][]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
