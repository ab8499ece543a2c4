package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpkit/packages/bench"
	"github.com/abdul-hamid-achik/httpkit/packages/request"
)

var benchCmd = &cobra.Command{
	Use:   "bench <url>",
	Short: "Benchmark an endpoint",
	Long: `Send repeated requests to an endpoint and report latency statistics.

Examples:
  # 100 requests, 10 in parallel
  httpkit bench https://api.example.com/health -n 100 -C 10

  # Rate limited to 50 requests per second for 30 seconds
  httpkit bench https://api.example.com/health --duration 30s --rate 50

  # POST with a body
  httpkit bench https://api.example.com/users -X POST -d '{"name":"test"}'`,
	Args:         cobra.ExactArgs(1),
	RunE:         benchCommand,
	SilenceUsage: true,
}

var (
	benchRequestsFlag    int
	benchConcurrencyFlag int
	benchRateFlag        float64
	benchDurationFlag    time.Duration
	benchMethodFlag      string
	benchHeaderFlag      []string
	benchDataFlag        string
	benchTimeoutFlag     time.Duration
	benchInsecureFlag    bool
	benchNoColorFlag     bool
)

func init() {
	benchCmd.Flags().IntVarP(&benchRequestsFlag, "requests", "n", 100, "Total number of requests")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "C", 1, "Number of parallel workers")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 0, "Target requests per second (0 = unlimited)")
	benchCmd.Flags().DurationVarP(&benchDurationFlag, "duration", "D", 0, "Run for a duration instead of a fixed count")
	benchCmd.Flags().StringVarP(&benchMethodFlag, "method", "X", "GET", "HTTP method")
	benchCmd.Flags().StringArrayVarP(&benchHeaderFlag, "header", "H", nil, "Request header (\"Name: value\", repeatable)")
	benchCmd.Flags().StringVarP(&benchDataFlag, "data", "d", "", "Raw request body")
	benchCmd.Flags().DurationVar(&benchTimeoutFlag, "timeout", 30*time.Second, "Per-request timeout")
	benchCmd.Flags().BoolVarP(&benchInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	benchCmd.Flags().BoolVar(&benchNoColorFlag, "no-color", false, "Disable colored output")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	url := args[0]
	if benchNoColorFlag {
		color.NoColor = true
	}

	headers := make(map[string]string, len(benchHeaderFlag))
	for _, header := range benchHeaderFlag {
		name, value, found := strings.Cut(header, ":")
		if !found || strings.TrimSpace(name) == "" {
			fmt.Fprintf(os.Stderr, "error: invalid header %q, want \"Name: value\"\n", header)
			os.Exit(ExitUsageError)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := bench.New(bench.Config{
		Requests:    benchRequestsFlag,
		Concurrency: benchConcurrencyFlag,
		Rate:        benchRateFlag,
		Duration:    benchDurationFlag,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Benchmarking %s %s...\n\n", benchMethodFlag, url)

	summary, err := runner.Run(ctx, func(ctx context.Context) (int, error) {
		r := request.New(benchMethodFlag, url).
			ReadTimeout(benchTimeoutFlag).
			Headers(headers)
		if benchInsecureFlag {
			r.TrustAllCerts()
		}
		if benchDataFlag != "" {
			r.Send(benchDataFlag)
		}
		defer r.Close()
		return r.Code()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printBenchSummary(cmd, summary)
	return nil
}

func printBenchSummary(cmd *cobra.Command, s *bench.Summary) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(out, "%s\n", bold("Summary"))
	fmt.Fprintf(out, "  Duration:    %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Requests:    %d\n", s.TotalRequests)
	fmt.Fprintf(out, "  Success:     %s\n", green(s.SuccessCount))
	if s.ErrorCount > 0 {
		fmt.Fprintf(out, "  Errors:      %s\n", red(s.ErrorCount))
	} else {
		fmt.Fprintf(out, "  Errors:      %d\n", s.ErrorCount)
	}
	fmt.Fprintf(out, "  Throughput:  %.1f req/s\n", s.RPS)

	fmt.Fprintf(out, "\n%s\n", bold("Latency"))
	fmt.Fprintf(out, "  Min:   %s\n", s.Min.Round(time.Microsecond))
	fmt.Fprintf(out, "  Mean:  %s\n", s.Mean.Round(time.Microsecond))
	fmt.Fprintf(out, "  P50:   %s\n", s.P50.Round(time.Microsecond))
	fmt.Fprintf(out, "  P95:   %s\n", s.P95.Round(time.Microsecond))
	fmt.Fprintf(out, "  P99:   %s\n", s.P99.Round(time.Microsecond))
	fmt.Fprintf(out, "  Max:   %s\n", s.Max.Round(time.Microsecond))

	if len(s.StatusCodes) > 0 {
		fmt.Fprintf(out, "\n%s\n", bold("Status codes"))
		for code, count := range s.StatusCodes {
			fmt.Fprintf(out, "  %d: %d\n", code, count)
		}
	}
}
