package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpkit/packages/config"
	"github.com/abdul-hamid-achik/httpkit/packages/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear request history",
	Long: `Show requests recorded by previous httpkit invocations.

Examples:
  httpkit history
  httpkit history --limit 10
  httpkit history clear`,
	RunE:         historyListCommand,
	SilenceUsage: true,
}

var historyClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Delete all recorded requests",
	RunE:         historyClearCommand,
	SilenceUsage: true,
}

var (
	historyLimitFlag  int
	historyDBFlag     string
	historyConfigFlag string
)

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDBFlag, "db", "", "History database path")
	historyCmd.PersistentFlags().StringVarP(&historyConfigFlag, "config", "c", "", "Config file path")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum number of entries to show")
	historyCmd.AddCommand(historyClearCmd)
}

func openHistory() (*history.Store, error) {
	path := historyDBFlag
	if path == "" {
		cfg, err := config.Load(historyConfigFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(ExitConfigError)
		}
		path = cfg.GetHistoryPath()
	}
	return history.Open(path)
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), historyLimitFlag)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded requests.")
		return nil
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()

	for _, e := range entries {
		status := green("%d", e.Status)
		switch {
		case e.Status >= 500:
			status = red("%d", e.Status)
		case e.Status >= 400:
			status = yellow("%d", e.Status)
		}
		fmt.Fprintf(out, "%s  %s  %-7s %s  %s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			status,
			e.Method,
			e.URL,
			color.New(color.Faint).Sprintf("(%s)", e.Duration.Round(time.Millisecond)))
	}
	return nil
}

func historyClearCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}
