package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "httpkit",
	Short: "A fluent HTTP client for the command line.",
	Long: `httpkit sends HTTP requests from the command line with a minimum
of ceremony. Request bodies can come from flags, files, form fields or
multipart parts, and responses can be filtered, validated and recorded.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVerbCommand("GET"))
	rootCmd.AddCommand(newVerbCommand("POST"))
	rootCmd.AddCommand(newVerbCommand("PUT"))
	rootCmd.AddCommand(newVerbCommand("DELETE"))
	rootCmd.AddCommand(newVerbCommand("HEAD"))
	rootCmd.AddCommand(newVerbCommand("OPTIONS"))
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
