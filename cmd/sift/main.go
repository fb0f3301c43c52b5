package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sift",
		Short: "Score and gate social posts for brand engagement outreach",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scoreCmd())
	root.AddCommand(resultsCmd())
	root.AddCommand(topicsCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func scoreCmd() *cobra.Command {
	var (
		input      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a batch of posts from a JSONL file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(input, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "JSONL file of candidate posts (default: from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the full report as JSON")
	return cmd
}

func resultsCmd() *cobra.Command {
	var (
		label    string
		minScore float64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show persisted scoring results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(label, minScore, limit)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "filter by label (green/yellow/red)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum total score")
	cmd.Flags().IntVar(&limit, "limit", 20, "max results to show")
	return cmd
}

func topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "Show the configured taxonomy and cached embedding state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopics()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
