package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	envFile    string
	cachePath  string
	redisURL   string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// cfg is loaded before any subcommand runs
	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "repo-pilot",
	Short: "Chat with an LLM about any GitHub repository",
	Long: `A CLI tool that turns a GitHub repository into an LLM-ready source corpus
and lets you hold a conversation about it.

The repository archive is downloaded, filtered down to its source files and
concatenated into one annotated text, which is cached until the repository
receives a new push. Conversations are kept per repository and can be
exported to Markdown and imported back.

Features:
  • Ingest public or private repositories, branches and subdirectories
  • Token and line counts before you start chatting
  • Streaming answers with per-repository history
  • Export in multiple formats (Markdown, JSONL, YAML, JSON)
  • SQLite or Redis backed cache
  • HTTP API streaming ingestion progress

Quick Start:
  repo-pilot ingest https://github.com/owner/name     # Build and cache the corpus
  repo-pilot chat https://github.com/owner/name       # Start a conversation
  repo-pilot export https://github.com/owner/name     # Export it as Markdown`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, envFile)
		if err != nil {
			return err
		}
		if cachePath != "" {
			loaded.Cache.Path = cachePath
		}
		if redisURL != "" {
			loaded.Cache.RedisURL = redisURL
		}

		level, err := internal.ParseLogLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		internal.SetLogLevel(level)
		if verbose {
			internal.SetVerbose(true)
		}

		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Settings file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the process environment")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Cache database file (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL of a shared cache (overrides --cache)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
