package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/repo-pilot/internal/llm"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that repo-pilot is configured and can reach its cache",
	Long: `Check the health of repo-pilot by verifying:
  • Settings validity
  • Cache backend accessibility
  • GitHub and OpenAI credentials
  • Tokenizer availability for the configured model

This command is useful for debugging configuration issues, especially in CI/CD environments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Repo Pilot Health Check"))
		fmt.Fprintln(out)

		// Step 1: Settings
		fmt.Fprintln(out, infoStyle.Render("Step 1: Validating settings..."))
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid settings:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Settings are valid"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Settings file: %s\n", configPath)
			fmt.Fprintf(out, "   Model: %s\n", cfg.OpenAI.Model)
			fmt.Fprintf(out, "   Archive host: %s\n", cfg.GitHub.ArchiveBase)
			fmt.Fprintf(out, "   Max corpus tokens: %s\n", humanize.Comma(int64(cfg.CorpusTokenBudget())))
			fmt.Fprintf(out, "   Max archive size: %s\n", humanize.IBytes(uint64(cfg.Ingest.MaxArchiveBytes)))
		}
		fmt.Fprintln(out)

		// Step 2: Cache
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening cache..."))
		ctx := cmd.Context()
		cache, err := openCache(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open cache:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer closeCache(cache)
		corpora, err := cache.ListCorpora(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to read cache:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Cache available (%d corpora)", len(corpora))))
		if healthcheckVerbose {
			if cfg.Cache.RedisURL != "" {
				fmt.Fprintf(out, "   Redis: %s (namespace %q)\n", cfg.Cache.RedisURL, cfg.Cache.RedisNamespace)
			} else {
				fmt.Fprintf(out, "   SQLite: %s\n", cfg.Cache.Path)
			}
		}
		fmt.Fprintln(out)

		// Step 3: Credentials
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking credentials..."))
		if cfg.GitHub.Token != "" {
			fmt.Fprintln(out, successStyle.Render("✅ GitHub token configured"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No GitHub token: private repositories are unavailable and the API is rate limited"))
		}
		chatReady := cfg.ValidateChat() == nil
		if chatReady {
			fmt.Fprintln(out, successStyle.Render("✅ OpenAI API key configured"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No OpenAI API key: 'repo-pilot chat' is unavailable"))
		}
		fmt.Fprintln(out)

		// Step 4: Tokenizer
		fmt.Fprintln(out, infoStyle.Render("Step 4: Loading tokenizer..."))
		tokenizer, err := llm.NewTokenizer(cfg.OpenAI.Model)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to load tokenizer:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		n, err := tokenizer.CountTokens(ctx, "hello world")
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Tokenizer failed:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Tokenizer ready"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   \"hello world\" = %d tokens\n", n)
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if chatReady {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Ingestion available, chat needs an OpenAI API key"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
