package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/export"
	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.md>",
	Short: "Load a conversation exported as Markdown",
	Long: `Load a conversation previously exported with 'repo-pilot export --format md'
and make it the saved conversation of its repository, replacing the current one.

The repository named in the document must already be cached; run
'repo-pilot ingest <url>' first, or use /import inside 'repo-pilot chat'
which ingests it for you.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		imported, err := export.ParseMarkdown(string(data))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		_, corpus, err := loadCachedCorpus(ctx, cache, imported.RepoURL)
		if err != nil {
			return err
		}
		if err := cache.SaveHistory(ctx, corpus.ID, imported.Entries); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}

		internal.PrintSuccess(fmt.Sprintf("Imported %d pair(s) into %s", len(imported.Entries), corpus.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
