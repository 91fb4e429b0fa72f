package cmd

import (
	"fmt"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/github"
	"github.com/spf13/cobra"
)

var (
	clearAll         bool
	clearHistoryOnly bool
)

var clearCmd = &cobra.Command{
	Use:   "clear [github-url]",
	Short: "Remove cached corpora and conversations",
	Long: `Remove the cached corpus and the saved conversation of a repository, or
everything with --all. Use --history-only to keep the corpus.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if clearAll == (len(args) == 1) {
			return fmt.Errorf("pass either a repository URL or --all")
		}

		ctx := cmd.Context()
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		if clearAll {
			if err := cache.ClearCache(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			internal.PrintSuccess("Cache cleared")
			return nil
		}

		repo, err := github.ParseRepoURL(args[0])
		if err != nil {
			return err
		}
		if err := cache.DeleteHistory(ctx, repo.CorpusID()); err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		if clearHistoryOnly {
			internal.PrintSuccess(fmt.Sprintf("Conversation of %s deleted", repo.CorpusID()))
			return nil
		}
		if err := cache.EvictCorpus(ctx, repo.CacheKey()); err != nil {
			return fmt.Errorf("failed to evict corpus: %w", err)
		}
		internal.PrintSuccess(fmt.Sprintf("Removed %s from the cache", repo.CorpusID()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "Remove every cached corpus and conversation")
	clearCmd.Flags().BoolVar(&clearHistoryOnly, "history-only", false, "Only delete the conversation")
}
