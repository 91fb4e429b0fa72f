package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/github"
	"github.com/iksnae/repo-pilot/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	ingestShowTree bool
	ingestOut      string
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	languageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <github-url>",
	Short: "Build and cache the source corpus of a repository",
	Long: `Download a repository branch, keep its source files and concatenate them
into a single annotated text ready to be sent to a model.

The URL may point at a branch or a subdirectory:
  https://github.com/owner/name
  https://github.com/owner/name/tree/branch
  https://github.com/owner/name/tree/branch/path/to/dir

The corpus is cached and reused until the repository receives a new push.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		repo, err := github.ParseRepoURL(args[0])
		if err != nil {
			return err
		}

		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		orchestrator, err := newOrchestrator(cache)
		if err != nil {
			return err
		}

		progress := newIngestProgress(ctx)
		result, err := orchestrator.Run(ctx, repo, progress.observer())
		if err != nil {
			progress.stop(err)
			return err
		}
		if result.Failed() {
			progress.stop(errors.New(result.Error))
			return fmt.Errorf("ingestion of %s failed: %s", result.ID, result.Error)
		}
		progress.stop(nil)

		printCorpusSummary(repo, progress.info, result)
		if budget := cfg.CorpusTokenBudget(); result.TokenLength > budget {
			internal.PrintWarning(fmt.Sprintf("Source code is too large for chat (%s tokens, limit %s)",
				humanize.Comma(int64(result.TokenLength)), humanize.Comma(int64(budget))))
		}
		if ingestShowTree {
			fmt.Println()
			fmt.Println(result.Tree)
		}

		if ingestOut != "" {
			err := writeOutput(ingestOut, func(f *os.File) error {
				_, err := f.WriteString(result.Content)
				return err
			})
			if err != nil {
				return err
			}
			if ingestOut != "-" {
				internal.PrintSuccess(fmt.Sprintf("Wrote corpus to %s", ingestOut))
			}
		}
		return nil
	},
}

// ingestProgress renders ingestion states on a single status line
type ingestProgress struct {
	line *internal.StatusLine
	info *internal.RepoInfo
}

func newIngestProgress(ctx context.Context) *ingestProgress {
	p := &ingestProgress{line: internal.NewStatusLine(os.Stderr, stateMessage(ingest.ResolvingInfo))}
	if internal.IsTerminal(os.Stderr) {
		p.line.Start(ctx)
	}
	return p
}

func (p *ingestProgress) observer() ingest.Observer {
	return ingest.ObserverFuncs{
		State: func(s ingest.State) {
			if msg := stateMessage(s); msg != "" {
				p.line.Update(msg)
				internal.LogDebug("%s", msg)
			}
		},
		Info: func(info *internal.RepoInfo) {
			p.info = info
		},
		Progress: func(received int64) {
			p.line.Update(internal.FetchingMessage(received))
		},
	}
}

func (p *ingestProgress) stop(err error) {
	if err == nil {
		p.line.Update("✨ Source code ready")
	}
	p.line.Stop(err)
}

func stateMessage(s ingest.State) string {
	switch s {
	case ingest.ResolvingInfo:
		return "🔎 Resolving repository"
	case ingest.NotFound:
		return "🚫 Repository not found"
	case ingest.FetchingLanguages:
		return "🔎 Fetching languages"
	case ingest.DownloadingArchive:
		return internal.FetchingMessage(0)
	case ingest.Extracting:
		return "📦 Extracting archive"
	case ingest.CountingTokens:
		return "🧮 Counting tokens"
	case ingest.Failed:
		return "💥 Ingestion failed"
	}
	return ""
}

func printCorpusSummary(repo internal.RepoIdentity, info *internal.RepoInfo, corpus *internal.SourceCorpus) {
	fmt.Println()
	title := repo.ID()
	if name := repo.ScopeName(); name != "" {
		title += " · " + name
	}
	fmt.Println(headerStyle.Render("📖 " + title))
	fmt.Printf("%s %s\n", labelStyle.Render("URL:      "), repo.URL())
	if info != nil {
		fmt.Printf("%s %s\n", labelStyle.Render("Branch:   "), branchOf(repo, info))
	}
	fmt.Printf("%s %s lines, %s tokens\n", labelStyle.Render("Content:  "),
		countStyle.Render(humanize.Comma(int64(corpus.NumberOfLines))),
		countStyle.Render(humanize.Comma(int64(corpus.TokenLength))))
	if langs := formatLanguages(corpus.Languages, 5); langs != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Languages:"), languageStyle.Render(langs))
	}
}

func branchOf(repo internal.RepoIdentity, info *internal.RepoInfo) string {
	if repo.Branch != "" {
		return repo.Branch
	}
	return info.DefaultBranch
}

// formatLanguages renders at most limit languages as "Go 80.1%, Shell 19.9%"
func formatLanguages(languages []internal.Language, limit int) string {
	parts := make([]string, 0, limit)
	for i, lang := range languages {
		if i == limit {
			parts = append(parts, fmt.Sprintf("+%d more", len(languages)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%s %s%%", lang.Name, humanize.FtoaWithDigits(lang.Percentage*100, 1)))
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestShowTree, "tree", false, "Print the directory tree of the corpus")
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "", "Write the corpus text to a file (- for stdout)")
}
