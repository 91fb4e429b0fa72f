package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/repo-pilot/internal"
	"github.com/spf13/cobra"
)

var (
	listClearCache bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached repositories",
	Long:  `List every repository corpus in the cache with its size and source version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		// Clear cache if requested
		if listClearCache {
			if err := cache.ClearCache(ctx); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		entries, err := cache.ListCorpora(ctx)
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}
		displayCorpora(entries)
		return nil
	},
}

func displayCorpora(entries []internal.CorpusIndexEntry) {
	if len(entries) == 0 {
		fmt.Println(headerStyle.Render("📋 No cached repositories"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d cached repositor%s", len(entries), pluralY(len(entries))))
	fmt.Println(header)
	fmt.Println()

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("Repository")+"\t"+titleStyle.Render("Lines")+"\t"+titleStyle.Render("Tokens")+"\t"+titleStyle.Render("Pushed")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 80))

	for _, entry := range entries {
		id := entry.ID
		if len(id) > 50 {
			id = id[:47] + "..."
		}
		name := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(id)

		lines := countStyle.Render(humanize.Comma(int64(entry.NumberOfLines)))
		tokens := countStyle.Render(humanize.Comma(int64(entry.TokenLength)))
		if entry.Error != "" {
			lines = failedStyle.Render("failed")
			tokens = dateStyle.Render("—")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", name, lines, tokens, dateStyle.Render(pushedAgo(entry.SourceVersion)))
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("💡 Tip: Use ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render("repo-pilot chat https://github.com/"+entries[0].ID) +
		idStyle.Render(" to start a conversation"))
}

// pushedAgo renders a source version relative to now
func pushedAgo(sourceVersion string) string {
	if sourceVersion == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, sourceVersion)
	if err != nil {
		return sourceVersion
	}
	return humanize.Time(t)
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the cache before listing")
}
