package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/repo-pilot/internal"
	"github.com/spf13/cobra"
)

var (
	limit    int
	showTree bool
)

var (
	// Styles for conversations
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true).
			Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <github-url>",
	Short: "Show a cached repository and its conversation",
	Long:  `Display the cached corpus summary of a repository and its saved conversation history.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer closeCache(cache)

		repo, corpus, err := loadCachedCorpus(ctx, cache, args[0])
		if err != nil {
			return err
		}
		entries, err := cache.LoadHistory(ctx, corpus.ID)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		displaySessionHeader(repo, corpus, entries)
		if showTree {
			fmt.Println(corpus.Tree)
			fmt.Println()
		}

		toShow := entries
		if limit > 0 && limit < len(toShow) {
			// most recent entries
			toShow = toShow[len(toShow)-limit:]
		}
		offset := len(entries) - len(toShow)
		for i, entry := range toShow {
			displayEntryTo(cmd.OutOrStdout(), offset+i+1, entry, len(entries))
		}

		if offset > 0 {
			fmt.Println(lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d earlier entr%s)", offset, pluralY(offset))))
		}
		return nil
	},
}

func displaySessionHeader(repo internal.RepoIdentity, corpus *internal.SourceCorpus, entries []internal.Entry) {
	title := repo.ID()
	if name := repo.ScopeName(); name != "" {
		title += " · " + name
	}
	fmt.Println(sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	metaParts := []string{
		fmt.Sprintf("Lines: %s", humanize.Comma(int64(corpus.NumberOfLines))),
		fmt.Sprintf("Tokens: %s", humanize.Comma(int64(corpus.TokenLength))),
		fmt.Sprintf("Pairs: %d", len(internal.Pairs(entries))),
	}
	if corpus.SourceVersion != "" {
		metaParts = append(metaParts, fmt.Sprintf("Pushed: %s", pushedAgo(corpus.SourceVersion)))
	}
	fmt.Println(sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
}

func displayEntryTo(w io.Writer, index int, entry internal.Entry, total int) {
	position := timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))

	if entry.IsNote() {
		fmt.Fprintln(w, noteStyle.Render("⚠ "+entry.Note)+" "+position)
		fmt.Fprintln(w)
		return
	}
	if entry.User == nil {
		return
	}

	fmt.Fprintln(w, userMessageStyle.Render("👤 You")+" "+position)
	displayContent(w, entry.User.Content)

	if entry.Model == nil {
		return
	}
	header := assistantMessageStyle.Render("🤖 Repo Pilot")
	if u := entry.Model.Usage; u != nil {
		header += " " + timestampStyle.Render(fmt.Sprintf("%s in / %s out", humanize.Comma(int64(u.PromptTokens)), humanize.Comma(int64(u.CompletionTokens))))
	}
	fmt.Fprintln(w, header)
	displayContent(w, entry.Model.Content)
}

func displayContent(w io.Writer, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
		return
	}
	fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent entries")
	showCmd.Flags().BoolVar(&showTree, "tree", false, "Print the directory tree of the corpus")
}
