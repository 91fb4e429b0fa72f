package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/iksnae/repo-pilot/internal"
)

// Section markers of the markdown document
const (
	SourceSectionMarker       = "## 📖 Source Code"
	ConversationSectionMarker = "## 💬 Conversation"
	RepoLinePrefix            = "- Repo: "
	pairSeparator             = "---"
	questionPrefix            = "### "
)

// Rendered is a markdown export: one fragment per turn and the assembled
// document
type Rendered struct {
	Messages []string
	Content  string
}

// RenderMarkdown renders doc so that ParseMarkdown recovers its pairs.
// Questions are trimmed of surrounding whitespace; answers are kept as is.
func RenderMarkdown(doc *Document) Rendered {
	var messages []string
	for _, e := range settledPairs(doc.Entries) {
		messages = append(messages,
			questionPrefix+escapeLines(strings.TrimSpace(e.User.Content)),
			escapeLines(e.Model.Content),
		)
	}

	parts := []string{
		"# " + doc.Title(),
		SourceSectionMarker,
		fmt.Sprintf("%s%s\n- Content length: %s lines, %s tokens",
			RepoLinePrefix, doc.RepoURL,
			humanize.Comma(int64(doc.NumberOfLines)), humanize.Comma(int64(doc.TokenLength))),
	}
	if doc.Tree != "" {
		parts = append(parts, "```\n"+strings.TrimRight(doc.Tree, "\n")+"\n```")
	}
	parts = append(parts, ConversationSectionMarker)
	for i := 0; i+1 < len(messages); i += 2 {
		parts = append(parts, pairSeparator, messages[i], messages[i+1])
	}

	return Rendered{
		Messages: messages,
		Content:  strings.Join(parts, "\n\n") + "\n",
	}
}

// MarkdownExporter exports conversations in the markdown document format
type MarkdownExporter struct{}

// Export exports a document to Markdown format
func (e *MarkdownExporter) Export(doc *Document, w io.Writer) error {
	_, err := io.WriteString(w, RenderMarkdown(doc).Content)
	return err
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

// Imported is the result of parsing a markdown document
type Imported struct {
	Title   string
	RepoURL string
	Entries []internal.Entry
}

// ParseMarkdown reads a document written by RenderMarkdown. A document
// without a repo line is rejected with *internal.ImportError; a document
// without a conversation section imports as an empty history.
func ParseMarkdown(text string) (*Imported, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	imported := &Imported{Entries: []internal.Entry{}}

	conversation := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case imported.Title == "" && strings.HasPrefix(trimmed, "# "):
			imported.Title = strings.TrimSpace(trimmed[2:])
		case imported.RepoURL == "" && strings.HasPrefix(trimmed, RepoLinePrefix+"https://github.com/"):
			imported.RepoURL = strings.TrimSpace(strings.TrimPrefix(trimmed, RepoLinePrefix))
		case trimmed == ConversationSectionMarker:
			conversation = i + 1
		}
		if conversation >= 0 {
			break
		}
	}

	if imported.RepoURL == "" {
		return nil, &internal.ImportError{Reason: fmt.Sprintf("no repo url found, expected a line starting with %q", RepoLinePrefix+"https://github.com/")}
	}
	if conversation < 0 {
		return imported, nil
	}

	for _, block := range splitPairs(lines[conversation:]) {
		entry, ok := parsePair(block)
		if !ok {
			internal.LogDebug("Skipping markdown block without a question: %q", strings.Join(block, "\n"))
			continue
		}
		imported.Entries = append(imported.Entries, entry)
	}
	return imported, nil
}

// escapeLines prefixes a backslash to every line that would otherwise read
// as a pair separator or a question heading
func escapeLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if isStructural(line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeLine(line string) string {
	if strings.HasPrefix(line, `\`) && isStructural(line) {
		return line[1:]
	}
	return line
}

// isStructural reports whether line, ignoring any leading backslashes, is a
// separator or a question heading. Escaping a structural line keeps it
// structural, which makes unescapeLine the exact inverse.
func isStructural(line string) bool {
	rest := strings.TrimLeft(line, `\`)
	return strings.TrimSpace(rest) == pairSeparator || strings.HasPrefix(rest, questionPrefix)
}

// splitPairs cuts the conversation section at separator lines followed by a
// question heading. Rendered content never contains either unescaped.
func splitPairs(lines []string) [][]string {
	var blocks [][]string
	var current []string
	for i, line := range lines {
		if strings.TrimSpace(line) == pairSeparator && nextIsQuestion(lines[i+1:]) {
			if current != nil {
				blocks = append(blocks, current)
			}
			current = []string{}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		blocks = append(blocks, current)
	}
	return blocks
}

func nextIsQuestion(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.HasPrefix(line, questionPrefix)
	}
	return false
}

// parsePair reads "### question" lines up to the first blank line. The rest
// of the block is the answer, less the blank line that opens it and the one
// that closes it.
func parsePair(block []string) (internal.Entry, bool) {
	start := 0
	for start < len(block) && strings.TrimSpace(block[start]) == "" {
		start++
	}
	if start == len(block) || !strings.HasPrefix(block[start], questionPrefix) {
		return internal.Entry{}, false
	}

	question := []string{unescapeLine(strings.TrimPrefix(block[start], questionPrefix))}
	i := start + 1
	for ; i < len(block) && strings.TrimSpace(block[i]) != ""; i++ {
		question = append(question, unescapeLine(block[i]))
	}

	answer := block[i:]
	if len(answer) > 0 {
		answer = answer[1:]
	}
	if n := len(answer); n > 0 && strings.TrimSpace(answer[n-1]) == "" {
		answer = answer[:n-1]
	}
	for j, line := range answer {
		answer[j] = unescapeLine(line)
	}
	return internal.NewPair(strings.TrimSpace(strings.Join(question, "\n")), strings.Join(answer, "\n")), true
}
