package corpus

import "strings"

// Header describes the project a corpus was built from
type Header struct {
	Project string
	URL     string
	Branch  string
	Tree    string
}

// Compose prefixes the combined source with the project header and the
// source tree. This is the text that is tokenized and sent to the model.
func Compose(h Header, combined string) string {
	parts := []string{
		"Project: " + h.Project,
		"URL: " + h.URL,
	}
	if h.Branch != "" {
		parts = append(parts, "Branch: "+h.Branch)
	}
	parts = append(parts, "Source tree:\n\n```\n"+h.Tree+"\n```")
	if combined != "" {
		parts = append(parts, combined)
	}
	return strings.Join(parts, "\n\n")
}
