package export

import "github.com/iksnae/repo-pilot/internal"

// Document is a conversation together with the corpus it was held over
type Document struct {
	RepoName      string           `json:"repo_name" yaml:"repo_name"`
	ScopeName     string           `json:"scope_name,omitempty" yaml:"scope_name,omitempty"`
	RepoURL       string           `json:"repo_url" yaml:"repo_url"`
	NumberOfLines int              `json:"number_of_lines" yaml:"number_of_lines"`
	TokenLength   int              `json:"token_length" yaml:"token_length"`
	Tree          string           `json:"tree,omitempty" yaml:"tree,omitempty"`
	Entries       []internal.Entry `json:"entries" yaml:"entries"`
}

// NewDocument builds a document from a bound corpus and its history.
// System notes and unanswered pairs are left out.
func NewDocument(repo internal.RepoIdentity, corpus *internal.SourceCorpus, entries []internal.Entry) *Document {
	doc := &Document{
		RepoName:  repo.ID(),
		ScopeName: repo.ScopeName(),
		RepoURL:   repo.URL(),
		Entries:   settledPairs(entries),
	}
	if corpus != nil {
		doc.NumberOfLines = corpus.NumberOfLines
		doc.TokenLength = corpus.TokenLength
		doc.Tree = corpus.Tree
	}
	return doc
}

// Title returns the document heading text
func (d *Document) Title() string {
	if d.ScopeName == "" {
		return d.RepoName
	}
	return d.RepoName + " - " + d.ScopeName
}

func settledPairs(entries []internal.Entry) []internal.Entry {
	pairs := make([]internal.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsPair() && e.Model != nil {
			pairs = append(pairs, e.Clone())
		}
	}
	return pairs
}
