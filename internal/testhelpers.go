package internal

// CreateTestCorpus creates a populated corpus for the given identity
func CreateTestCorpus(identity RepoIdentity, pushedAt string) *SourceCorpus {
	return &SourceCorpus{
		ID:            identity.CorpusID(),
		Tree:          "README.md\nsrc\n└── a.ts\n",
		Content:       "Project: " + identity.Name + "\n\nREADME.md:\n\n```md\n# hello\n```",
		TokenLength:   42,
		NumberOfLines: 1,
		Languages:     []Language{{Name: "TypeScript", Percentage: 1}},
		SourceVersion: pushedAt,
		SchemaVersion: CorpusSchemaVersion,
	}
}

// CreateTestEntries creates a history of n settled pairs followed by the given notes
func CreateTestEntries(n int, notes ...string) []Entry {
	entries := make([]Entry, 0, n+len(notes))
	for i := 0; i < n; i++ {
		entries = append(entries, NewPair(
			"question "+string(rune('A'+i)),
			"answer "+string(rune('A'+i)),
		))
	}
	for _, note := range notes {
		entries = append(entries, NewNote(note))
	}
	return entries
}
