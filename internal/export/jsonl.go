package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/repo-pilot/internal"
)

// JSONLExporter exports conversations in JSONL format (one turn per line)
type JSONLExporter struct{}

// Export exports a document to JSONL format
func (e *JSONLExporter) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, turn := range internal.Turns(doc.Entries) {
		// Create turn object
		obj := map[string]interface{}{
			"repo":    doc.RepoName,
			"index":   i,
			"role":    turn.Role,
			"content": turn.Content,
		}

		// Add usage if reported
		if turn.Usage != nil {
			obj["usage"] = turn.Usage
		}

		// Encode to single line
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
