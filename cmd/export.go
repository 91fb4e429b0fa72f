package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputPath string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <github-url>",
	Short: "Export the conversation of a repository to a file",
	Long: `Export the saved conversation of a cached repository to various formats
(md, jsonl, yaml, json).

The Markdown export can be loaded back with 'repo-pilot import'. Only
settled question/answer pairs are exported; system notes are left out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Create exporter first so a bad format fails before touching the cache
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

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
		doc := export.NewDocument(repo, corpus, entries)

		path := outputPath
		if path == "" {
			path = defaultExportName(repo, exporter.Extension())
		}

		err = writeOutput(path, func(f *os.File) error {
			if err := exporter.Export(doc, f); err != nil {
				return &internal.ExportError{Format: format, Path: path, Err: err}
			}
			return nil
		})
		if err != nil {
			return err
		}

		if path != "-" {
			internal.PrintSuccess(fmt.Sprintf("Export complete: %d pair(s) exported to %s", len(doc.Entries), path))
		}
		return nil
	},
}

// defaultExportName derives a file name such as octo-hello-src.md
func defaultExportName(repo internal.RepoIdentity, ext string) string {
	name := strings.NewReplacer("/", "-", " ", "-").Replace(repo.CorpusID())
	return name + "." + ext
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (md, jsonl, yaml, json)")
	exportCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output file (- for stdout, default <owner>-<name>.<ext>)")
}
