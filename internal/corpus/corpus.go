// Package corpus turns filtered archive entries into the annotated text a
// model reads as context.
package corpus

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/archive"
)

// DecodePolicy decides what happens to files that are not valid UTF-8
type DecodePolicy int

const (
	// FailOnUndecodable fails the whole build with *internal.DecodeError
	FailOnUndecodable DecodePolicy = iota
	// SkipUndecodable leaves the file out and logs a warning
	SkipUndecodable
)

// Options configures Build
type Options struct {
	// ProcessFileName rewrites an archive path for display, e.g. stripping
	// the archive root folder. Nil keeps paths unchanged.
	ProcessFileName func(path string) string
	// Transform rewrites file text before it is put in a block. Line counts
	// are always computed on the original text.
	Transform     func(ctx context.Context, path, ext, text string) string
	OnDecodeError DecodePolicy
}

// File is one processed source file
type File struct {
	Path  string // after ProcessFileName
	Ext   string // final dot suffix of the archive path
	Text  string
	Lines int
	Block string
}

// Result is the output of Build
type Result struct {
	Tree       string
	Files      []File
	Combined   string
	TotalLines int
	Skipped    []string
}

// Build reads entries in order and assembles the combined source text.
// The output only depends on the entries and options, so rebuilding an
// unchanged archive is byte-identical.
func Build(ctx context.Context, entries []archive.Entry, opts Options) (*Result, error) {
	result := &Result{Files: make([]File, 0, len(entries))}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := readEntry(e)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Path(), err)
		}
		if !utf8.Valid(raw) {
			decodeErr := &internal.DecodeError{Path: e.Path()}
			if opts.OnDecodeError == SkipUndecodable {
				internal.LogWarn("Skipping %v", decodeErr)
				result.Skipped = append(result.Skipped, e.Path())
				continue
			}
			return nil, decodeErr
		}

		text := string(raw)
		lines := CountLines(text)
		ext := archive.Ext(e.Path())

		name := e.Path()
		if opts.ProcessFileName != nil {
			name = opts.ProcessFileName(name)
		}
		if opts.Transform != nil {
			text = opts.Transform(ctx, name, ext, text)
		}

		result.TotalLines += lines
		result.Files = append(result.Files, File{
			Path:  name,
			Ext:   ext,
			Text:  text,
			Lines: lines,
			Block: FormatBlock(name, ext, text),
		})
	}

	paths := make([]string, len(result.Files))
	blocks := make([]string, len(result.Files))
	for i, f := range result.Files {
		paths[i] = f.Path
		blocks[i] = f.Block
	}
	result.Tree = RenderTree(paths)
	result.Combined = strings.Join(blocks, "\n\n")

	internal.LogDebug("Built corpus from %d files (%d skipped), %d lines", len(result.Files), len(result.Skipped), result.TotalLines)
	return result, nil
}

func readEntry(e archive.Entry) ([]byte, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FormatBlock renders one file as a labeled fenced code block
func FormatBlock(path, ext, text string) string {
	return path + ":\n\n```" + ext + "\n" + text + "\n```"
}

// CountLines counts the lines that are not blank after trimming
func CountLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
