// Package archive selects the source files of a downloaded repository archive.
package archive

import (
	"archive/zip"
	"io"
	"strings"
)

// Entry is one item of a decompressed archive
type Entry interface {
	Path() string
	IsDir() bool
	Open() (io.ReadCloser, error)
}

type zipEntry struct {
	f *zip.File
}

func (e zipEntry) Path() string                 { return e.f.Name }
func (e zipEntry) IsDir() bool                  { return e.f.FileInfo().IsDir() || strings.HasSuffix(e.f.Name, "/") }
func (e zipEntry) Open() (io.ReadCloser, error) { return e.f.Open() }

// FromZip lists the entries of a zip archive in archive order
func FromZip(zr *zip.Reader) []Entry {
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, zipEntry{f: f})
	}
	return entries
}

// RootFolder returns the top-level folder shared by all entries, e.g.
// "hello-main" for a GitHub branch archive, or "" if there is none.
func RootFolder(entries []Entry) string {
	root := ""
	for _, e := range entries {
		first, _, found := strings.Cut(e.Path(), "/")
		if !found {
			return ""
		}
		if root == "" {
			root = first
		} else if first != root {
			return ""
		}
	}
	return root
}
