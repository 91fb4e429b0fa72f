package testutil

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

// ZipFile is one entry of a zip fixture. Paths ending in "/" are directories.
type ZipFile struct {
	Path    string
	Content string
}

// CreateZipFixture builds an in-memory zip archive with the given entries in order
func CreateZipFixture(t *testing.T, files []ZipFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Path)
		if err != nil {
			t.Fatalf("Failed to add %s to zip: %v", f.Path, err)
		}
		if strings.HasSuffix(f.Path, "/") {
			continue
		}
		if _, err := w.Write([]byte(f.Content)); err != nil {
			t.Fatalf("Failed to write %s to zip: %v", f.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// OpenZipFixture returns a zip reader over an in-memory archive
func OpenZipFixture(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to read zip: %v", err)
	}
	return zr
}

// RepoArchiveFixture is a GitHub-style branch archive rooted at hello-main/
func RepoArchiveFixture(t *testing.T) []byte {
	t.Helper()
	return CreateZipFixture(t, []ZipFile{
		{Path: "hello-main/"},
		{Path: "hello-main/README.md", Content: "# Hello\n\nA tiny repo.\n"},
		{Path: "hello-main/src/"},
		{Path: "hello-main/src/a.ts", Content: "export const a = 1;\n\nexport function b() {\n  return a;\n}\n"},
		{Path: "hello-main/src/a.test.ts", Content: "test('a', () => {});\n"},
		{Path: "hello-main/node_modules/x/a.ts", Content: "module.exports = {};\n"},
		{Path: "hello-main/.git/config", Content: "[core]\n"},
		{Path: "hello-main/docs/guide.md", Content: "# Guide\n"},
	})
}
