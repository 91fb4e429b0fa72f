package archive

import (
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/repo-pilot/testutil"
)

// fakeEntry fails if its content is ever opened
type fakeEntry struct {
	path string
	dir  bool
}

func (e fakeEntry) Path() string { return e.path }
func (e fakeEntry) IsDir() bool  { return e.dir }
func (e fakeEntry) Open() (io.ReadCloser, error) {
	return nil, errors.New("filter must not open content")
}

func entries(paths ...string) []Entry {
	out := make([]Entry, len(paths))
	for i, p := range paths {
		out[i] = fakeEntry{path: p, dir: len(p) > 0 && p[len(p)-1] == '/'}
	}
	return out
}

func TestFilter_Scenario(t *testing.T) {
	in := entries("README.md", "src/a.ts", "node_modules/x/a.ts", ".git/config")
	rules := DefaultRules()
	rules.Include = Extensions{"md", "ts"}

	got := Paths(Filter(in, rules))
	assert.Equal(t, []string{"README.md", "src/a.ts"}, got)
}

func TestFilter_DefaultExclude(t *testing.T) {
	tests := []struct {
		path     string
		excluded bool
	}{
		{"repo-main/src/index.ts", false},
		{"repo-main/README.md", false},
		{"repo-main/cmd/main.go", false},
		{"repo-main/.github/workflows/ci.yaml", true},
		{"repo-main/src/.hidden.ts", true},
		{"repo-main/notes.md.bak", true},
		{"repo-main/package-lock.json", true},
		{"repo-main/poetry.lock", true},
		{"repo-main/.eslintrc.json", true},
		{"repo-main/vendor.min.js", true},
		{"repo-main/build/out.js", true},
		{"repo-main/dist/index.js", true},
		{"repo-main/bin/run.js", true},
		{"repo-main/node_modules/x/a.ts", true},
		{"repo-main/test/a.ts", true},
		{"repo-main/pkg/tests/a.py", true},
		{"repo-main/src/__tests__/a.tsx", true},
		{"repo-main/src/__test__/a.tsx", true},
		{"repo-main/src/a.test.ts", true},
		{"repo-main/src/a.spec.tsx", true},
		{"repo-main/types/index.d.ts", true},
		{"repo-main/examples/demo.py", true},
		{"repo-main/benchmark/run.rs", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := Filter(entries(tt.path), DefaultRules())
			assert.Equal(t, tt.excluded, len(got) == 0)
		})
	}
}

func TestFilter_RootIsNotMatched(t *testing.T) {
	rules := DefaultRules()
	rules.Root = "unit-test"

	got := Paths(Filter(entries("unit-test/", "unit-test/src/a.ts", "unit-test/test/a.ts"), rules))
	assert.Equal(t, []string{"unit-test/src/a.ts"}, got)
}

func TestFilter_Scope(t *testing.T) {
	in := entries(
		"repo-main/",
		"repo-main/README.md",
		"repo-main/packages/core/index.ts",
		"repo-main/packages/core-utils/index.ts",
		"repo-main/packages/web/index.ts",
	)
	rules := DefaultRules()
	rules.ScopePrefix = "repo-main/packages/core/"

	assert.Equal(t, []string{"repo-main/packages/core/index.ts"}, Paths(Filter(in, rules)))
}

func TestFilter_Pattern(t *testing.T) {
	in := entries("a/Dockerfile", "a/Makefile", "a/main.go", "a/dir/")
	rules := Rules{Include: Pattern{Re: regexp.MustCompile(`^(Dockerfile|Makefile)$`)}}

	assert.Equal(t, []string{"a/Dockerfile", "a/Makefile"}, Paths(Filter(in, rules)))
}

func TestFilter_EmptyResult(t *testing.T) {
	got := Filter(entries("repo-main/logo.png", "repo-main/dir/"), DefaultRules())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilter_Deterministic(t *testing.T) {
	in := entries("b.md", "a.md", "c/d.ts", "c/e.ts", "z.go")
	first := Paths(Filter(in, DefaultRules()))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Paths(Filter(in, DefaultRules())))
	}
	assert.Equal(t, []string{"b.md", "a.md", "c/d.ts", "c/e.ts", "z.go"}, first)
}

func TestExt(t *testing.T) {
	assert.Equal(t, "ts", Ext("src/a.test.ts"))
	assert.Equal(t, "md", Ext("README.md"))
	assert.Equal(t, "Makefile", Ext("dir.v2/Makefile"))
}

func TestFromZip(t *testing.T) {
	zr := testutil.OpenZipFixture(t, testutil.RepoArchiveFixture(t))
	all := FromZip(zr)
	require.Len(t, all, 8)
	assert.True(t, all[0].IsDir())
	assert.Equal(t, "hello-main", RootFolder(all))

	rules := DefaultRules()
	rules.Root = RootFolder(all)
	files := Filter(all, rules)
	assert.Equal(t, []string{"hello-main/README.md", "hello-main/src/a.ts", "hello-main/docs/guide.md"}, Paths(files))

	rc, err := files[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n\nA tiny repo.\n", string(data))
}

func TestRootFolder(t *testing.T) {
	assert.Equal(t, "", RootFolder(entries("README.md", "x/y.go")))
	assert.Equal(t, "", RootFolder(entries("a/x.go", "b/y.go")))
	assert.Equal(t, "a", RootFolder(entries("a/", "a/x.go")))
}
