package archive

import (
	"path"
	"regexp"
	"strings"
)

// IncludeRule decides whether a file path is a source file candidate
type IncludeRule interface {
	Match(filePath string) bool
}

// Extensions includes files whose final dot suffix is in the list
type Extensions []string

// Match implements IncludeRule
func (x Extensions) Match(filePath string) bool {
	ext := Ext(filePath)
	for _, allowed := range x {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Pattern includes files whose name matches the expression
type Pattern struct {
	Re *regexp.Regexp
}

// Match implements IncludeRule
func (p Pattern) Match(filePath string) bool {
	return p.Re != nil && p.Re.MatchString(path.Base(filePath))
}

// Rules configures Filter. A nil Include accepts every file and a nil
// Exclude rejects none.
type Rules struct {
	Include IncludeRule
	Exclude *regexp.Regexp
	// Root is the archive's top-level folder. Include and Exclude see paths
	// relative to it, so a branch archive named "x-test/" is not excluded.
	Root string
	// ScopePrefix is matched against the full archive path
	ScopePrefix string
}

// DefaultExtensions are the file types ingested by default
var DefaultExtensions = Extensions{
	// documents and configs
	"md", "json", "yaml", "toml",
	// web
	"js", "mjs", "jsx", "ts", "tsx", "html", "css",
	"py",
	"rs",
	"dart",
	"go",
}

// DefaultExclude rejects files that are not useful as model context
var DefaultExclude = regexp.MustCompile(strings.Join([]string{
	// any file or folder starting with a dot, .git/ and .github/ included
	`(^|/)\.`,
	`\.bak$`,
	`(^|/)[^/]*tests?/`,
	`(^|/)__tests?__/`,
	`\.(test|spec)\.[^/]+$`,
	`(^|/)examples/`,
	`(^|/)benchmark/`,
	`(^|/)node_modules/`,
	`package-lock\.json$`,
	`\.eslintrc\.json$`,
	`\.min\.js$`,
	`\.d\.ts$`,
	`(^|/)build/`,
	`(^|/)dist/`,
	`(^|/)bin/`,
	`\.lock$`,
}, "|"))

// DefaultRules returns the default include and exclude rules
func DefaultRules() Rules {
	return Rules{
		Include: DefaultExtensions,
		Exclude: DefaultExclude,
	}
}

// Ext returns the final dot suffix of the file name, without the dot
func Ext(filePath string) string {
	base := path.Base(filePath)
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return base
	}
	return base[i+1:]
}

// Filter returns the regular files accepted by rules, in input order. It only
// looks at entry metadata and never opens content.
func Filter(entries []Entry, rules Rules) []Entry {
	files := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Path()
		if rules.Root != "" {
			name = strings.TrimPrefix(name, rules.Root+"/")
		}
		if rules.Include != nil && !rules.Include.Match(name) {
			continue
		}
		if rules.Exclude != nil && rules.Exclude.MatchString(name) {
			continue
		}
		if rules.ScopePrefix != "" && !strings.HasPrefix(e.Path(), rules.ScopePrefix) {
			continue
		}
		files = append(files, e)
	}
	return files
}

// Paths returns the paths of entries
func Paths(entries []Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path()
	}
	return paths
}
