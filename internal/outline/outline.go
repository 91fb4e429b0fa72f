// Package outline reduces source files to their declarations by blanking out
// function bodies, keeping line numbers intact.
package outline

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

type grammar struct {
	language  *sitter.Language
	functions []string
}

var jsFunctionTypes = []string{
	"arrow_function",
	"function_expression",
	"function_declaration",
	"function",
	"generator_function",
	"generator_function_declaration",
	"method_definition",
}

var grammars = map[string]grammar{
	"js":  {javascript.GetLanguage(), jsFunctionTypes},
	"mjs": {javascript.GetLanguage(), jsFunctionTypes},
	"jsx": {javascript.GetLanguage(), jsFunctionTypes},
	"ts":  {typescript.GetLanguage(), jsFunctionTypes},
	"tsx": {tsx.GetLanguage(), jsFunctionTypes},
	"go":  {golang.GetLanguage(), []string{"function_declaration", "method_declaration", "func_literal"}},
	"py":  {python.GetLanguage(), []string{"function_definition"}},
}

// Supported reports whether files with extension ext can be outlined
func Supported(ext string) bool {
	_, ok := grammars[ext]
	return ok
}

// StripBodies replaces every function body of source with "..." followed by
// as many newlines as the body spanned.
func StripBodies(ctx context.Context, source []byte, ext string) ([]byte, error) {
	g, ok := grammars[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", ext)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.language)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	var ranges [][2]uint32
	walk(tree.RootNode(), g.functions, &ranges)

	// ranges are collected in pre-order; nested bodies fall inside their parent
	var out strings.Builder
	var pos uint32
	for _, r := range ranges {
		if r[0] < pos {
			continue
		}
		out.Write(source[pos:r[0]])
		out.WriteString("...")
		out.WriteString(strings.Repeat("\n", strings.Count(string(source[r[0]:r[1]]), "\n")))
		pos = r[1]
	}
	out.Write(source[pos:])
	return []byte(out.String()), nil
}

func walk(node *sitter.Node, functionTypes []string, ranges *[][2]uint32) {
	for _, t := range functionTypes {
		if node.Type() == t {
			if body := node.ChildByFieldName("body"); body != nil {
				*ranges = append(*ranges, [2]uint32{body.StartByte(), body.EndByte()})
			}
			break
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.ChildCount() > 0 {
			walk(child, functionTypes, ranges)
		}
	}
}

// Transform adapts StripBodies to a per-file hook that keeps the original
// text when the language is unsupported or parsing fails.
func Transform(ctx context.Context, path, ext, text string) string {
	if !Supported(ext) {
		return text
	}
	stripped, err := StripBodies(ctx, []byte(text), ext)
	if err != nil {
		return text
	}
	return string(stripped)
}
