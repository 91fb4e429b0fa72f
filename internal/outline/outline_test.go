package outline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripBodies_Go(t *testing.T) {
	src := `package main

func add(a, b int) int {
	return a + b
}

func main() {
	fmt.Println(add(1, 2))
}
`
	out, err := StripBodies(context.Background(), []byte(src), "go")
	require.NoError(t, err)

	got := string(out)
	assert.Contains(t, got, "func add(a, b int) int ...")
	assert.Contains(t, got, "func main() ...")
	assert.NotContains(t, got, "return a + b")
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(got, "\n"), "line count must be preserved")
}

func TestStripBodies_TypeScript(t *testing.T) {
	src := "export const a = 1;\n\nexport function b(): number {\n  return a;\n}\n\nconst c = () => a + 1;\n"
	out, err := StripBodies(context.Background(), []byte(src), "ts")
	require.NoError(t, err)

	got := string(out)
	assert.Contains(t, got, "export const a = 1;")
	assert.Contains(t, got, "export function b(): number ...")
	assert.Contains(t, got, "const c = () => ...;")
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(got, "\n"))
}

func TestStripBodies_NestedFunctions(t *testing.T) {
	src := "function outer() {\n  function inner() {\n    return 1;\n  }\n  return inner();\n}\n"
	out, err := StripBodies(context.Background(), []byte(src), "js")
	require.NoError(t, err)
	assert.Equal(t, "function outer() ...\n\n\n\n\n\n", string(out))
}

func TestStripBodies_Python(t *testing.T) {
	src := "def f(x):\n    return x * 2\n\nclass A:\n    def g(self):\n        pass\n"
	out, err := StripBodies(context.Background(), []byte(src), "py")
	require.NoError(t, err)

	got := string(out)
	assert.Contains(t, got, "def f(x):")
	assert.Contains(t, got, "...")
	assert.Contains(t, got, "class A:")
	assert.NotContains(t, got, "return x * 2")
}

func TestStripBodies_Unsupported(t *testing.T) {
	_, err := StripBodies(context.Background(), []byte("# hi"), "md")
	assert.ErrorContains(t, err, "unsupported language")
}

func TestTransform(t *testing.T) {
	assert.Equal(t, "# Title\n", Transform(context.Background(), "README.md", "md", "# Title\n"))
	assert.True(t, Supported("tsx"))
	assert.False(t, Supported("rs"))
}
