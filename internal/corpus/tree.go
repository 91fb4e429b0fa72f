package corpus

import (
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
)

// RenderTree renders file paths as a directory tree. Directories are nested
// and listed in the order their first file appears.
func RenderTree(paths []string) string {
	root := tree.New()
	dirs := map[string]*tree.Tree{"": root}

	for _, p := range paths {
		parts := strings.Split(strings.Trim(p, "/"), "/")
		parent := root
		dir := ""
		for _, part := range parts[:len(parts)-1] {
			if dir == "" {
				dir = part
			} else {
				dir += "/" + part
			}
			node, ok := dirs[dir]
			if !ok {
				node = tree.Root(part)
				parent.Child(node)
				dirs[dir] = node
			}
			parent = node
		}
		parent.Child(parts[len(parts)-1])
	}

	return root.String()
}
