package render

import (
	"bufio"
	"io"

	"github.com/tomcrane/mets-parser/internal/workingfs"
)

// writeTree prints root in the style of tree(1): directories first, then files.
func writeTree(out io.Writer, root *workingfs.WorkingDirectory) error {
	bw := bufio.NewWriter(out)
	if root == nil {
		return bw.Flush()
	}
	name := root.Name
	if name == "" {
		name = "."
	}
	bw.WriteString(name + "\n")
	writeChildren(bw, root, "")
	return bw.Flush()
}

func writeChildren(bw *bufio.Writer, d *workingfs.WorkingDirectory, prefix string) {
	n := len(d.Directories) + len(d.Files)
	i := 0
	branch := func() (string, string) {
		i++
		if i == n {
			return "└── ", "    "
		}
		return "├── ", "│   "
	}
	for _, sub := range d.Directories {
		b, next := branch()
		bw.WriteString(prefix + b + sub.Slug() + "/\n")
		writeChildren(bw, sub, prefix+next)
	}
	for _, f := range d.Files {
		b, _ := branch()
		bw.WriteString(prefix + b + f.Slug() + "\n")
	}
}
