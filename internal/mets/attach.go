package mets

import (
	"github.com/tomcrane/mets-parser/internal/workingfs"
)

// attach appends every file to the directory at its parent path. The walker's
// backfill guarantees those directories exist, so a miss is a defect in the
// reconstruction rather than in the document.
func attach(root *workingfs.WorkingDirectory, files []*workingfs.WorkingFile) error {
	for _, f := range files {
		dir := root.FindDirectory(workingfs.Parent(f.LocalPath))
		if dir == nil {
			return structural("parent directory missing after backfill", "file", f.LocalPath)
		}
		dir.Files = append(dir.Files, f)
	}
	return nil
}
