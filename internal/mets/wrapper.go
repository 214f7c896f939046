package mets

import (
	"strings"

	"github.com/tomcrane/mets-parser/internal/workingfs"
)

// CreatorAgent is the agent name written by METS files this system produces
// itself. Only those documents are editable.
const CreatorAgent = "University of Leeds Digital Library Infrastructure Project"

// Source values recorded on metadata blocks.
const (
	SourceMets   = "METS"
	SourceClamAV = "ClamAV"
)

// Wrapper is the result of building one METS document.
type Wrapper struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Agent    string `json:"agent,omitempty" yaml:"agent,omitempty"`
	Editable bool   `json:"editable" yaml:"editable"`

	MetsURI string                 `json:"metsUri,omitempty" yaml:"metsUri,omitempty"`
	RootURI string                 `json:"rootUri,omitempty" yaml:"rootUri,omitempty"`
	Self    *workingfs.WorkingFile `json:"self,omitempty" yaml:"self,omitempty"` // The METS file itself

	RootAccessConditions []string `json:"rootAccessConditions,omitempty" yaml:"rootAccessConditions,omitempty"`
	RootRightsStatement  string   `json:"rootRightsStatement,omitempty" yaml:"rootRightsStatement,omitempty"`

	PhysicalStructure *workingfs.WorkingDirectory `json:"physicalStructure" yaml:"physicalStructure"`
	// Files lists every file in document order. The tree holds the same pointers.
	Files []*workingfs.WorkingFile `json:"files" yaml:"files"`

	*Index `json:"-" yaml:"-"`
}

// StripBagIt re-roots the physical structure at the BagIt payload directory.
// Files is rebuilt from the new tree so both keep holding the same pointers.
func (w *Wrapper) StripBagIt() {
	if w.PhysicalStructure == nil {
		return
	}
	root := w.PhysicalStructure.StripBagIt()
	if root == w.PhysicalStructure {
		return
	}
	w.PhysicalStructure = root
	for i, f := range w.Files {
		if moved := root.FindFile(strings.TrimPrefix(f.LocalPath, workingfs.BagItData+"/")); moved != nil {
			w.Files[i] = moved
		}
	}
}
