package mets

import (
	"maps"
	"slices"

	"github.com/beevik/etree"
)

// Index holds the identifier-keyed views over one document. It is built once
// by BuildIndex and read-only afterwards.
type Index struct {
	AmdMap      map[string]*etree.Element // amdSec[@ID]
	FileMap     map[string]*etree.Element // file[@ID] under the first fileSec
	TechMap     map[string]*etree.Element // techMD[@ID]
	DigiprovMap map[string]*etree.Element // digiprovMD[@ID]

	// Duplicates lists, as "section:ID", every identifier that replaced an
	// earlier element of the same section.
	Duplicates []string
}

// BuildIndex scans root in document order and indexes every amdSec, file and
// techMD (and digiprovMD) element carrying an ID. Duplicate IDs resolve
// last-write-wins. A document without a fileSec is rejected.
func BuildIndex(root *etree.Element) (*Index, error) {
	fileSec := firstDescendant(root, metsFileSec)
	if fileSec == nil {
		return nil, structural("document has no fileSec", metsFileSec.Local, "")
	}
	idx := &Index{}
	idx.AmdMap = idx.collect(root, metsAmdSec)
	idx.FileMap = idx.collect(fileSec, metsFile)
	idx.TechMap = idx.collect(root, metsTechMD)
	idx.DigiprovMap = idx.collect(root, metsDigiprovMD)
	return idx, nil
}

func (idx *Index) collect(scope *etree.Element, n Name) map[string]*etree.Element {
	m := make(map[string]*etree.Element)
	for _, el := range descendants(scope, n) {
		id, ok := attr(el, attrID)
		if !ok {
			continue
		}
		if _, dup := m[id]; dup {
			idx.Duplicates = append(idx.Duplicates, n.Local+":"+id)
		}
		m[id] = el
	}
	return m
}

// techSection resolves admID through TechMap, falling back to AmdMap.
func (idx *Index) techSection(admID string) (*etree.Element, bool) {
	if el, ok := idx.TechMap[admID]; ok {
		return el, true
	}
	el, ok := idx.AmdMap[admID]
	return el, ok
}

func (idx *Index) digiprovIDs() []string {
	return slices.Sorted(maps.Keys(idx.DigiprovMap))
}
