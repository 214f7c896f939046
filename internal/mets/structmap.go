package mets

import (
	"strings"

	"github.com/beevik/etree"
)

// SelectPhysicalStructMap returns the structMap describing the physical layout.
// The first map typed "physical" wins outright. Maps typed "logical" are
// skipped, and the first untyped map is kept as a fallback for producers that
// never type their maps.
func SelectPhysicalStructMap(root *etree.Element) (*etree.Element, error) {
	var candidate *etree.Element
	for _, sm := range descendants(root, metsStructMap) {
		if typ, ok := attr(sm, attrType); ok {
			switch strings.ToLower(typ) {
			case "physical":
				return sm, nil
			case "logical":
				continue
			}
		}
		if candidate == nil {
			candidate = sm
		}
	}
	if candidate == nil {
		return nil, structural("a physical structMap is required", metsStructMap.Local, "")
	}
	return candidate, nil
}
