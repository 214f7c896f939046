package mets

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed build errors, for use with errors.Is.
var (
	ErrStructuralIntegrity = errors.New("structural integrity")
	ErrMissingReference    = errors.New("missing reference")
	ErrMalformedXML        = errors.New("malformed xml")
)

// StructuralIntegrityError aborts a build whose document, or whose
// reconstructed tree, does not have the shape a physical layout requires.
type StructuralIntegrityError struct {
	Reason  string // Primary message
	Element string // Element kind involved, e.g. "structMap" or "div"
	Path    string // Local path or element ID, when known
}

func (e *StructuralIntegrityError) Error() string {
	msg := "structural integrity: " + e.Reason
	if e.Element != "" {
		msg += " [" + e.Element + "]"
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	return msg
}

func (e *StructuralIntegrityError) Is(target error) bool {
	return target == ErrStructuralIntegrity
}

// MissingReferenceError aborts a build that dereferences an identifier which
// is not present in the index it was looked up in.
type MissingReferenceError struct {
	Map      string // "file", "amdSec", "techMD/amdSec", or "FLocat"
	ID       string
	Referrer string // ID of the element holding the reference, when it has one
}

func (e *MissingReferenceError) Error() string {
	msg := fmt.Sprintf("missing reference: %s %q", e.Map, e.ID)
	if e.Referrer != "" {
		msg += fmt.Sprintf(" referenced from %q", e.Referrer)
	}
	return msg
}

func (e *MissingReferenceError) Is(target error) bool {
	return target == ErrMissingReference
}

func structural(reason, element, path string) error {
	return &StructuralIntegrityError{Reason: reason, Element: element, Path: path}
}
