package mets

import (
	"log/slog"
	"net/url"

	"github.com/beevik/etree"
)

// Access condition types read from mods:accessCondition/@type.
const (
	accessRestriction     = "restriction on access"
	accessStatus          = "status" // Goobi
	accessUseReproduction = "use and reproduction"
)

// readDescriptive fills the wrapper's title, access conditions, rights and
// agent. None of these are required and none of them fail the build.
func readDescriptive(w *Wrapper, root *etree.Element, log *slog.Logger) {
	// EPrints does not wrap its MODS in a mods:mods element.
	scope := firstDescendant(root, modsMods)
	if scope == nil {
		scope = root
	}

	if title, ok := descendantText(scope, modsTitle); ok && title != "" {
		w.Name = title
	} else if name, ok := descendantText(scope, modsNamePart); ok && name != "" {
		w.Name = name
	}

	for _, ac := range descendants(scope, modsAccessCondition) {
		value := text(ac)
		if value == "" {
			continue
		}
		typ, _ := attr(ac, "type")
		switch typ {
		case accessRestriction, accessStatus:
			w.RootAccessConditions = append(w.RootAccessConditions, value)
		case accessUseReproduction:
			if w.RootRightsStatement != "" {
				continue
			}
			if u, err := url.Parse(value); err != nil || !u.IsAbs() {
				log.Warn("unable to parse rights statement", "value", value)
				continue
			}
			w.RootRightsStatement = value
		}
	}

	if agent := firstDescendant(root, metsAgent); agent != nil {
		w.Agent, _ = descendantText(agent, metsAgentName)
	}
	w.Editable = w.Agent == CreatorAgent
}
