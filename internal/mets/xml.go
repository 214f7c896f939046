package mets

import (
	"strings"

	"github.com/beevik/etree"
)

// is reports whether el has the namespace-qualified name n.
func is(el *etree.Element, n Name) bool {
	return el.Tag == n.Local && el.NamespaceURI() == n.Space
}

// children returns the direct child elements of el named n, in document order.
func children(el *etree.Element, n Name) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if is(c, n) {
			out = append(out, c)
		}
	}
	return out
}

// firstChild returns the first direct child of el named n, or nil.
func firstChild(el *etree.Element, n Name) *etree.Element {
	for _, c := range el.ChildElements() {
		if is(c, n) {
			return c
		}
	}
	return nil
}

// descendants returns every element below el named n, in document order.
// el itself is not considered.
func descendants(el *etree.Element, n Name) []*etree.Element {
	var out []*etree.Element
	visit(el, func(c *etree.Element) bool {
		if is(c, n) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// firstDescendant returns the first element below el named n, or nil.
func firstDescendant(el *etree.Element, n Name) *etree.Element {
	var found *etree.Element
	visit(el, func(c *etree.Element) bool {
		if is(c, n) {
			found = c
			return false
		}
		return true
	})
	return found
}

// visit walks the elements below el depth-first in document order until fn
// returns false.
func visit(el *etree.Element, fn func(*etree.Element) bool) bool {
	for _, c := range el.ChildElements() {
		if !fn(c) {
			return false
		}
		if !visit(c, fn) {
			return false
		}
	}
	return true
}

// attr returns the value of the unqualified attribute key and whether it was
// present at all. A present but empty attribute returns ("", true).
func attr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Space == "" && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// href returns the xlink:href of el. Documents that use the xlink prefix
// without declaring it are accepted too.
func href(el *etree.Element) (string, bool) {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key != xlinkHref.Local {
			continue
		}
		if a.NamespaceURI() == xlinkHref.Space || a.Space == "xlink" {
			return a.Value, true
		}
	}
	return "", false
}

// text returns the concatenated character data of el and its descendants,
// trimmed of surrounding whitespace.
func text(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var sb strings.Builder
	appendText(&sb, el)
	return strings.TrimSpace(sb.String())
}

func appendText(sb *strings.Builder, el *etree.Element) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			appendText(sb, t)
		}
	}
}

// descendantText is text(firstDescendant(el, n)) with a presence flag.
func descendantText(el *etree.Element, n Name) (string, bool) {
	d := firstDescendant(el, n)
	if d == nil {
		return "", false
	}
	return text(d), true
}
