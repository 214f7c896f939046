package mets

import (
	"strings"
	"testing"
)

func TestHref(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
		ok   bool
	}{
		{"declared prefix", `<f xmlns:xlink="http://www.w3.org/1999/xlink" xlink:href="a/b.txt"/>`, "a/b.txt", true},
		{"other prefix bound to xlink", `<f xmlns:xl="http://www.w3.org/1999/xlink" xl:href="c.txt"/>`, "c.txt", true},
		{"undeclared xlink prefix", `<f xlink:href="d.txt"/>`, "d.txt", true},
		{"unqualified href", `<f href="e.txt"/>`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadDocument(strings.NewReader(tt.xml))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := href(doc.Root())
			if got != tt.want || ok != tt.ok {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestDescendants_DocumentOrderAndNamespace(t *testing.T) {
	xml := `<root xmlns:m="http://www.loc.gov/METS/" xmlns:o="urn:other">` +
		`<m:div ID="1"><m:div ID="2"/></m:div><o:div ID="x"/><m:div ID="3"/></root>`
	doc, err := ReadDocument(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, el := range descendants(doc.Root(), metsDiv) {
		id, _ := attr(el, attrID)
		ids = append(ids, id)
	}
	if got := strings.Join(ids, ","); got != "1,2,3" {
		t.Errorf("expected %q, got %q", "1,2,3", got)
	}
	if n := len(children(doc.Root(), metsDiv)); n != 2 {
		t.Errorf("expected 2 direct children, got %d", n)
	}
}

func TestDefaultNamespace(t *testing.T) {
	xml := `<mets xmlns="http://www.loc.gov/METS/"><fileSec><file ID="F1"/></fileSec></mets>`
	doc, err := ReadDocument(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx, err := BuildIndex(doc.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := idx.FileMap["F1"]; !ok {
		t.Error("expected file in the default METS namespace to be indexed")
	}
}

func TestText(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(`<a>  one <b>two</b> three  </a>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := text(doc.Root()); got != "one two three" {
		t.Errorf("expected %q, got %q", "one two three", got)
	}
	if got := text(nil); got != "" {
		t.Errorf("expected empty text for nil, got %q", got)
	}
}
