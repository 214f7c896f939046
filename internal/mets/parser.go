// Package mets builds the physical working tree of a digital object from its
// METS document. It understands the dialects written by EPrints, Goobi,
// Archivematica and the DLIP itself.
package mets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/tomcrane/mets-parser/internal/workingfs"
	"golang.org/x/net/html/charset"
)

// ContentTypeXML is the content type recorded for the METS file itself.
const ContentTypeXML = "application/xml"

// Parser converts METS documents into Wrappers. The zero value is usable.
// A Parser holds no per-document state and may be shared between goroutines.
type Parser struct {
	Log              *slog.Logger
	InferContentType bool             // Deduce a missing MIMETYPE from the file extension
	StrictIDs        bool             // Reject documents that reuse an identifier
	Now              func() time.Time // Stamp for the root directory; defaults to time.Now
}

// Parse reads a whole METS document from r. filename becomes the wrapper's
// MetsURI and the name of its Self entry.
func (p *Parser) Parse(r io.Reader, filename string) (*Wrapper, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read mets: %w", err)
	}
	return p.ParseBytes(data, filename)
}

// ParseFile reads and builds the METS document at path.
func (p *Parser) ParseFile(path string) (*Wrapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mets: %w", err)
	}
	return p.ParseBytes(data, path)
}

// ParseBytes builds data and describes the document itself in Wrapper.Self.
func (p *Parser) ParseBytes(data []byte, uri string) (*Wrapper, error) {
	doc, err := ReadDocument(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	w, err := p.Build(doc, uri)
	if err != nil {
		return nil, err
	}
	w.Self = selfFile(data, uri)
	return w, nil
}

// ParseString builds an in-memory document. No Self entry is recorded.
func (p *Parser) ParseString(s string) (*Wrapper, error) {
	doc, err := ReadDocument(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	return p.Build(doc, "")
}

// ReadDocument parses XML into an element tree, honouring non-UTF-8
// encoding declarations.
func ReadDocument(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse mets xml: %w: %w", ErrMalformedXML, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse mets xml: %w: no root element", ErrMalformedXML)
	}
	return doc, nil
}

// Build runs the full pipeline over an already parsed document: index,
// structMap selection, walk and attach. Any error aborts the build and no
// Wrapper is returned.
func (p *Parser) Build(doc *etree.Document, metsURI string) (*Wrapper, error) {
	log := p.logger()
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse mets xml: %w: no root element", ErrMalformedXML)
	}

	idx, err := BuildIndex(root)
	if err != nil {
		return nil, err
	}
	if len(idx.Duplicates) > 0 {
		if p.StrictIDs {
			return nil, structural("duplicate identifiers", "ID", strings.Join(idx.Duplicates, ", "))
		}
		log.Warn("duplicate identifiers, last one wins", "uri", metsURI, "ids", idx.Duplicates)
	}

	w := &Wrapper{
		MetsURI:           metsURI,
		RootURI:           parentURI(metsURI),
		PhysicalStructure: workingfs.NewRoot(p.now()),
		Index:             idx,
	}
	readDescriptive(w, root, log)

	structMap, err := SelectPhysicalStructMap(root)
	if err != nil {
		return nil, err
	}

	wk := &walker{
		idx:              idx,
		root:             w.PhysicalStructure,
		log:              log,
		inferContentType: p.InferContentType,
	}
	if err := wk.walk(structMap); err != nil {
		return nil, err
	}
	w.Files = wk.files

	if err := attach(w.PhysicalStructure, w.Files); err != nil {
		return nil, err
	}

	log.Debug("built mets wrapper",
		"uri", metsURI,
		"files", len(w.Files),
		"directories", w.PhysicalStructure.DescendantDirectoryCount(),
	)
	return w, nil
}

func (p *Parser) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.New(slog.DiscardHandler)
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// parentURI returns uri up to and including its last "/".
func parentURI(uri string) string {
	i := strings.LastIndexByte(uri, '/')
	if i < 0 {
		return ""
	}
	return uri[:i+1]
}

func selfFile(data []byte, uri string) *workingfs.WorkingFile {
	sum := sha256.Sum256(data)
	name := workingfs.Slug(uri)
	return &workingfs.WorkingFile{
		WorkingBase: workingfs.WorkingBase{LocalPath: name, Name: name},
		ContentType: ContentTypeXML,
		Digest:      hex.EncodeToString(sum[:]),
		Size:        int64(len(data)),
	}
}
