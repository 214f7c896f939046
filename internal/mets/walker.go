package mets

import (
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/tomcrane/mets-parser/internal/workingfs"
)

// Defaults for files whose technical metadata has no usable premis:format.
const (
	UnknownPronomKey  = "dlip/unknown"
	UnknownFormatName = "[Not Identified]"
)

// labelStack holds the lowercased labels of Directory divisions that have not
// yet been given to a materialized directory.
type labelStack []string

func (s *labelStack) push(label string) {
	*s = append(*s, label)
}

func (s *labelStack) pop() (string, bool) {
	if len(*s) == 0 {
		return "", false
	}
	top := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return top, true
}

// walker carries the state of one descent through a structMap. It is owned by
// a single build and never shared.
type walker struct {
	idx    *Index
	root   *workingfs.WorkingDirectory
	files  []*workingfs.WorkingFile
	labels labelStack

	log              *slog.Logger
	inferContentType bool
}

// walk processes the div children of parent in document order.
func (w *walker) walk(parent *etree.Element) error {
	for _, div := range children(parent, metsDiv) {
		if err := w.division(div); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) division(div *etree.Element) error {
	divID, _ := attr(div, attrID)
	typ, _ := attr(div, attrType)
	label, _ := attr(div, attrLabel)
	divAdmID, _ := attr(div, attrAdmID)

	if strings.EqualFold(typ, "directory") {
		if label == "" {
			return structural("a Directory div must have a LABEL", metsDiv.Local, divID)
		}
		w.labels.push(strings.ToLower(label))
		if divAdmID != "" {
			w.originalNameDirectory(divID, divAdmID)
		}
	}

	// A div-level ADMID describes one representative file only: an image
	// and its ALTO share a div in Goobi output but the fixity is the image's.
	divAdmIDUsed := false
	for _, fptr := range children(div, metsFptr) {
		f, err := w.file(fptr, divID, label, divAdmID, &divAdmIDUsed)
		if err != nil {
			return err
		}
		w.files = append(w.files, f)
		w.backfill(f.LocalPath)
	}

	return w.walk(div)
}

// originalNameDirectory materializes the directory named by the
// premis:originalName of an amdSec. The first writer of a directory's name wins.
func (w *walker) originalNameDirectory(divID, admID string) {
	amd, ok := w.idx.AmdMap[admID]
	if !ok {
		return
	}
	originalName, ok := descendantText(amd, premisOriginalName)
	if !ok {
		return
	}
	dir := w.root.EnsureDirectory(originalName)
	if !unnamed(dir) {
		return
	}
	name, ok := w.labels.pop()
	if !ok {
		name = workingfs.Slug(originalName)
	}
	dir.Name = name
	dir.LocalPath = originalName
	dir.Mets = &workingfs.MetsExtensions{DivID: divID, AdmID: admID}
	dir.Metadata.Storage = &workingfs.StorageMetadata{
		Source:          SourceMets,
		OriginalName:    originalName,
		StorageLocation: w.storageLocation(amd),
	}
}

// file builds the WorkingFile for one fptr.
func (w *walker) file(fptr *etree.Element, divID, label, divAdmID string, divAdmIDUsed *bool) (*workingfs.WorkingFile, error) {
	fileID, _ := attr(fptr, attrFileID)
	fileEl, ok := w.idx.FileMap[fileID]
	if !ok {
		return nil, &MissingReferenceError{Map: "file", ID: fileID, Referrer: divID}
	}

	flocat := firstChild(fileEl, metsFLocat)
	if flocat == nil {
		return nil, &MissingReferenceError{Map: "FLocat", ID: fileID}
	}
	location, ok := href(flocat)
	if !ok {
		return nil, &MissingReferenceError{Map: "xlink:href", ID: fileID}
	}

	fileAdmID, _ := attr(fileEl, attrAdmID)
	admID, lookup := "", false
	switch {
	case divAdmID != "" && !*divAdmIDUsed:
		admID, lookup = divAdmID, true
		*divAdmIDUsed = true
	case fileAdmID != "":
		admID, lookup = fileAdmID, true
	case divAdmID != "":
		// Already consumed by an earlier pointer in this div.
		admID = divAdmID
	default:
		return nil, &MissingReferenceError{Map: "amdSec", ID: "", Referrer: fileID}
	}

	f := &workingfs.WorkingFile{
		WorkingBase: workingfs.WorkingBase{
			LocalPath: location,
			Name:      label,
			Mets:      &workingfs.MetsExtensions{DivID: divID, AdmID: admID},
		},
		ContentType: w.contentType(fileEl, location),
	}
	if f.Name == "" {
		f.Name = workingfs.Slug(location)
	}

	if lookup {
		sec, ok := w.idx.techSection(admID)
		if !ok {
			return nil, &MissingReferenceError{Map: "techMD/amdSec", ID: admID, Referrer: fileID}
		}
		w.technical(f, sec)
	}
	if scan := w.virusScan(admID); scan != nil {
		f.Metadata.VirusScan = scan
	}
	return f, nil
}

func (w *walker) contentType(fileEl *etree.Element, location string) string {
	if mt, _ := attr(fileEl, attrMimeType); mt != "" {
		return mt
	}
	// Archivematica omits MIMETYPE.
	if w.inferContentType {
		if mt := mime.TypeByExtension(path.Ext(location)); mt != "" {
			if base, _, err := mime.ParseMediaType(mt); err == nil {
				mt = base
			}
			w.log.Warn("content type deduced from file extension", "location", location, "content_type", mt)
			return mt
		}
	}
	return workingfs.ContentTypeNotIdentified
}

// technical copies fixity, size, storage and format facts from sec onto f.
func (w *walker) technical(f *workingfs.WorkingFile, sec *etree.Element) {
	if fixity := firstDescendant(sec, premisFixity); fixity != nil {
		alg, _ := descendantText(fixity, premisDigestAlgorithm)
		if strings.ReplaceAll(strings.ToLower(alg), "-", "") == "sha256" {
			f.Digest, _ = descendantText(fixity, premisMessageDigest)
		}
	}

	if s, ok := descendantText(sec, premisSize); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			f.Size = n
		} else {
			w.log.Warn("unable to parse premis size, recording 0", "location", f.LocalPath, "value", s)
		}
	}

	originalName, _ := descendantText(sec, premisOriginalName)
	f.Metadata.Storage = &workingfs.StorageMetadata{
		Source:          SourceMets,
		OriginalName:    originalName,
		StorageLocation: w.storageLocation(sec),
	}

	format := &workingfs.FileFormatMetadata{
		Source:     SourceMets,
		PronomKey:  UnknownPronomKey,
		FormatName: UnknownFormatName,
	}
	if el := firstDescendant(sec, premisFormat); el != nil {
		name, _ := descendantText(el, premisFormatName)
		key, _ := descendantText(el, premisFormatRegistryKey)
		if name != "" && key != "" {
			format.PronomKey = key
			format.FormatName = name
			format.Digest = f.Digest
		}
	}
	f.Metadata.Format = format
}

// storageLocation returns the premis:contentLocation of sec when it is an
// absolute URI. PREMIS 3 nests the value in contentLocationValue; older
// producers put it directly in contentLocation.
func (w *walker) storageLocation(sec *etree.Element) string {
	el := firstDescendant(sec, premisContentLocation)
	if el == nil {
		return ""
	}
	loc := text(el)
	if v := firstDescendant(el, premisContentLocationValue); v != nil {
		loc = text(v)
	}
	if loc == "" {
		return ""
	}
	if !isAbsoluteURI(loc) {
		w.log.Warn("unable to parse storage location", "value", loc)
		return ""
	}
	return loc
}

// virusScan reads the ClamAV event recorded for admID, if any.
func (w *walker) virusScan(admID string) *workingfs.VirusScanMetadata {
	if admID == "" {
		return nil
	}
	sec := w.clamavSection(admID)
	if sec == nil {
		return nil
	}
	event := firstDescendant(sec, premisEvent)
	if event == nil {
		return nil
	}

	scan := &workingfs.VirusScanMetadata{Source: SourceClamAV}
	if info := firstDescendant(event, premisEventOutcomeInfo); info != nil {
		outcome, _ := descendantText(info, premisEventOutcome)
		scan.HasVirus = strings.ToLower(outcome) == "fail"
		if detail := firstDescendant(info, premisEventOutcomeDetail); detail != nil {
			scan.VirusFound, _ = descendantText(detail, premisEventOutcomeNote)
		}
	}
	if info := firstDescendant(event, premisEventDetailInfo); info != nil {
		scan.VirusDefinition, _ = descendantText(info, premisEventDetail)
	}
	if ts, ok := descendantText(event, premisEventDateTime); ok {
		scan.Timestamp = parseTimestamp(ts)
	}
	return scan
}

// clamavSection finds digiprovMD_clamav_<admID>, exactly or, failing that,
// as a case-insensitive substring of some digiprovMD ID. Candidates are
// checked in sorted order so the choice does not depend on map iteration.
func (w *walker) clamavSection(admID string) *etree.Element {
	key := "digiprovMD_clamav_" + admID
	if sec, ok := w.idx.DigiprovMap[key]; ok {
		return sec
	}
	want := strings.ToLower(key)
	for _, id := range w.idx.digiprovIDs() {
		if strings.Contains(strings.ToLower(id), want) {
			return w.idx.DigiprovMap[id]
		}
	}
	return nil
}

// backfill ensures every ancestor directory of location exists, naming any
// still-unnamed one from the pending labels or its own path segment.
func (w *walker) backfill(location string) {
	parts := strings.Split(location, "/")
	for walkBack := len(parts); walkBack > 1; walkBack-- {
		parent := strings.Join(parts[:walkBack-1], "/")
		dir := w.root.EnsureDirectory(parent)
		if !unnamed(dir) {
			continue
		}
		name, ok := w.labels.pop()
		if !ok {
			name = parts[walkBack-2]
		}
		dir.Name = name
		dir.LocalPath = parent
	}
}

func unnamed(d *workingfs.WorkingDirectory) bool {
	return strings.TrimSpace(d.Name) == ""
}

func isAbsoluteURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// parseTimestamp accepts the date forms seen in PREMIS events and returns the
// zero time when none match.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
