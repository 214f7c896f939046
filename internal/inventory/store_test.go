package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/workingfs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testWrapper(name string, digests ...string) *mets.Wrapper {
	root := workingfs.NewRoot(time.Now())
	dir := root.EnsureDirectory("objects")
	dir.Name = "objects"
	w := &mets.Wrapper{Name: name, Agent: "Tester", PhysicalStructure: root}
	for i, d := range digests {
		f := &workingfs.WorkingFile{
			WorkingBase: workingfs.WorkingBase{
				LocalPath: "objects/" + string(rune('a'+i)) + ".tif",
				Name:      string(rune('a'+i)) + ".tif",
				Mets:      &workingfs.MetsExtensions{AdmID: "AMD", DivID: "PHYS"},
			},
			ContentType: "image/tiff",
			Digest:      d,
			Size:        int64(100 * (i + 1)),
		}
		dir.Files = append(dir.Files, f)
		w.Files = append(w.Files, f)
	}
	return w
}

func TestSaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.SaveDocument(ctx, "doc1", "hash1", testWrapper("First", "d1", "d2")); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc, err := s.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Name != "First" || doc.Agent != "Tester" || doc.ContentHash != "hash1" {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.FileCount != 2 || doc.DirectoryCount != 1 || doc.TotalSize != 300 {
		t.Errorf("expected 2 files, 1 directory, 300 bytes, got %d/%d/%d", doc.FileCount, doc.DirectoryCount, doc.TotalSize)
	}
	if !doc.CreatedAt.Equal(fixed) {
		t.Errorf("expected created_at %v, got %v", fixed, doc.CreatedAt)
	}

	files, err := s.ListFiles(ctx, "doc1")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].LocalPath != "objects/a.tif" || files[0].AdmID != "AMD" || files[1].Size != 200 {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestSaveDocument_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocument(ctx, "doc1", "hash1", testWrapper("v1", "d1", "d2", "d3")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveDocument(ctx, "doc1", "hash2", testWrapper("v2", "d9")); err != nil {
		t.Fatalf("resave: %v", err)
	}
	doc, err := s.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Name != "v2" || doc.ContentHash != "hash2" {
		t.Errorf("expected replacement, got %+v", doc)
	}
	files, _ := s.ListFiles(ctx, "doc1")
	if len(files) != 1 {
		t.Errorf("expected old files to be removed, got %d", len(files))
	}
	if n, _ := s.CountDocuments(ctx); n != 1 {
		t.Errorf("expected 1 document, got %d", n)
	}
}

func TestFindByContentHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocument(ctx, "doc1", "hash1", testWrapper("First")); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc, err := s.FindByContentHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if doc.DocID != "doc1" {
		t.Errorf("expected doc1, got %q", doc.DocID)
	}
	if _, err := s.FindByContentHash(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByDigest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.SaveDocument(ctx, "doc1", "h1", testWrapper("one", "shared", "only1"))
	s.SaveDocument(ctx, "doc2", "h2", testWrapper("two", "shared"))

	files, err := s.FindByDigest(ctx, "shared")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(files) != 2 || files[0].DocID != "doc1" || files[1].DocID != "doc2" {
		t.Errorf("expected a match in each document, got %+v", files)
	}
	if files, _ := s.FindByDigest(ctx, "SHARED"); len(files) != 2 {
		t.Errorf("expected digest lookup to ignore case, got %d", len(files))
	}
	if files, _ := s.FindByDigest(ctx, ""); len(files) != 0 {
		t.Errorf("expected no matches for an empty digest, got %d", len(files))
	}
}

func TestListDocuments_Paging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		if err := s.SaveDocument(ctx, id, "h"+id, testWrapper(id)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	page, err := s.ListDocuments(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].DocID != "c" || page[1].DocID != "b" {
		t.Errorf("expected newest first [c b], got %+v", page)
	}
	page, _ = s.ListDocuments(ctx, 2, 2)
	if len(page) != 1 || page[0].DocID != "a" {
		t.Errorf("expected [a] on the second page, got %+v", page)
	}
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.SaveDocument(ctx, "doc1", "h1", testWrapper("one", "x"))

	if err := s.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if files, _ := s.FindByDigest(ctx, "x"); len(files) != 0 {
		t.Errorf("expected files to be deleted with the document, got %d", len(files))
	}
	if err := s.DeleteDocument(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.ListFiles(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound listing files of a missing document, got %v", err)
	}
}
