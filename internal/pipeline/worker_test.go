package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tomcrane/mets-parser/internal/config"
	"github.com/tomcrane/mets-parser/internal/inventory"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/pathstore"
)

const digest = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

const sampleMets = `<mets:mets xmlns:mets="http://www.loc.gov/METS/" xmlns:mods="http://www.loc.gov/mods/v3" xmlns:premis="http://www.loc.gov/premis/v3" xmlns:xlink="http://www.w3.org/1999/xlink">
  <mets:dmdSec><mets:mdWrap><mets:xmlData><mods:mods><mods:titleInfo><mods:title>Letters</mods:title></mods:titleInfo></mods:mods></mets:xmlData></mets:mdWrap></mets:dmdSec>
  <mets:amdSec ID="A">
    <mets:techMD ID="T1"><mets:mdWrap><mets:xmlData><premis:object><premis:objectCharacteristics>
      <premis:fixity><premis:messageDigestAlgorithm>SHA-256</premis:messageDigestAlgorithm><premis:messageDigest>` + digest + `</premis:messageDigest></premis:fixity>
      <premis:size>2048</premis:size></premis:objectCharacteristics></premis:object></mets:xmlData></mets:mdWrap></mets:techMD>
    <mets:techMD ID="T2"><mets:mdWrap><mets:xmlData><premis:object><premis:objectCharacteristics>
      <premis:size>10</premis:size></premis:objectCharacteristics></premis:object></mets:xmlData></mets:mdWrap></mets:techMD>
  </mets:amdSec>
  <mets:fileSec><mets:fileGrp>
    <mets:file ID="F1" MIMETYPE="image/tiff" ADMID="T1"><mets:FLocat xlink:href="letters/scans/001.tif"/></mets:file>
    <mets:file ID="F2" MIMETYPE="text/plain" ADMID="T2"><mets:FLocat xlink:href="letters/readme.txt"/></mets:file>
  </mets:fileGrp></mets:fileSec>
  <mets:structMap TYPE="PHYSICAL"><mets:div>
    <mets:div><mets:fptr FILEID="F1"/></mets:div>
    <mets:div><mets:fptr FILEID="F2"/></mets:div>
  </mets:div></mets:structMap>
</mets:mets>`

var discard = slog.New(slog.DiscardHandler)

// fakePublisher records writes. fail decides the error for each attempt.
type fakePublisher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  func(key string, attempt int) error
}

func (p *fakePublisher) PutNode(ctx context.Context, key string, req pathstore.NodeRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	attempt := p.calls[key]
	p.calls[key]++
	if p.fail != nil {
		return p.fail(key, attempt)
	}
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var keys []string
	for k := range p.calls {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func newWorker(t *testing.T, inv Inventory, pub Publisher) *Worker {
	t.Helper()
	w := NewWorker(&mets.Parser{Log: discard}, inv, pub, discard, 4)
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func newInventory(t *testing.T) *inventory.Store {
	t.Helper()
	s, err := inventory.Open(":memory:")
	if err != nil {
		t.Fatalf("open inventory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWorker_ParseIndexPublish(t *testing.T) {
	inv := newInventory(t)
	pub := &fakePublisher{}
	job := NewJob("letters.xml", "doc1", []byte(sampleMets))

	newWorker(t, inv, pub).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Title != "Letters" || snap.Progress.Files != 2 || snap.Progress.Directories != 2 {
		t.Errorf("unexpected progress %+v title %q", snap.Progress, snap.Title)
	}

	want := []string{
		"mets/by_digest/" + digest + "/doc1",
		"mets/documents/doc1/meta",
		"mets/documents/doc1/tree/letters",
		"mets/documents/doc1/tree/letters/readme.txt",
		"mets/documents/doc1/tree/letters/scans",
		"mets/documents/doc1/tree/letters/scans/001.tif",
	}
	if got := pub.keys(); !slices.Equal(got, want) {
		t.Errorf("expected keys %v, got %v", want, got)
	}
	if snap.Progress.NodesPublished != len(want) || snap.Progress.NodesTotal != len(want) {
		t.Errorf("expected %d nodes published, got %d of %d", len(want), snap.Progress.NodesPublished, snap.Progress.NodesTotal)
	}

	doc, err := inv.GetDocument(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("expected document in inventory: %v", err)
	}
	if doc.ContentHash != job.ContentHash || doc.FileCount != 2 {
		t.Errorf("unexpected inventory document %+v", doc)
	}
	if job.Wrapper() == nil || job.FileData() != nil {
		t.Error("expected the wrapper kept and the upload released")
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	inv := newInventory(t)
	w := newWorker(t, inv, nil)

	first := NewJob("a.xml", "first", []byte(sampleMets))
	w.Process(context.Background(), first)
	second := NewJob("b.xml", "second", []byte(sampleMets))
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %q", snap.Status)
	}
	if snap.DuplicateOf != "first" {
		t.Errorf("expected duplicate of first, got %q", snap.DuplicateOf)
	}
	if _, err := inv.GetDocument(context.Background(), "second"); !errors.Is(err, inventory.ErrNotFound) {
		t.Errorf("expected duplicate not to be indexed, got %v", err)
	}
}

func TestWorker_ParseFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed xml", "<mets:mets"},
		{"no structmap", `<mets xmlns="http://www.loc.gov/METS/"><fileSec/></mets>`},
	}
	for _, tt := range tests {
		pub := &fakePublisher{}
		job := NewJob("bad.xml", "", []byte(tt.body))
		newWorker(t, nil, pub).Process(context.Background(), job)

		snap := job.Snapshot()
		if snap.Status != StatusFailed || snap.Phase != "parsing" {
			t.Errorf("%s: expected failed while parsing, got %q/%q", tt.name, snap.Status, snap.Phase)
		}
		if len(snap.Progress.Errors) != 1 {
			t.Errorf("%s: expected one error, got %v", tt.name, snap.Progress.Errors)
		}
		if len(pub.keys()) != 0 {
			t.Errorf("%s: expected nothing published", tt.name)
		}
	}
}

func TestWorker_RetriesRetryableErrors(t *testing.T) {
	pub := &fakePublisher{fail: func(key string, attempt int) error {
		if key == pathstore.MetaKey("doc1") && attempt < 2 {
			return &pathstore.RetryableError{Op: "put node", StatusCode: 503, Err: errors.New("busy")}
		}
		return nil
	}}
	job := NewJob("letters.xml", "doc1", []byte(sampleMets))
	newWorker(t, nil, pub).Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed after retries, got %q", s)
	}
	if n := pub.calls[pathstore.MetaKey("doc1")]; n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestWorker_PermanentErrorIsPartial(t *testing.T) {
	bad := pathstore.TreeKey("doc1", "letters/readme.txt")
	pub := &fakePublisher{fail: func(key string, attempt int) error {
		if key == bad {
			return errors.New("status 400")
		}
		return nil
	}}
	job := NewJob("letters.xml", "doc1", []byte(sampleMets))
	newWorker(t, nil, pub).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Errorf("expected partial, got %q", snap.Status)
	}
	if pub.calls[bad] != 1 {
		t.Errorf("expected no retry of a permanent error, got %d attempts", pub.calls[bad])
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected one error, got %v", snap.Progress.Errors)
	}
}

func TestWorker_EverythingFails(t *testing.T) {
	pub := &fakePublisher{fail: func(string, int) error {
		return &pathstore.RetryableError{Op: "put node", Err: errors.New("connection refused")}
	}}
	job := NewJob("letters.xml", "doc1", []byte(sampleMets))
	newWorker(t, nil, pub).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "publishing" {
		t.Errorf("expected failed while publishing, got %q/%q", snap.Status, snap.Phase)
	}
	if snap.Progress.NodesPublished != 0 {
		t.Errorf("expected no nodes published, got %d", snap.Progress.NodesPublished)
	}
}

func TestWorker_ParseOnly(t *testing.T) {
	job := NewJob("letters.xml", "", []byte(sampleMets))
	newWorker(t, nil, nil).Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed, got %q", s)
	}
	w := job.Wrapper()
	if w == nil || len(w.Files) != 2 || w.Files[0].Digest != digest {
		t.Errorf("unexpected wrapper %+v", w)
	}
	if w.MetsURI != "letters.xml" {
		t.Errorf("expected the filename as mets uri, got %q", w.MetsURI)
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, MaxConcurrentPublish: 2, JobTTL: time.Hour}
	pub := &fakePublisher{}
	o := NewOrchestrator(cfg, &mets.Parser{Log: discard}, nil, pub, discard)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("letters.xml", "doc1", []byte(sampleMets))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected the job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %q", s)
	}

	stats := o.Stats()
	if stats.Jobs[StatusCompleted] != 1 || stats.Workers != 2 || stats.QueueCapacity != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Inventory || !stats.Publishing {
		t.Errorf("expected publishing only, got %+v", stats)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, &mets.Parser{}, nil, nil, discard)
	defer o.Stop()

	if err := o.Submit(NewJob("a.xml", "", []byte("a"))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob("b.xml", "", []byte("b"))
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if s := second.Snapshot().Status; s != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", s)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
