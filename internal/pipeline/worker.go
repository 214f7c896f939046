package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomcrane/mets-parser/internal/inventory"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/pathstore"
)

// Inventory is the part of the document inventory a worker writes to.
type Inventory interface {
	FindByContentHash(ctx context.Context, contentHash string) (*inventory.Document, error)
	SaveDocument(ctx context.Context, docID, contentHash string, w *mets.Wrapper) error
}

// Publisher writes tree nodes to pathstore.
type Publisher interface {
	PutNode(ctx context.Context, key string, req pathstore.NodeRequest) error
}

// Worker processes a single document job.
type Worker struct {
	parser    *mets.Parser
	inventory Inventory
	publisher Publisher
	log       *slog.Logger

	maxConcurrentPublish int
	backoff              func(attempt int) time.Duration
}

// NewWorker returns a worker. inv and pub may be nil to skip indexing or
// publishing.
func NewWorker(parser *mets.Parser, inv Inventory, pub Publisher, log *slog.Logger, maxPublish int) *Worker {
	if maxPublish <= 0 {
		maxPublish = 1
	}
	return &Worker{
		parser:               parser,
		inventory:            inv,
		publisher:            pub,
		log:                  log,
		maxConcurrentPublish: maxPublish,
		backoff:              Backoff,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	contentHash := job.ensureContentHash(data)
	wrapper, err := w.parser.ParseBytes(data, job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetWrapper(wrapper)
	job.releaseFileData()
	log.Info("parsed mets", "files", len(wrapper.Files), "name", wrapper.Name)

	// Phase 1.5: Dedup check
	if existing, err := w.checkDuplicate(ctx, contentHash); err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if existing != "" {
		log.Info("duplicate document, skipping", "existing_doc_id", existing)
		job.SetDuplicateOf(existing)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	succeeded, hadErrors := 0, false
	phase := "parsing"

	// Phase 2: Index
	if w.inventory != nil {
		phase = "indexing"
		job.SetStatus(StatusIndexing, phase)
		if err := w.inventory.SaveDocument(ctx, job.DocID, contentHash, wrapper); err != nil {
			log.Error("inventory write failed", "error", err)
			job.AddError(fmt.Sprintf("index: %s", err))
			hadErrors = true
		} else {
			succeeded++
		}
	}

	// Phase 3: Publish
	if w.publisher != nil {
		phase = "publishing"
		job.SetStatus(StatusPublishing, phase)
		published, failed := w.publish(ctx, log, job, wrapper)
		log.Info("publish complete", "published", published, "failed", failed)
		succeeded += published
		if failed > 0 {
			hadErrors = true
		}
	}

	switch {
	case hadErrors && succeeded > 0:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, phase)
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

// publish writes every node of the document with bounded concurrency and
// returns how many writes succeeded and failed.
func (w *Worker) publish(ctx context.Context, log *slog.Logger, job *Job, wrapper *mets.Wrapper) (published, failed int) {
	nodes := documentNodes(job.Snapshot(), wrapper)
	job.SetNodesTotal(len(nodes))

	type publishResult struct {
		key string
		err error
	}
	results := make(chan publishResult, len(nodes))
	sem := make(chan struct{}, w.maxConcurrentPublish)

	for _, n := range nodes {
		sem <- struct{}{}
		go func(n node) {
			defer func() { <-sem }()
			err := withRetry(ctx, log.With("key", n.key), w.backoff, func() error {
				return w.publisher.PutNode(ctx, n.key, n.req)
			})
			results <- publishResult{key: n.key, err: err}
		}(n)
	}

	for range nodes {
		r := <-results
		if r.err != nil {
			log.Error("publish failed", "key", r.key, "error", r.err)
			job.AddError(fmt.Sprintf("publish %s: %s", r.key, r.err))
			failed++
			continue
		}
		job.IncrNodesPublished()
		published++
	}
	return published, failed
}

// checkDuplicate returns the ID of an already indexed document with the same
// bytes, or "" when there is none.
func (w *Worker) checkDuplicate(ctx context.Context, contentHash string) (string, error) {
	if w.inventory == nil {
		return "", nil
	}
	doc, err := w.inventory.FindByContentHash(ctx, contentHash)
	if errors.Is(err, inventory.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.DocID, nil
}
