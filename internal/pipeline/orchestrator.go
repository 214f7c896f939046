package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tomcrane/mets-parser/internal/config"
	"github.com/tomcrane/mets-parser/internal/mets"
)

// ErrQueueFull is returned by Submit when no worker can take the job.
var ErrQueueFull = errors.New("job queue is full")

// Orchestrator manages the METS ingestion pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	parser    *mets.Parser
	inventory Inventory
	publisher Publisher
	log       *slog.Logger
	cfg       config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. inv and pub may be nil.
func NewOrchestrator(cfg config.Config, parser *mets.Parser, inv Inventory, pub Publisher, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		parser:    parser,
		inventory: inv,
		publisher: pub,
		log:       log,
		cfg:       cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.parser, o.inventory, o.publisher, o.log, o.cfg.MaxConcurrentPublish)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	QueueDepth    int               `json:"queue_depth"`
	QueueCapacity int               `json:"queue_capacity"`
	Workers       int               `json:"workers"`
	Jobs          map[JobStatus]int `json:"jobs"`
	Inventory     bool              `json:"inventory"`
	Publishing    bool              `json:"publishing"`
}

// Stats reports queue depth and retained jobs by status.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		QueueDepth:    len(o.queue),
		QueueCapacity: cap(o.queue),
		Workers:       o.cfg.WorkerCount,
		Jobs:          o.jobs.Counts(),
		Inventory:     o.inventory != nil,
		Publishing:    o.publisher != nil,
	}
}
