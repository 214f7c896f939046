package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomcrane/mets-parser/internal/mets"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusIndexing   JobStatus = "indexing"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Done reports whether s is terminal.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single METS document ingestion.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	wrapper  *mets.Wrapper
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Files          int      `json:"files"`
	Directories    int      `json:"directories"`
	NodesTotal     int      `json:"nodes_total"`
	NodesPublished int      `json:"nodes_published"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job for a METS document. An empty docID is derived
// from the document bytes, so the same upload always lands on the same ID.
func NewJob(filename, docID string, data []byte) *Job {
	now := time.Now()
	hash := ContentHashHex(data)
	if docID == "" {
		docID = hash[:16]
	}
	return &Job{
		ID:          uuid.Must(uuid.NewV7()).String(),
		DocID:       docID,
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Counts returns the number of retained jobs in each status.
func (s *JobStore) Counts() map[JobStatus]int {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	counts := make(map[JobStatus]int)
	for _, j := range jobs {
		j.mu.Lock()
		counts[j.Status]++
		j.mu.Unlock()
	}
	return counts
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetWrapper keeps the parsed document for /result and records its size.
func (j *Job) SetWrapper(w *mets.Wrapper) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.wrapper = w
	j.Title = w.Name
	j.Progress.Files = len(w.Files)
	if w.PhysicalStructure != nil {
		j.Progress.Directories = w.PhysicalStructure.DescendantDirectoryCount()
	}
	j.UpdatedAt = time.Now()
}

// Wrapper returns the parsed document, or nil before parsing succeeds.
func (j *Job) Wrapper() *mets.Wrapper {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wrapper
}

// SetDuplicateOf records the earlier document holding the same bytes.
func (j *Job) SetDuplicateOf(docID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DuplicateOf = docID
	j.UpdatedAt = time.Now()
}

// SetNodesTotal records how many pathstore nodes will be written.
func (j *Job) SetNodesTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.NodesTotal = n
	j.UpdatedAt = time.Now()
}

// IncrNodesPublished atomically increments published nodes.
func (j *Job) IncrNodesPublished() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.NodesPublished++
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

func (j *Job) ensureContentHash(data []byte) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.ContentHash == "" {
		j.ContentHash = ContentHashHex(data)
	}
	return j.ContentHash
}

// releaseFileData drops the upload once the job no longer needs it.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		DuplicateOf: j.DuplicateOf,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
