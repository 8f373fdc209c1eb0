package attendance

import (
	"errors"
	"sync"
	"time"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a bulk job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job tracks one asynchronous bulk submission.
type Job struct {
	ID        string      `json:"id"`
	Status    JobStatus   `json:"status"`
	Request   BulkRequest `json:"request"`
	Result    *Result     `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Tracker keeps job state in memory for the life of the process.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewTracker creates an empty tracker. now defaults to time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{jobs: make(map[string]*Job), now: now}
}

func (t *Tracker) add(id string, req BulkRequest) Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := t.now().UTC()
	j := &Job{ID: id, Status: JobQueued, Request: req, CreatedAt: ts, UpdatedAt: ts}
	t.jobs[id] = j
	return *j
}

func (t *Tracker) update(id string, fn func(j *Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, found := t.jobs[id]
	if !found {
		return
	}
	fn(j)
	j.UpdatedAt = t.now().UTC()
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(id string) (Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, found := t.jobs[id]
	if !found {
		return Job{}, ErrJobNotFound
	}
	return *j, nil
}

// Prune forgets finished jobs last updated more than maxAge ago and returns
// how many were dropped. Queued and running jobs are kept.
func (t *Tracker) Prune(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().UTC().Add(-maxAge)
	n := 0
	for id, j := range t.jobs {
		if (j.Status == JobDone || j.Status == JobFailed) && j.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked jobs.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}
