package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusUploaded          JobStatus = "uploaded"
	StatusQueued            JobStatus = "queued"
	StatusParsing           JobStatus = "parsing"
	StatusComposing         JobStatus = "composing"
	StatusRendering         JobStatus = "rendering"
	StatusNarrating         JobStatus = "narrating"
	StatusAssembling        JobStatus = "assembling"
	StatusSucceeded         JobStatus = "succeeded"
	StatusSucceededDegraded JobStatus = "succeeded_degraded"
	StatusFailed            JobStatus = "failed"
)

// Terminal reports whether a job in this status will never change again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusSucceededDegraded, StatusFailed:
		return true
	}
	return false
}

// NewJobID returns a 128-bit random job identifier. Every per-job file
// path is namespaced by it, so concurrent jobs never share paths.
func NewJobID() string {
	return uuid.NewString()
}

// Progress carries the per-stage counters a status poll reports.
type Progress struct {
	Slides       int     `json:"slides"`
	AudioSeconds float64 `json:"audio_seconds"`
	Chapters     int     `json:"chapters"`
}

// Outputs holds the published artifact paths for a finished job.
type Outputs struct {
	Video   string `json:"video,omitempty"`
	Audio   string `json:"audio,omitempty"`
	Deck    string `json:"deck,omitempty"`
	Sidecar string `json:"sidecar,omitempty"`
}

// Job tracks the state of a single document conversion.
type Job struct {
	mu sync.Mutex

	ID       string
	Filename string
	Title    string

	// Conversion options, resolved at submit time.
	Voice    string
	Quality  string
	Template string
	Depth    int
	Chapters bool

	Status JobStatus
	Phase  string
	Reason string

	UploadPath string
	Progress   Progress
	Outputs    Outputs

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with the phase it died in and a reason.
func (j *Job) Fail(phase, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Phase = phase
	j.Reason = reason
	j.UpdatedAt = time.Now()
}

// Succeed marks the job done. A non-empty reason records a degraded
// completion (playable video, no chapter metadata).
func (j *Job) Succeed(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if reason != "" {
		j.Status = StatusSucceededDegraded
	} else {
		j.Status = StatusSucceeded
	}
	j.Phase = "done"
	j.Reason = reason
	j.UpdatedAt = time.Now()
}

// Snapshot-safe accessors used across goroutines.

func (j *Job) CurrentStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// SetOptions records the conversion options for a run. Values are
// resolved (request overrides over configured defaults) before the job
// is queued and never change mid-run.
func (j *Job) SetOptions(voice, quality, template string, depth int, chapters bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Voice = voice
	j.Quality = quality
	j.Template = template
	j.Depth = depth
	j.Chapters = chapters
	j.UpdatedAt = time.Now()
}

func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

func (j *Job) SetSlides(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Slides = n
	j.UpdatedAt = time.Now()
}

func (j *Job) SetAudioSeconds(sec float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.AudioSeconds = sec
	j.UpdatedAt = time.Now()
}

func (j *Job) SetChapters(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Chapters = n
	j.UpdatedAt = time.Now()
}

func (j *Job) SetOutputs(out Outputs) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Outputs = out
	j.UpdatedAt = time.Now()
}

// OutputPaths returns a copy of the published artifact paths.
func (j *Job) OutputPaths() Outputs {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Outputs
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Reason    string    `json:"reason,omitempty"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Voice     string    `json:"voice"`
	Quality   string    `json:"quality"`
	Template  string    `json:"template"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Reason:    j.Reason,
		Filename:  j.Filename,
		Title:     j.Title,
		Voice:     j.Voice,
		Quality:   j.Quality,
		Template:  j.Template,
		Progress:  j.Progress,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction of
// finished jobs.
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

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// List returns snapshots of every known job, newest first.
func (s *JobStore) List() []JobSnapshot {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	out := make([]JobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// Cleanup evicts finished jobs that have been idle past the TTL.
// Running jobs are never evicted, no matter how old.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Terminal() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
