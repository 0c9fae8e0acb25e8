package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mathcast/mathcast/internal/config"
	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/render"
	"github.com/mathcast/mathcast/internal/speech"
	"github.com/mathcast/mathcast/internal/workspace"
)

// Orchestrator owns the job registry, the work queue and the worker
// goroutines. Jobs run as independent sequential chains; the only
// resource shared between them is the bounded external-process runner.
type Orchestrator struct {
	cfg    config.Config
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	ws     *workspace.Manager
	log    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewOrchestrator(cfg config.Config, runner extproc.Runner, renderer render.Renderer, tts *speech.Engine, ws *workspace.Manager, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		worker:  NewWorker(cfg, runner, renderer, tts, ws, log),
		ws:      ws,
		log:     log,
		running: make(map[string]context.CancelFunc),
	}
}

// Start launches worker goroutines and the periodic sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.runJob(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Info("evicted finished jobs", "count", n)
				}
				if n, err := o.ws.SweepOlderThan(o.cfg.FileMaxAge); err != nil {
					o.log.Warn("workspace sweep failed", "error", err)
				} else if n > 0 {
					o.log.Info("swept stale job files", "count", n)
				}
			}
		}
	}()
}

func (o *Orchestrator) runJob(ctx context.Context, job *Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running[job.ID] = cancel
	o.mu.Unlock()

	o.worker.Process(jobCtx, job)

	o.mu.Lock()
	delete(o.running, job.ID)
	o.mu.Unlock()
	cancel()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Register adds an uploaded job to the registry without queueing it.
func (o *Orchestrator) Register(job *Job) {
	o.jobs.Put(job)
}

// Submit queues a registered job for processing. A full queue fails the
// job immediately rather than blocking the caller.
func (o *Orchestrator) Submit(job *Job) error {
	job.SetStatus(StatusQueued, "queued")
	select {
	case o.queue <- job:
		return nil
	default:
		job.Fail("queued", "job queue is full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Cancel stops a job. A running job has its context cancelled, which
// kills any external process it is waiting on; a queued job is failed
// in place and skipped when a worker picks it up. Returns false if the
// job is unknown or already finished.
func (o *Orchestrator) Cancel(id string) bool {
	job := o.jobs.Get(id)
	if job == nil {
		return false
	}

	o.mu.Lock()
	cancel, isRunning := o.running[id]
	o.mu.Unlock()
	if isRunning {
		cancel()
		return true
	}

	if !job.CurrentStatus().Terminal() {
		job.Fail("queued", "cancelled")
		return true
	}
	return false
}

// Delete cancels a job if needed and removes its registry entry and
// every file it owns.
func (o *Orchestrator) Delete(id string) error {
	if job := o.jobs.Get(id); job != nil {
		o.Cancel(id)
		o.jobs.Delete(id)
	}
	return o.ws.RemoveJob(id)
}

// GetJob returns a job by ID, or nil.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// ListJobs returns snapshots of all known jobs, newest first.
func (o *Orchestrator) ListJobs() []JobSnapshot {
	return o.jobs.List()
}

// QueueDepth returns the number of jobs waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
