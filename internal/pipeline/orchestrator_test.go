package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mathcast/mathcast/internal/config"
	"github.com/mathcast/mathcast/internal/speech"
	"github.com/mathcast/mathcast/internal/workspace"
)

func newTestOrchestrator(t *testing.T, stub *toolchainStub, queueSize int) (*Orchestrator, *workspace.Manager) {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.NewManager(
		filepath.Join(root, "uploads"),
		filepath.Join(root, "outputs"),
		filepath.Join(root, "temp"),
	)
	if err != nil {
		t.Fatal(err)
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Defaults()
	cfg.DataDir = root
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = queueSize
	engine := speech.NewEngine(speech.Options{
		Providers: []speech.Provider{fakeVoice{}},
		Runner:    stub,
		Log:       quiet,
	})
	return NewOrchestrator(cfg, stub, &fakeRenderer{}, engine, ws, quiet), ws
}

func waitTerminal(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !job.CurrentStatus().Terminal() {
		if time.Now().After(deadline) {
			t.Fatalf("job %s never finished, stuck at %s", job.ID, job.CurrentStatus())
		}
		time.Sleep(10 * time.Millisecond)
	}
	return job.Snapshot()
}

func TestOrchestratorRunsSubmittedJob(t *testing.T) {
	orch, ws := newTestOrchestrator(t, &toolchainStub{chapters: 2}, 4)
	orch.Start(context.Background())
	defer orch.Stop()

	job := uploadTestJob(t, ws, "lecture.md", twoChapterDoc)
	orch.Register(job)
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}

	snap := waitTerminal(t, job)
	if snap.Status != StatusSucceeded {
		t.Fatalf("status = %s (%s: %s), want succeeded", snap.Status, snap.Phase, snap.Reason)
	}
	if got := orch.GetJob(job.ID); got == nil {
		t.Error("finished job should stay in the registry until swept")
	}
}

func TestOrchestratorSubmitFullQueueFailsJob(t *testing.T) {
	orch, ws := newTestOrchestrator(t, &toolchainStub{}, 1)
	// No Start: nothing drains the queue.

	first := uploadTestJob(t, ws, "a.md", twoChapterDoc)
	orch.Register(first)
	if err := orch.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	second := uploadTestJob(t, ws, "b.md", twoChapterDoc)
	orch.Register(second)
	if err := orch.Submit(second); err == nil {
		t.Fatal("submit into a full queue should error")
	}
	snap := second.Snapshot()
	if snap.Status != StatusFailed || snap.Reason != "job queue is full" {
		t.Errorf("overflowed job = %s/%q, want failed with a queue-full reason", snap.Status, snap.Reason)
	}
}

func TestOrchestratorCancelQueuedJob(t *testing.T) {
	orch, ws := newTestOrchestrator(t, &toolchainStub{}, 4)

	job := uploadTestJob(t, ws, "lecture.md", twoChapterDoc)
	orch.Register(job)
	if err := orch.Submit(job); err != nil {
		t.Fatal(err)
	}

	if !orch.Cancel(job.ID) {
		t.Fatal("cancelling a queued job should succeed")
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Reason != "cancelled" {
		t.Errorf("cancelled job = %s/%q, want failed/cancelled", snap.Status, snap.Reason)
	}
	if orch.Cancel(job.ID) {
		t.Error("cancelling a finished job should report false")
	}
	if orch.Cancel("no-such-job") {
		t.Error("cancelling an unknown job should report false")
	}
}

func TestOrchestratorDeleteRemovesFiles(t *testing.T) {
	orch, ws := newTestOrchestrator(t, &toolchainStub{}, 4)

	job := uploadTestJob(t, ws, "lecture.md", twoChapterDoc)
	orch.Register(job)

	if err := orch.Delete(job.ID); err != nil {
		t.Fatal(err)
	}
	if orch.GetJob(job.ID) != nil {
		t.Error("deleted job should leave the registry")
	}
	if _, err := os.Stat(job.UploadPath); err == nil {
		t.Error("deleted job should lose its uploaded file")
	}
}