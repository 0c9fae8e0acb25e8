// Package extproc runs the external tools the pipeline shells out to
// (pdflatex, pdftoppm, ffmpeg, ffprobe) behind a narrow interface.
// The pool runner is the single cross-job synchronization point: a
// weighted semaphore bounds how many processes run at once, and a full
// pool blocks callers instead of spawning more work.
package extproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout marks an invocation killed by its deadline.
var ErrTimeout = errors.New("external process timed out")

// ExitError reports a tool that ran and exited nonzero. Tool failures
// are never retried; the caller decides whether a fallback exists.
type ExitError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, msg)
}

// Command describes one external invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result carries what the process produced.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner runs external commands. Pipeline code depends only on this
// interface; tests substitute stubs.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// PoolRunner bounds simultaneous external processes with a weighted
// semaphore.
type PoolRunner struct {
	sem *semaphore.Weighted
}

// NewPoolRunner returns a runner allowing at most max concurrent
// processes. Values below one are clamped to one.
func NewPoolRunner(max int64) *PoolRunner {
	if max < 1 {
		max = 1
	}
	return &PoolRunner{sem: semaphore.NewWeighted(max)}
}

func (p *PoolRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer p.sem.Release(1)

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	tool := filepath.Base(cmd.Path)
	c := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%s: %w", tool, ErrTimeout)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Tool: tool, ExitCode: res.ExitCode, Stderr: stderr.String()}
	}
	return res, fmt.Errorf("run %s: %w", tool, err)
}

// LookPath reports whether a tool can be found on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
