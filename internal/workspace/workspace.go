// Package workspace manages the on-disk layout for jobs: uploads,
// outputs and temp scratch, each namespaced by job ID. IDs are 128-bit
// random, so per-job paths never collide and need no locking.
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Manager owns the three workspace trees.
type Manager struct {
	uploadDir string
	outputDir string
	tempDir   string
}

// NewManager creates the workspace roots if they do not exist.
func NewManager(uploadDir, outputDir, tempDir string) (*Manager, error) {
	for _, dir := range []string{uploadDir, outputDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}
	return &Manager{uploadDir: uploadDir, outputDir: outputDir, tempDir: tempDir}, nil
}

// SaveUpload stores an uploaded document under the job's upload
// directory and returns its path and size.
func (m *Manager) SaveUpload(jobID, filename string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(m.uploadDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, SanitizeFilename(filename))

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	return path, size, nil
}

// TempDir returns the job's scratch directory, creating it on demand.
// Everything under it is fair game for CleanupTemp.
func (m *Manager) TempDir(jobID string) (string, error) {
	dir := filepath.Join(m.tempDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// OutputDir returns the job's output directory, creating it on demand.
// Finished artifacts are moved here only at stage completion.
func (m *Manager) OutputDir(jobID string) (string, error) {
	dir := filepath.Join(m.outputDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// OutputPath returns the path of a named artifact in the job's output
// directory without creating anything.
func (m *Manager) OutputPath(jobID, name string) string {
	return filepath.Join(m.outputDir, jobID, name)
}

// JobOutputs lists the artifact filenames present for a job.
func (m *Manager) JobOutputs(jobID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.outputDir, jobID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CleanupTemp removes the job's scratch directory. It runs after every
// job, succeed or fail, and always after a timeout.
func (m *Manager) CleanupTemp(jobID string) error {
	return os.RemoveAll(filepath.Join(m.tempDir, jobID))
}

// RemoveJob removes every trace of a job from the workspace.
func (m *Manager) RemoveJob(jobID string) error {
	var firstErr error
	for _, root := range []string{m.uploadDir, m.outputDir, m.tempDir} {
		if err := os.RemoveAll(filepath.Join(root, jobID)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SweepOlderThan removes job directories whose contents have not been
// touched within maxAge and reports how many were removed.
func (m *Manager) SweepOlderThan(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var firstErr error
	for _, root := range []string{m.uploadDir, m.outputDir, m.tempDir} {
		entries, err := os.ReadDir(root)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, e := range entries {
			path := filepath.Join(root, e.Name())
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed++
		}
	}
	return removed, firstErr
}

// DiskUsage sums the bytes stored under each workspace root.
func (m *Manager) DiskUsage() (map[string]int64, error) {
	usage := make(map[string]int64, 3)
	for name, root := range map[string]string{
		"uploads": m.uploadDir,
		"outputs": m.outputDir,
		"temp":    m.tempDir,
	} {
		var total int64
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
		usage[name] = total
	}
	return usage, nil
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscoreRuns      = regexp.MustCompile(`_+`)
)

// SanitizeFilename reduces a client-supplied filename to a safe base
// name, preserving the extension the extractors dispatch on.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = underscoreRuns.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, ".")
	if base == "" {
		return "upload"
	}
	return base
}
