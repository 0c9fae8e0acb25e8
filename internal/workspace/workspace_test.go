package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	m, err := NewManager(
		filepath.Join(root, "uploads"),
		filepath.Join(root, "outputs"),
		filepath.Join(root, "temp"),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestSaveUpload(t *testing.T) {
	m := newTestManager(t)
	path, size, err := m.SaveUpload("job1", "lecture.tex", strings.NewReader("\\section{A}"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if size != int64(len("\\section{A}")) {
		t.Errorf("expected size %d, got %d", len("\\section{A}"), size)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved upload: %v", err)
	}
	if string(data) != "\\section{A}" {
		t.Errorf("unexpected content %q", data)
	}
	if !strings.Contains(path, "job1") {
		t.Errorf("upload path should be namespaced by job id, got %q", path)
	}
}

func TestCleanupTempLeavesOutputs(t *testing.T) {
	m := newTestManager(t)
	tmp, err := m.TempDir("job1")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "scratch.wav"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write scratch: %v", err)
	}
	out, err := m.OutputDir("job1")
	if err != nil {
		t.Fatalf("OutputDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(out, "video.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	if err := m.CleanupTemp("job1"); err != nil {
		t.Fatalf("CleanupTemp: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("temp dir should be gone after cleanup")
	}
	if _, err := os.Stat(filepath.Join(out, "video.mp4")); err != nil {
		t.Errorf("outputs must survive temp cleanup: %v", err)
	}
}

func TestRemoveJob(t *testing.T) {
	m := newTestManager(t)
	if _, _, err := m.SaveUpload("job1", "a.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	out, _ := m.OutputDir("job1")
	os.WriteFile(filepath.Join(out, "video.mp4"), []byte("x"), 0o644)

	if err := m.RemoveJob("job1"); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output dir should be gone after RemoveJob")
	}
	names, err := m.JobOutputs("job1")
	if err != nil || names != nil {
		t.Errorf("expected no outputs after removal, got %v, %v", names, err)
	}
}

func TestSweepOlderThan(t *testing.T) {
	m := newTestManager(t)
	oldOut, _ := m.OutputDir("old-job")
	os.WriteFile(filepath.Join(oldOut, "video.mp4"), []byte("x"), 0o644)
	freshOut, _ := m.OutputDir("fresh-job")
	os.WriteFile(filepath.Join(freshOut, "video.mp4"), []byte("x"), 0o644)

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldOut, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := m.SweepOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("SweepOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed dir, got %d", removed)
	}
	if _, err := os.Stat(oldOut); !os.IsNotExist(err) {
		t.Error("old job dir should have been swept")
	}
	if _, err := os.Stat(freshOut); err != nil {
		t.Errorf("fresh job dir must survive the sweep: %v", err)
	}
}

func TestJobOutputs(t *testing.T) {
	m := newTestManager(t)
	out, _ := m.OutputDir("job1")
	os.WriteFile(filepath.Join(out, "video.mp4"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(out, "slides.pdf"), []byte("x"), 0o644)

	names, err := m.JobOutputs("job1")
	if err != nil {
		t.Fatalf("JobOutputs: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 outputs, got %v", names)
	}
}

func TestDiskUsage(t *testing.T) {
	m := newTestManager(t)
	out, _ := m.OutputDir("job1")
	os.WriteFile(filepath.Join(out, "video.mp4"), []byte("abcde"), 0o644)

	usage, err := m.DiskUsage()
	if err != nil {
		t.Fatalf("DiskUsage: %v", err)
	}
	if usage["outputs"] != 5 {
		t.Errorf("expected 5 output bytes, got %d", usage["outputs"])
	}
	if usage["uploads"] != 0 {
		t.Errorf("expected 0 upload bytes, got %d", usage["uploads"])
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"lecture.tex", "lecture.tex"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\evil.docx", "evil.docx"},
		{"my file (final).pdf", "my_file_final_.pdf"},
		{"日本語.md", "_.md"},
		{".hidden", "hidden"},
		{"", "upload"},
		{"...", "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
