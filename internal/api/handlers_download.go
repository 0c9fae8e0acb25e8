package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/mathcast/mathcast/internal/pipeline"
)

// downloadAssets maps URL asset names to content types and download
// filename suffixes.
var downloadAssets = map[string]struct {
	contentType string
	suffix      string
}{
	"video":    {"video/mp4", ".mp4"},
	"slides":   {"application/pdf", "_slides.pdf"},
	"audio":    {"audio/wav", "_narration.wav"},
	"chapters": {"text/plain; charset=utf-8", "_chapters.txt"},
}

// handleDownload serves a finished job's artifacts. The "info" asset
// reports which artifacts exist instead of serving a file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	asset := chi.URLParam(r, "asset")

	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	if asset == "info" {
		s.writeDownloadInfo(w, job)
		return
	}

	meta, ok := downloadAssets[asset]
	if !ok {
		jsonError(w, fmt.Sprintf("unknown asset %q (valid: video, slides, audio, chapters, info)", asset), http.StatusNotFound)
		return
	}
	path := assetPath(job.OutputPaths(), asset)
	if path == "" || !fileExists(path) {
		jsonError(w, asset+" not found or not ready", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", meta.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mathcast_%s%s"`, jobID, meta.suffix))
	http.ServeFile(w, r, path)
}

func (s *Server) writeDownloadInfo(w http.ResponseWriter, job *pipeline.Job) {
	snap := job.Snapshot()
	out := job.OutputPaths()

	files := map[string]bool{}
	urls := map[string]any{}
	for asset := range downloadAssets {
		ok := fileExists(assetPath(out, asset))
		files[asset] = ok
		if ok {
			urls[asset] = fmt.Sprintf("/api/download/%s/%s", job.ID, asset)
		} else {
			urls[asset] = nil
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":          job.ID,
		"status":          snap.Status,
		"reason":          snap.Reason,
		"available_files": files,
		"download_urls":   urls,
	})
}

func assetPath(out pipeline.Outputs, asset string) string {
	switch asset {
	case "video":
		return out.Video
	case "slides":
		return out.Deck
	case "audio":
		return out.Audio
	case "chapters":
		return out.Sidecar
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
