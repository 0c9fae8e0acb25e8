package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mathcast/mathcast/internal/parser"
	"github.com/mathcast/mathcast/internal/pipeline"
	"github.com/mathcast/mathcast/internal/structure"
	"github.com/mathcast/mathcast/internal/video"
	"github.com/mathcast/mathcast/internal/workspace"
)

// handleUpload accepts a document, parses it synchronously and registers
// a job. Processing does not start until the job is submitted through
// the process endpoint.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, with headroom for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := workspace.SanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	jobID := pipeline.NewJobID()
	path, size, err := s.ws.SaveUpload(jobID, filename, io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	if size > s.cfg.MaxUploadBytes {
		s.ws.RemoveJob(jobID)
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	// Parse up front so the client learns the document shape before
	// committing to a conversion. The worker re-parses from disk.
	src, err := s.parseUpload(path, filename)
	if err != nil {
		s.ws.RemoveJob(jobID)
		jsonError(w, "failed to parse document: "+err.Error(), http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = src.Title
	}
	doc := structure.NewExtractor(s.cfg.ReadingRate).Extract(title, src.Text, src.Format)

	now := time.Now()
	job := &pipeline.Job{
		ID:         jobID,
		Filename:   filename,
		Title:      title,
		Status:     pipeline.StatusUploaded,
		Phase:      "uploaded",
		UploadPath: path,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.orchestrator.Register(job)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":      job.ID,
		"status":      job.Status,
		"filename":    filename,
		"size_bytes":  size,
		"process_url": fmt.Sprintf("/api/process/%s", job.ID),
		"document_info": map[string]any{
			"title":       title,
			"author":      src.Author,
			"format":      string(src.Format),
			"chapters":    len(doc.Roots),
			"pages":       src.Pages,
			"math_blocks": len(src.Math),
		},
	})
}

func (s *Server) parseUpload(path, filename string) (*parser.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.Extract(f, filename)
}

// processOptions is the request body for the process endpoint. Absent
// fields keep the configured defaults.
type processOptions struct {
	Voice    string `json:"voice"`
	Quality  string `json:"quality"`
	Template string `json:"template"`
	Depth    int    `json:"depth"`
	Chapters *bool  `json:"chapters"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if job.CurrentStatus() != pipeline.StatusUploaded {
		jsonError(w, "job already queued or finished", http.StatusConflict)
		return
	}

	var opts processOptions
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			jsonError(w, "invalid options: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if opts.Voice == "" {
		opts.Voice = s.cfg.Voice
	}
	if opts.Quality == "" {
		opts.Quality = s.cfg.VideoQuality
	}
	if opts.Template == "" {
		opts.Template = s.cfg.SlideTemplate
	}
	if opts.Depth < 1 {
		opts.Depth = s.cfg.ChapterDepth
	}
	if !video.KnownProfile(opts.Quality) {
		jsonError(w, fmt.Sprintf("unknown quality %q (valid: %s)", opts.Quality, strings.Join(video.ProfileNames(), ", ")), http.StatusBadRequest)
		return
	}
	chapters := true
	if opts.Chapters != nil {
		chapters = *opts.Chapters
	}

	job.SetOptions(opts.Voice, opts.Quality, opts.Template, opts.Depth, chapters)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.CurrentStatus(),
		"poll_url": fmt.Sprintf("/api/process/%s/status", job.ID),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jobs":        s.orchestrator.ListJobs(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

// handleDeleteJob removes the job record and every artifact it owns. A
// running job is cancelled first.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.orchestrator.GetJob(jobID) == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if err := s.orchestrator.Delete(jobID); err != nil {
		jsonError(w, "failed to delete job files: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"job_id": jobID, "deleted": true})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.orchestrator.GetJob(jobID) == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if !s.orchestrator.Cancel(jobID) {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"job_id": jobID, "cancelled": true})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
