package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/pipeline"
	"github.com/tomcrane/mets-parser/internal/render"
)

// handleParse builds an uploaded METS document synchronously and returns it
// in the requested format.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	filename, data, status, err := s.readUpload(header)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	wrapper, err := s.parser.ParseBytes(data, filename)
	if err != nil {
		s.log.Info("parse rejected", "filename", filename, "error", err)
		jsonError(w, err.Error(), parseErrorStatus(err))
		return
	}
	s.writeRendered(w, wrapper, format)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	filename, data, status, err := s.readUpload(header)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	job := pipeline.NewJob(filename, strings.TrimSpace(r.FormValue("doc_id")), data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, acceptedJob(job))
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename, data, _, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}

		job := pipeline.NewJob(filename, "", data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		results = append(results, acceptedJob(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleIngestResult returns the parsed document of a job once parsing has
// succeeded.
func (s *Server) handleIngestResult(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	wrapper := job.Wrapper()
	if wrapper == nil {
		snap := job.Snapshot()
		if snap.Status == pipeline.StatusFailed {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "job failed",
				"status": snap.Status,
				"errors": snap.Progress.Errors,
			})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "result not ready",
			"status": snap.Status,
		})
		return
	}
	s.writeRendered(w, wrapper, format)
}

func (s *Server) writeRendered(w http.ResponseWriter, wrapper *mets.Wrapper, format render.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	if err := render.Write(w, wrapper, format); err != nil {
		s.log.Error("render failed", "format", format, "error", err)
	}
}

// readUpload reads one uploaded METS file, enforcing the size limit. The
// returned status is meaningful only with a non-nil error.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !isMetsFilename(filename) {
		return filename, nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return filename, nil, http.StatusInternalServerError, errors.New("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return filename, data, 0, nil
}

// parseErrorStatus maps a build error onto an HTTP status.
func parseErrorStatus(err error) int {
	switch {
	case errors.Is(err, mets.ErrMalformedXML):
		return http.StatusBadRequest
	case errors.Is(err, mets.ErrStructuralIntegrity), errors.Is(err, mets.ErrMissingReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func acceptedJob(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename": snap.Filename,
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", snap.ID),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func isMetsFilename(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml", ".mets":
		return true
	}
	return false
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
