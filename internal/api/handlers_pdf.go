package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdfsift/internal/doctext"
	"github.com/dgallion1/pdfsift/internal/fault"
	"github.com/dgallion1/pdfsift/internal/pipeline"
)

// handleSearch runs the search pipeline: one PDF, one query, one
// synchronous result. Malformed input is rejected before a WorkUnit
// exists.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	query := r.FormValue("query")
	if strings.TrimSpace(query) == "" {
		jsonFault(w, fault.InvalidQuery, "query is required")
		return
	}

	filename, data, ok := s.readUpload(w, r, true)
	if !ok {
		return
	}

	unit := pipeline.NewUnit(s.store.NewID(), pipeline.OpSearch, filename, query, data)
	res, err := s.supervisor.Execute(r.Context(), unit)
	if err != nil {
		writeFault(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res.Search)
}

// handleSummarize runs the summarize pipeline for one document.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, data, ok := s.readUpload(w, r, false)
	if !ok {
		return
	}

	unit := pipeline.NewUnit(s.store.NewID(), pipeline.OpSummarize, filename, "", data)
	res, err := s.supervisor.Execute(r.Context(), unit)
	if err != nil {
		writeFault(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res.Summary)
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.gemini == nil || s.gemini.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": s.gemini.Model(),
		"stats": s.gemini.Stats.Snapshot(),
	})
}

// readUpload validates and reads the single uploaded file. pdfOnly
// restricts the upload to PDFs (the search path); the summarize path
// accepts every doctext format.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, pdfOnly bool) (string, []byte, bool) {
	files := r.MultipartForm.File["pdf"]
	if len(files) == 0 {
		jsonError(w, "pdf file is required", http.StatusBadRequest)
		return "", nil, false
	}
	if len(files) > 1 {
		jsonError(w, "exactly one file per request", http.StatusBadRequest)
		return "", nil, false
	}
	header := files[0]

	filename := sanitizeFilename(header.Filename)
	if pdfOnly {
		if !isPDFUpload(header, filename) {
			jsonError(w, "only PDF uploads are accepted", http.StatusBadRequest)
			return "", nil, false
		}
	} else if !doctext.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return "", nil, false
	}

	file, err := header.Open()
	if err != nil {
		jsonError(w, "failed to open file", http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	if len(data) == 0 {
		jsonError(w, "uploaded file is empty", http.StatusBadRequest)
		return "", nil, false
	}

	return filename, data, true
}

func isPDFUpload(header *multipart.FileHeader, filename string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	ct := header.Header.Get("Content-Type")
	return strings.EqualFold(ct, "application/pdf")
}

// writeFault maps a pipeline fault to an HTTP error response.
func writeFault(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	var status int
	switch kind {
	case fault.InvalidQuery:
		status = http.StatusBadRequest
	case fault.UnreadablePDF, fault.EncryptedPDF:
		status = http.StatusUnprocessableEntity
	case fault.SummarizeUnavailable:
		status = http.StatusBadGateway
	case fault.Timeout:
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"kind":    string(kind),
			"message": err.Error(),
		},
	})
}

func jsonFault(w http.ResponseWriter, kind fault.Kind, msg string) {
	writeFault(w, fault.Errorf(kind, "%s", msg))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
