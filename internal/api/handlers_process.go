package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/slidenotes/internal/parser"
	"github.com/dgallion1/slidenotes/internal/pipeline"
)

// requestError is an input problem reported to the caller with its status.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		jsonError(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	dir, err := os.MkdirTemp("", "slidenotes-upload-*")
	if err != nil {
		jsonError(w, "failed to create upload directory", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	var path string
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		path, err = s.saveUpload(dir, header.Filename, file)
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
		rawURL := strings.TrimSpace(r.FormValue("url"))
		if rawURL == "" {
			err = badRequest("file or url is required")
			break
		}
		path, err = s.download(r, dir, rawURL)
	default:
		err = badRequest("invalid file field: %s", err)
	}
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			jsonError(w, reqErr.msg, reqErr.code)
			return
		}
		s.log.Error("saving input failed", "error", err)
		jsonError(w, "failed to store input", http.StatusInternalServerError)
		return
	}

	resp, err := s.processor.Run(r.Context(), path)
	if err != nil {
		if errors.Is(err, pipeline.ErrParse) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("processing failed", "file", filepath.Base(path), "error", err)
		jsonError(w, "processing failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// saveUpload writes an uploaded deck into dir under its sanitized name, so
// the document key keeps the original file stem.
func (s *Server) saveUpload(dir, name string, src io.Reader) (string, error) {
	filename := sanitizeFilename(name)
	if !parser.IsSupportedExtension(filename) {
		return "", badRequest("unsupported file type: %s", filepath.Ext(filename))
	}
	return s.writeInput(dir, filename, io.LimitReader(src, s.cfg.MaxUploadBytes+1))
}

func (s *Server) writeInput(dir, filename string, src io.Reader) (string, error) {
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create input file: %w", err)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write input file: %w", err)
	}
	if n > s.cfg.MaxUploadBytes {
		return "", &requestError{
			code: http.StatusRequestEntityTooLarge,
			msg:  fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes),
		}
	}
	return path, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
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
