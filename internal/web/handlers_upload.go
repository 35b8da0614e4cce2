package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/csvimport"
)

// multipartOverhead is the allowance for multipart boundaries and form fields
// on top of the file size limit.
const multipartOverhead = 64 << 10

// maxFormMemory is how much of a multipart upload is held in memory before
// spilling to a temporary file.
const maxFormMemory = 1 << 20

// handleImport imports a CSV/TSV file into the project's plan.
//
// The file is sent as multipart field "file", or as a raw text/csv,
// text/tab-separated-values or text/plain body. Options come from form or
// query values: applyMeta, extendedAliases and headerRows.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.readImportRequest(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	result, err := s.service.ImportCSV(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleValidateImport reports whether a file would import, without writing.
// An unusable file is a 200 with valid=false, not an error.
func (s *Server) handleValidateImport(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.readImportRequest(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	if _, err := s.service.GetProject(r.Context(), req.ProjectID); err != nil {
		respondError(w, r, err)
		return
	}

	report, err := s.service.ValidateImport(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// readImportRequest builds an ImportRequest from a multipart or raw body.
// The returned cleanup closes the file and removes spooled form data.
func (s *Server) readImportRequest(w http.ResponseWriter, r *http.Request) (core.ImportRequest, func(), error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	req := core.ImportRequest{ProjectID: chi.URLParam(r, "projectID")}
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv", "text/tab-separated-values", "text/plain":
		req.FileName = r.URL.Query().Get("fileName")
		req.Body = r.Body
		if err := applyImportOptions(&req, r.URL.Query().Get); err != nil {
			return req, noop, err
		}
		return req, noop, nil

	case "multipart/form-data":
	default:
		return req, noop, core.ErrNoFile
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, noop, fmt.Errorf("%w: exceeds %d bytes", csvimport.ErrFileTooLarge, maxSize)
		}
		return req, noop, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	cleanupForm := func() { r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanupForm()
		if errors.Is(err, http.ErrMissingFile) {
			return req, noop, core.ErrNoFile
		}
		return req, noop, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	req.FileName = header.Filename
	req.Body = io.Reader(file)
	if err := applyImportOptions(&req, r.FormValue); err != nil {
		file.Close()
		cleanupForm()
		return req, noop, err
	}

	return req, func() {
		file.Close()
		cleanupForm()
	}, nil
}

// applyImportOptions reads the optional import settings through get.
func applyImportOptions(req *core.ImportRequest, get func(string) string) error {
	req.ApplyMeta = parseBoolParam(get("applyMeta"))
	req.ExtendedAliases = parseBoolParam(get("extendedAliases"))

	if v := get("headerRows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: headerRows must be a positive integer", errInvalidBody)
		}
		req.HeaderSearchRows = n
	}
	return nil
}
