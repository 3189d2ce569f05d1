package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JonMunkholm/collector/internal/core"
)

const (
	// multipartMemory is how much of a multipart form is held in memory
	// before parts spill to disk.
	multipartMemory = 8 << 20

	// multipartOverhead is the allowance for form fields and boundaries on
	// top of the maximum file size.
	multipartOverhead = 1 << 20
)

// handleImportCSV imports an uploaded csv_file, or a csv_path already on the
// server when no file is sent.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, s.cfg.Import.MaxFileSize))
			return
		}
		s.fail(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	var (
		res *core.Result
		err error
	)
	file, header, fileErr := formFile(r, "csv_file")
	switch {
	case fileErr == nil:
		defer file.Close()
		res, err = s.service.ImportUpload(ctx, header.Filename, file)
	case errors.Is(fileErr, http.ErrMissingFile):
		path := strings.TrimSpace(r.FormValue("csv_path"))
		if path == "" {
			s.fail(w, r, core.ErrNoFile)
			return
		}
		res, err = s.service.ImportFile(ctx, path)
	default:
		s.fail(w, r, fmt.Errorf("%w: %v", errInvalidBody, fileErr))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// formFile is r.FormFile, except that a request without a multipart body
// reports http.ErrMissingFile.
func formFile(r *http.Request, key string) (multipart.File, *multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, nil, http.ErrMissingFile
	}
	return r.FormFile(key)
}
