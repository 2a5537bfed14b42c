package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/inkpress/apiserver/internal/services"
)

const (
	maxMultipartMemory = 32 << 20
	formFieldCover     = "cover"
	formFieldAvatar    = "avatar"
)

var errMissingFile = errors.New("file is required")

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// parseUpload reads a single file from field. It returns errMissingFile when
// the form carries no such file.
func parseUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, errors.New("invalid multipart form")
	}
	return formFile(r.MultipartForm, field)
}

func formFile(form *multipart.Form, field string) ([]byte, error) {
	if form == nil {
		return nil, errors.New("missing form data")
	}

	files := form.File[field]
	if len(files) == 0 {
		return nil, errMissingFile
	}
	if len(files) > 1 {
		return nil, fmt.Errorf("only one %s file is allowed", field)
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}
	defer file.Close()

	return readFileLimited(file, services.MaxUploadSize)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

// discardUpload removes a stored upload that did not end up on a record.
func discardUpload(r *http.Request, media *services.MediaService, ref string) {
	if err := media.Remove(r.Context(), ref); err != nil {
		slog.WarnContext(r.Context(), "remove upload", "ref", ref, "err", err)
	}
}

// replaceUpload installs ref in place of previous. On failure ref is
// discarded; on success the previous upload is.
func replaceUpload(r *http.Request, media *services.MediaService, previous, ref string, err error) {
	if err != nil {
		discardUpload(r, media, ref)
		return
	}
	if previous != "" && previous != ref {
		discardUpload(r, media, previous)
	}
}

// formValue returns a trimmed pointer to a multipart field, or nil when the
// field is absent.
func formValue(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	return &value
}
