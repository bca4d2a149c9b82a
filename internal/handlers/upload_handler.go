package handlers

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/jd-matcher/internal/services"
)

var allowedPDFTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true,
}

// UploadValidator rejects anything but a non-empty PDF within the size
// limit, and batches of more than maxFiles files.
type UploadValidator struct {
	maxFileSize int64
	maxFiles    int
}

func NewUploadValidator(maxFileSize int64, maxFiles int) *UploadValidator {
	return &UploadValidator{maxFileSize: maxFileSize, maxFiles: maxFiles}
}

func uploadError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", services.ErrValidation, fmt.Sprintf(format, args...))
}

// Read validates one file and loads it into memory.
func (v *UploadValidator) Read(field string, fh *multipart.FileHeader) (services.UploadedFile, error) {
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return services.UploadedFile{}, uploadError("%s: %q is not a PDF file", field, fh.Filename)
	}

	if ct := fh.Header.Get(fiber.HeaderContentType); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !allowedPDFTypes[strings.ToLower(mediaType)] {
			return services.UploadedFile{}, uploadError("%s: unsupported content type %q", field, ct)
		}
	}

	if fh.Size <= 0 {
		return services.UploadedFile{}, uploadError("%s: %q is empty", field, fh.Filename)
	}
	if fh.Size > v.maxFileSize {
		return services.UploadedFile{}, uploadError("%s: %q is too large. Max size: %d bytes", field, fh.Filename, v.maxFileSize)
	}

	f, err := fh.Open()
	if err != nil {
		return services.UploadedFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, v.maxFileSize+1))
	if err != nil {
		return services.UploadedFile{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > v.maxFileSize {
		return services.UploadedFile{}, uploadError("%s: %q is too large. Max size: %d bytes", field, fh.Filename, v.maxFileSize)
	}

	return services.UploadedFile{Name: fh.Filename, Data: data}, nil
}

// ReadAll validates every file before any of them is used.
func (v *UploadValidator) ReadAll(field string, files []*multipart.FileHeader) ([]services.UploadedFile, error) {
	if len(files) > v.maxFiles {
		return nil, uploadError("%s: at most %d files per request, got %d", field, v.maxFiles, len(files))
	}
	out := make([]services.UploadedFile, 0, len(files))
	for _, fh := range files {
		file, err := v.Read(field, fh)
		if err != nil {
			return nil, err
		}
		out = append(out, file)
	}
	return out, nil
}

// formFiles returns the files under field, also accepting the "field[]"
// spelling browsers use for multiple inputs.
func formFiles(form *multipart.Form, field string) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := form.File[field]
	return append(files, form.File[field+"[]"]...)
}

func formValue(form *multipart.Form, field string) (string, bool) {
	if form == nil {
		return "", false
	}
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
