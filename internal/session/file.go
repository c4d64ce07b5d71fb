package session

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnsupportedType rejects files the backend cannot analyse.
var ErrUnsupportedType = errors.New("session: unsupported file type, expected PDF, JPG, PNG, TIFF or WEBP")

// AcceptedTypes are the media types a drawing may have.
var AcceptedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/tiff",
	"image/webp",
}

// File is a drawing picked by the user. Data is uploaded once; the preview
// is built from it but never sent anywhere.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadFile loads path and detects its media type.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("session: read %s: %w", path, err)
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: DetectType(filepath.Base(path), data),
		Data:        data,
	}, nil
}

// DetectType sniffs content first and falls back to the extension.
func DetectType(name string, data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "image/tiff"
	}
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if slices.Contains(AcceptedTypes, sniffed) {
		return sniffed
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	}
	return sniffed
}

// Validate checks the file is non-empty and of an accepted type.
func (f File) Validate() error {
	if len(f.Data) == 0 {
		return fmt.Errorf("session: %s is empty", f.Name)
	}
	if !slices.Contains(AcceptedTypes, f.ContentType) {
		return fmt.Errorf("%w (got %s)", ErrUnsupportedType, f.ContentType)
	}
	return nil
}
