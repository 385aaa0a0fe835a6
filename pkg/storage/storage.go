package storage

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// ImageStorage defines contract for profile photo storage.
type ImageStorage interface {
	// UploadImage uploads image from reader and returns the public URL.
	// folder is a logical folder in storage (e.g. "profiles").
	UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// DeleteImage deletes image from storage using its URL.
	DeleteImage(ctx context.Context, fileURL string) error
}

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_.]+`)

// sanitizeFileName keeps only [a-z0-9-_.].
func sanitizeFileName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = nonSafe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-_.")
	if name == "" {
		name = "file"
	}
	return name
}

func isImageExt(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif", ".webp":
		return true
	}
	return false
}
