package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// StorageService is the durable file backend. Keys are caller supplied,
// slash separated and never content addressed.
type StorageService interface {
	Prepare(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type localStorage struct {
	uploadPath string
	publicPath string
}

// NewLocalStorage stores files under uploadPath and exposes them below
// publicPath, which the HTTP server maps to the same directory.
func NewLocalStorage(uploadPath, publicPath string) StorageService {
	return &localStorage{
		uploadPath: uploadPath,
		publicPath: strings.TrimRight(publicPath, "/"),
	}
}

func (s *localStorage) Prepare(_ context.Context) error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

func (s *localStorage) Put(_ context.Context, key string, data []byte) error {
	filePath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *localStorage) Delete(_ context.Context, key string) error {
	filePath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *localStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicPath + "/" + escapeKey(key)
}

func (s *localStorage) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", fmt.Errorf("invalid storage key %q", key)
		}
	}
	return filepath.Join(s.uploadPath, filepath.FromSlash(key)), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
