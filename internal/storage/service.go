// internal/storage/service.go
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadSize caps a single upload.
const MaxUploadSize = 10 << 20 // 10 MiB

// Config selects and configures the backend.
type Config struct {
	Backend   string // "local" or "s3"
	LocalPath string
	S3        S3Config
}

// allowedContentTypes lists the MIME types accepted for uploads. Chat
// attachments are images; everything else is rejected at the door.
var allowedContentTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Service owns key layout and upload policy on top of a Backend.
type Service struct {
	backend Backend
}

// NewService builds the configured backend. An unset backend defaults to
// local storage under ./uploads.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	var backend Backend
	var err error

	switch cfg.Backend {
	case "s3":
		backend, err = NewS3(ctx, cfg.S3)
	case "local", "":
		localPath := cfg.LocalPath
		if localPath == "" {
			localPath = "./uploads"
		}
		backend, err = NewLocal(localPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return &Service{backend: backend}, nil
}

// NewServiceWithBackend wires an existing backend, used by tests.
func NewServiceWithBackend(b Backend) *Service {
	return &Service{backend: b}
}

// Upload validates the content type and stores the content under a fresh
// key. The original filename only contributes its extension as a fallback.
func (s *Service) Upload(ctx context.Context, filename, contentType string, content io.Reader, size int64) (*FileInfo, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	if size > MaxUploadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}

	if orig := strings.ToLower(path.Ext(filename)); orig != "" && len(orig) <= 5 {
		ext = orig
	}
	key := "uploads/" + uuid.New().String() + ext

	return s.backend.Write(ctx, key, content, size, contentType)
}

// Open streams a stored object.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	return s.backend.Reader(ctx, key)
}

// Delete removes a stored object.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Close releases the backend.
func (s *Service) Close() error {
	return s.backend.Close()
}
