// internal/storage/local.go
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend stores objects under a directory on the local filesystem.
type LocalBackend struct {
	basePath string
}

// NewLocal creates the base directory if needed and returns a backend
// rooted there.
func NewLocal(basePath string) (*LocalBackend, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, &Error{Op: "NewLocal", Err: fmt.Errorf("invalid path: %w", err)}
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, &Error{Op: "NewLocal", Err: fmt.Errorf("create directory: %w", err)}
	}
	return &LocalBackend{basePath: absPath}, nil
}

// validateKey rejects empty keys, traversal attempts and absolute paths.
func (b *LocalBackend) validateKey(key string) error {
	switch {
	case key == "",
		strings.ContainsRune(key, 0),
		strings.Contains(key, ".."),
		filepath.IsAbs(key),
		strings.HasPrefix(filepath.Clean(key), ".."):
		return &Error{Op: "validateKey", Key: key, Err: errInvalidKey{}}
	}
	return nil
}

func (b *LocalBackend) fullPath(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := b.validateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(b.fullPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &Error{Op: "Exists", Key: key, Err: err}
}

func (b *LocalBackend) Reader(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	if err := b.validateKey(key); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &Error{Op: "Reader", Key: key, Err: errNotFound{}}
		}
		return nil, nil, &Error{Op: "Reader", Key: key, Err: err}
	}

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		f.Close()
		if err != nil {
			return nil, nil, &Error{Op: "Reader", Key: key, Err: err}
		}
		return nil, nil, &Error{Op: "Reader", Key: key, Err: errNotFound{}}
	}

	return f, &FileInfo{Key: key, Size: stat.Size(), ModTime: stat.ModTime()}, nil
}

// Write streams to a temp file and renames it into place so readers never
// observe a partial object.
func (b *LocalBackend) Write(ctx context.Context, key string, content io.Reader, size int64, contentType string) (*FileInfo, error) {
	if err := b.validateKey(key); err != nil {
		return nil, err
	}

	path := b.fullPath(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: fmt.Errorf("create directory: %w", err)}
	}

	tmpFile, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	h := md5.New()
	writer := io.MultiWriter(tmpFile, h)

	var written int64
	if size >= 0 {
		written, err = io.CopyN(writer, content, size)
	} else {
		written, err = io.Copy(writer, content)
	}
	if err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: fmt.Errorf("write content: %w", err)}
	}

	if err := tmpFile.Close(); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: fmt.Errorf("close temp file: %w", err)}
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, &Error{Op: "Write", Key: key, Err: fmt.Errorf("rename to final: %w", err)}
	}

	return &FileInfo{
		Key:         key,
		Size:        written,
		ContentType: contentType,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ModTime:     time.Now(),
	}, nil
}

func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	if err := b.validateKey(key); err != nil {
		return err
	}

	path := b.fullPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "Delete", Key: key, Err: err}
	}
	b.cleanEmptyDirs(filepath.Dir(path))
	return nil
}

func (b *LocalBackend) cleanEmptyDirs(dir string) {
	for dir != b.basePath && strings.HasPrefix(dir, b.basePath) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
}

func (b *LocalBackend) Close() error { return nil }

// BasePath returns the backend's root directory.
func (b *LocalBackend) BasePath() string { return b.basePath }
