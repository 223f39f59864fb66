// Package storage stores uploaded files for chatter: message images and
// user avatars. A Backend does the byte-level work (local filesystem or S3);
// the service on top owns key layout and upload policy.
package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a stored object.
type FileInfo struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
	ModTime     time.Time
}

// Backend is the byte store. Implementations must be safe for concurrent use.
type Backend interface {
	// Exists reports whether an object is stored at the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Reader opens the object for streaming. The caller closes the reader.
	Reader(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error)

	// Write stores content at the key. A size of -1 reads until EOF.
	Write(ctx context.Context, key string, content io.Reader, size int64, contentType string) (*FileInfo, error)

	// Delete removes the object. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return e.Op + " " + e.Key + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

type errNotFound struct{}

func (errNotFound) Error() string { return "object not found" }

type errInvalidKey struct{}

func (errInvalidKey) Error() string { return "invalid key" }

// IsNotFound reports whether the error means the object does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		_, ok := e.Err.(errNotFound)
		return ok
	}
	_, ok := err.(errNotFound)
	return ok
}

// IsInvalidKey reports whether the error means the key was rejected.
func IsInvalidKey(err error) bool {
	if e, ok := err.(*Error); ok {
		_, ok := e.Err.(errInvalidKey)
		return ok
	}
	return false
}
