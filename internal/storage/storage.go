// Package storage is the object store the transfer service works against.
//
// Objects are addressed by full keys (folder prefix + file name) while the
// upload-conflict check works on base names. ObjectKey and BaseName convert
// between the two.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is wrapped into errors for objects that do not exist
var ErrNotFound = errors.New("object not found")

// ObjectRecord describes one stored object. LastModified is zero when the
// backend did not report it.
type ObjectRecord struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Store is the narrow set of bucket operations the service needs
type Store interface {
	List(ctx context.Context, prefix string) ([]ObjectRecord, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectRecord, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Error is a failure reported by a backend. Err is the backend error as is.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err}
}

func notFound(op, key string, err error) error {
	return &Error{Op: op, Key: key, Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
}

// IsFolderKey reports whether key is a folder placeholder
func IsFolderKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// ObjectKey joins the folder prefix and a file name into a storage key
func ObjectKey(prefix, name string) string {
	return prefix + name
}

// BaseName returns the last path segment of key
func BaseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// BaseNames returns the base name of every record
func BaseNames(records []ObjectRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, BaseName(r.Key))
	}
	return names
}

// NormalizePrefix makes a non-empty folder prefix end with a slash
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(strings.TrimSpace(prefix), "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// InFolder reports whether key is a file directly or indirectly under prefix
func InFolder(prefix, key string) bool {
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix) && !IsFolderKey(key)
}

func filterFolders(records []ObjectRecord) []ObjectRecord {
	files := records[:0]
	for _, r := range records {
		if !IsFolderKey(r.Key) {
			files = append(files, r)
		}
	}
	return files
}
