// Package attachments uploads report photos to a binary object store and
// hands back a public retrieval URL.
package attachments

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is the namespace every report photo is stored under.
const Prefix = "reports/"

const maxExtLen = 8

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Store is a durable object store for report photos.
type Store interface {
	// Upload writes data under key and returns its public URL. The object
	// is fully written and readable before Upload returns.
	Upload(ctx context.Context, key, contentType string, data io.Reader) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// URL is the public URL Upload returns for key.
	URL(key string) string
	Close() error
}

// Object describes a stored attachment.
type Object struct {
	Key     string
	Created time.Time
}

// NewObjectKey returns a fresh key under Prefix for an upload named
// filename. Only the extension of filename is used.
func NewObjectKey(filename string) string {
	return Prefix + strings.ReplaceAll(uuid.NewString(), "-", "") + cleanExt(filename)
}

// KeyFromURL returns the object key a public URL points at, independent of
// the base URL the store had when the URL was issued.
func KeyFromURL(url string) (string, bool) {
	i := strings.LastIndex(url, Prefix)
	if i < 0 || i+len(Prefix) == len(url) {
		return "", false
	}
	return url[i:], true
}

func cleanExt(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if len(ext) < 2 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	if len(ext) > maxExtLen {
		ext = ext[:maxExtLen]
	}
	return ext
}
