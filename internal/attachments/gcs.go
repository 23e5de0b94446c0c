package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS stores objects in a Cloud Storage (Firebase Storage) bucket and makes
// each one publicly readable.
type GCS struct {
	bucket     *storage.BucketHandle
	bucketName string
	closer     io.Closer
}

// NewGCS wraps a bucket handle. closer, if non-nil, is closed by Close.
func NewGCS(bucket *storage.BucketHandle, bucketName string, closer io.Closer) *GCS {
	return &GCS{bucket: bucket, bucketName: bucketName, closer: closer}
}

func (g *GCS) Upload(ctx context.Context, key, contentType string, data io.Reader) (string, error) {
	obj := g.bucket.Object(key)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	// The object only exists once Close succeeds.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", key, err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		_ = obj.Delete(context.WithoutCancel(ctx))
		return "", fmt.Errorf("make object %s public: %w", key, err)
	}

	return g.URL(key), nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		out = append(out, Object{Key: attrs.Name, Created: attrs.Created})
	}
	return out, nil
}

func (g *GCS) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucketName, key)
}

func (g *GCS) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}
