package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSWriter stores objects in a Cloud Storage bucket.
type GCSWriter struct {
	client *storage.Client
	bucket string
}

func NewGCSWriter(client *storage.Client, bucket string) *GCSWriter {
	if client == nil {
		panic("gcs writer requires client")
	}
	if bucket == "" {
		panic("gcs writer requires bucket")
	}
	return &GCSWriter{client: client, bucket: bucket}
}

func (g *GCSWriter) URI(key string) string {
	return "gs://" + g.bucket + "/" + key
}

// Create returns the object writer of the Cloud Storage client. The upload
// is finalized by Close.
func (g *GCSWriter) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	return w, nil
}

// Check verifies the bucket exists and prefix can be listed.
func (g *GCSWriter) Check(ctx context.Context, prefix string) error {
	bkt := g.client.Bucket(g.bucket)
	if _, err := bkt.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket attrs: %w", err)
	}

	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("list prefix: %w", err)
	}
	return nil
}
