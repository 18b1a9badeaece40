package gcsstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// ImageArchive stores uploaded receipt images and hands their bytes back to
// the scan pipeline. Receipts arrive as request bodies, so everything here
// is byte-oriented; nothing touches the local filesystem.
type ImageArchive interface {
	// Save writes the image under a date-partitioned object name and returns
	// its gs:// URI.
	Save(ctx context.Context, filename, contentType string, data []byte) (string, error)
	// Fetch downloads the bytes behind a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}

// Archive is the GCS implementation of ImageArchive. It assumes Application
// Default Credentials are configured.
type Archive struct {
	client *storage.Client
	bucket string
}

func NewArchive(ctx context.Context, bucket string) (*Archive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewArchive: create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket}, nil
}

func (a *Archive) Close() error {
	return a.client.Close()
}

func (a *Archive) Save(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s", time.Now().Format("2006/01/02"), uuid.NewString()+"-"+path.Base(filename))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("Save: writing object: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Save: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

func (a *Archive) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := splitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := a.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	return data, nil
}

func splitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}

var _ ImageArchive = (*Archive)(nil)
