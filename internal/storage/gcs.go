// Package storage uploads generated artifacts to Google Cloud Storage on
// a best-effort basis. Uploads never fail the operation that triggered
// them: any error degrades to an empty URL and the caller proceeds with
// the local path only.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	gcs "cloud.google.com/go/storage"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

// Uploader is the side-effect port for remote artifact storage. Upload
// returns the public URL, or "" when the upload was not possible.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder string) string
	UploadBytes(ctx context.Context, data []byte, filename, folder string) string
}

// NopUploader is used when remote storage is disabled by configuration.
type NopUploader struct{}

func (NopUploader) Upload(ctx context.Context, localPath, folder string) string { return "" }
func (NopUploader) UploadBytes(ctx context.Context, data []byte, filename, folder string) string {
	return ""
}

// GCSUploader uploads to a fixed bucket with lazy client initialization.
// A failed init disables the uploader for the rest of the process.
type GCSUploader struct {
	project string
	bucket  string

	mu       sync.Mutex
	client   *gcs.Client
	disabled bool
}

func NewGCSUploader(project, bucket string) *GCSUploader {
	return &GCSUploader{project: project, bucket: bucket}
}

func (u *GCSUploader) getClient(ctx context.Context) *gcs.Client {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disabled {
		return nil
	}
	if u.client != nil {
		return u.client
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		logging.StorageWarn("GCS client init failed, uploads disabled: %v", err)
		u.disabled = true
		return nil
	}
	logging.Storage("GCS client initialized for bucket %s", u.bucket)
	u.client = client
	return u.client
}

// Upload sends a local file to GCS and returns its public URL, or ""
// on any failure.
func (u *GCSUploader) Upload(ctx context.Context, localPath, folder string) string {
	data, err := os.ReadFile(localPath)
	if err != nil {
		logging.StorageWarn("GCS upload skipped, cannot read %s: %v", localPath, err)
		return ""
	}
	return u.UploadBytes(ctx, data, filepath.Base(localPath), folder)
}

// UploadBytes sends raw bytes to GCS and returns the public URL, or "".
func (u *GCSUploader) UploadBytes(ctx context.Context, data []byte, filename, folder string) string {
	client := u.getClient(ctx)
	if client == nil {
		return ""
	}

	name := folder + "/" + filename
	w := client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = types.MIMEForPath(filename)
	if _, err := w.Write(data); err != nil {
		logging.StorageWarn("GCS upload failed for %s: %v", name, err)
		w.Close()
		return ""
	}
	if err := w.Close(); err != nil {
		logging.StorageWarn("GCS upload close failed for %s: %v", name, err)
		return ""
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, name)
	logging.Storage("uploaded %s", url)
	return url
}
