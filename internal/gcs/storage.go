// Package gcs lets the pipeline read raw input tables from and publish
// output tables to Google Cloud Storage. Paths without the gs:// scheme fall
// back to the local filesystem, so the same entrypoints serve both layouts.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const uriScheme = "gs://"

// IsGCSURI reports whether the path addresses a GCS object.
func IsGCSURI(p string) bool {
	return strings.HasPrefix(p, uriScheme)
}

// SplitURI splits "gs://bucket/path/to/object.csv" into bucket and object.
func SplitURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/customers.csv" → "customers.csv"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Fetch downloads the object bytes from the given GCS URI. It assumes
// Application Default Credentials are configured.
func Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := SplitURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// ReadFile reads either a gs:// object or a local file, depending on the
// path scheme.
func ReadFile(ctx context.Context, p string) ([]byte, error) {
	if IsGCSURI(p) {
		return Fetch(ctx, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("ReadFile: %w", err)
	}
	return data, nil
}

// UploadFile uploads a local file to a GCS bucket under the given object
// name, used to publish the cleaned and feature tables after a run.
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadFile: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}
	return nil
}
