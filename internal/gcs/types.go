package gcs

import (
	"context"
)

// StorageService provides an interface for object storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// ReadFile reads a gs:// object or a local file depending on the path scheme.
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Client is the production StorageService backed by GCS and the local
// filesystem.
type Client struct{}

func (Client) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, bucketName, objectName, filePath)
}

func (Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return ReadFile(ctx, path)
}
