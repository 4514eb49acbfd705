package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// BlobStorage stores whole documents by relative path. The tunable config,
// the JSON run history and debug screenshots all live behind it.
type BlobStorage interface {
	// Upload replaces the data at path with the reader's contents.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download retrieves data from the specified path.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the data at the specified path.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the specified path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetURL returns a location for the data: a filesystem path for local
	// storage, a presigned URL for S3.
	GetURL(ctx context.Context, path string) (string, error)

	// List returns the paths under prefix in ascending order. A missing
	// prefix yields an empty list.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config selects and configures a BlobStorage backend.
type Config struct {
	Type            string // "local" or "s3"
	BaseDir         string
	S3Bucket        string
	S3Region        string
	S3PresignExpiry time.Duration
}

// NewBlobStorage creates a BlobStorage implementation based on configuration.
func NewBlobStorage(cfg Config) (BlobStorage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base_dir is required for local storage")
		}
		return NewLocalStorage(cfg.BaseDir)

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("bucket is required for S3 storage")
		}
		if cfg.S3Region == "" {
			return nil, fmt.Errorf("region is required for S3 storage")
		}

		s3Storage, err := NewS3Storage(cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		if cfg.S3PresignExpiry > 0 {
			s3Storage.presignExpiration = cfg.S3PresignExpiry
		}
		return s3Storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ReadAll downloads the whole document at path.
func ReadAll(ctx context.Context, s BlobStorage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WriteAll replaces the document at path with data.
func WriteAll(ctx context.Context, s BlobStorage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}
