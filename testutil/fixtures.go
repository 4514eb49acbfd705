package testutil

import (
	"context"
	"testing"

	"github.com/hairizuan-noorazman/linkedin-agent/storage"
)

// NewTempStorage returns local blob storage rooted in a per-test directory.
func NewTempStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()

	s, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create temp storage: %v", err)
	}
	return s
}

// WriteFixture seeds a document into blob storage.
func WriteFixture(t *testing.T, s storage.BlobStorage, path string, data string) {
	t.Helper()

	if err := storage.WriteAll(context.Background(), s, path, []byte(data)); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}

// ReadFixture reads a document back from blob storage.
func ReadFixture(t *testing.T, s storage.BlobStorage, path string) string {
	t.Helper()

	data, err := storage.ReadAll(context.Background(), s, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
