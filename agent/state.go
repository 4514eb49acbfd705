package agent

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
)

// loadDocument decodes the JSON document at path into v. A missing or
// unreadable document leaves v untouched and is only logged.
func loadDocument(ctx context.Context, blob storage.BlobStorage, path string, v interface{}, log logger.Logger) {
	raw, err := storage.ReadAll(ctx, blob, path)
	if err != nil {
		if !errors.Is(err, storage.ErrFileNotFound) {
			log.Error(ctx, "failed to read state", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Error(ctx, "failed to parse state, starting fresh", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// saveDocument writes v as indented JSON. Failures are logged and returned.
func saveDocument(ctx context.Context, blob storage.BlobStorage, path string, v interface{}, log logger.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := storage.WriteAll(ctx, blob, path, data); err != nil {
		log.Error(ctx, "failed to save state", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	return nil
}
