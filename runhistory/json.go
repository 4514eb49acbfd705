package runhistory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
)

// JSONStore keeps the history as a single JSON array document. The document
// is loaded once; afterwards the in-memory list is authoritative and each
// LogRun rewrites the whole document.
type JSONStore struct {
	mu      sync.Mutex
	records []*RunRecord
	loaded  bool
	limit   int
	path    string
	storage storage.BlobStorage
	logger  logger.Logger
	now     func() time.Time
}

// NewJSONStore creates a store backed by the document at path.
func NewJSONStore(blob storage.BlobStorage, path string, log logger.Logger) *JSONStore {
	return &JSONStore{
		limit:   MaxRuns,
		path:    path,
		storage: blob,
		logger:  log.WithField("component", "runhistory"),
		now:     time.Now,
	}
}

// LogRun appends a record and rewrites the document.
func (s *JSONStore) LogRun(ctx context.Context, metrics map[string]interface{}) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)

	record := newRecord(s.now(), metrics)
	s.records = append(s.records, record)
	if len(s.records) > s.limit {
		s.records = s.records[len(s.records)-s.limit:]
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return record, err
	}
	if err := storage.WriteAll(ctx, s.storage, s.path, data); err != nil {
		s.logger.Error(ctx, "failed to save run history", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return record, err
	}

	s.logger.Info(ctx, "run logged", map[string]interface{}{
		"run_id":     record.ID.String(),
		"agent_type": string(record.AgentType()),
		"retained":   len(s.records),
	})
	return record, nil
}

// LoadHistory returns a copy of the retained records, oldest first.
func (s *JSONStore) LoadHistory(ctx context.Context) []*RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)

	out := make([]*RunRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *JSONStore) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.records = s.read(ctx)
	s.loaded = true
}

func (s *JSONStore) read(ctx context.Context) []*RunRecord {
	raw, err := storage.ReadAll(ctx, s.storage, s.path)
	if err != nil {
		if !errors.Is(err, storage.ErrFileNotFound) {
			s.logger.Error(ctx, "failed to read run history", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		s.logger.Error(ctx, "failed to parse run history, starting empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil
	}

	// A bad record is dropped on its own so the rest survive the next rewrite.
	records := make([]*RunRecord, 0, len(elements))
	for i, el := range elements {
		record := &RunRecord{}
		if err := json.Unmarshal(el, record); err != nil {
			s.logger.Warn(ctx, "skipping unreadable run record", map[string]interface{}{
				"path":  s.path,
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	if len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}
	return records
}
