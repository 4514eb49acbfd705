package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
	"github.com/spf13/cast"
)

var (
	// ErrInvalidKey is returned for empty keys or keys with empty segments.
	ErrInvalidKey = errors.New("invalid config key")
)

// Store is a nested key-value document addressed by dotted paths such as
// "timeouts.scroll_wait". Reads never fail: a caller-supplied default covers
// any missing segment. Every Set is written through to storage.
type Store struct {
	mu      sync.RWMutex
	data    map[string]interface{}
	path    string
	storage storage.BlobStorage
	logger  logger.Logger
}

// New loads the document at path. A missing document yields DefaultTree; an
// unreadable or malformed one yields an empty tree. Neither is an error.
func New(ctx context.Context, blob storage.BlobStorage, path string, log logger.Logger) *Store {
	s := &Store{
		path:    path,
		storage: blob,
		logger:  log.WithField("component", "configstore"),
	}
	s.data = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) map[string]interface{} {
	raw, err := storage.ReadAll(ctx, s.storage, s.path)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			s.logger.Info(ctx, "config file not found, using defaults", map[string]interface{}{
				"path": s.path,
			})
			return DefaultTree()
		}
		s.logger.Error(ctx, "failed to read config", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return map[string]interface{}{}
	}

	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		s.logger.Error(ctx, "failed to parse config, starting empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return map[string]interface{}{}
	}
	if tree == nil {
		tree = map[string]interface{}{}
	}
	return tree
}

// Reload discards in-memory state and reads the document again.
func (s *Store) Reload(ctx context.Context) {
	tree := s.load(ctx)
	s.mu.Lock()
	s.data = tree
	s.mu.Unlock()
}

// Get returns the value at key, or def when any segment is missing, the walk
// hits a non-object before the last segment, or the leaf is null.
func (s *Store) Get(key string, def interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cur interface{} = s.data
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return def
		}
		cur, ok = m[part]
		if !ok {
			return def
		}
	}
	if cur == nil {
		return def
	}
	return cur
}

// GetInt returns the value at key as an int. Unconvertible values yield def.
func (s *Store) GetInt(key string, def int) int {
	v, err := cast.ToIntE(s.Get(key, def))
	if err != nil {
		return def
	}
	return v
}

// GetFloat returns the value at key as a float64.
func (s *Store) GetFloat(key string, def float64) float64 {
	v, err := cast.ToFloat64E(s.Get(key, def))
	if err != nil {
		return def
	}
	return v
}

// GetString returns the value at key as a string.
func (s *Store) GetString(key, def string) string {
	v, err := cast.ToStringE(s.Get(key, def))
	if err != nil {
		return def
	}
	return v
}

// GetStringSlice returns the value at key as a string slice. A single string
// is returned as a one-element slice.
func (s *Store) GetStringSlice(key string, def []string) []string {
	switch v := s.Get(key, def).(type) {
	case string:
		return []string{v}
	default:
		out, err := cast.ToStringSliceE(v)
		if err != nil {
			return def
		}
		return out
	}
}

// GetMillis reads an integer millisecond value as a duration.
func (s *Store) GetMillis(key string, def int) time.Duration {
	return time.Duration(s.GetInt(key, def)) * time.Millisecond
}

// GetSeconds reads a possibly fractional second value as a duration.
func (s *Store) GetSeconds(key string, def float64) time.Duration {
	return time.Duration(s.GetFloat(key, def) * float64(time.Second))
}

// Set assigns value at key, creating intermediate objects, then persists the
// whole document. A non-object found on the way is replaced by an object.
// When persisting fails the in-memory value is kept and the error returned.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	parts, err := splitKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	target := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := target[part].(map[string]interface{})
		if !ok {
			if existing, present := target[part]; present {
				s.logger.Warn(ctx, "overwriting non-object config value", map[string]interface{}{
					"key":      key,
					"segment":  part,
					"previous": existing,
				})
			}
			next = map[string]interface{}{}
			target[part] = next
		}
		target = next
	}
	target[parts[len(parts)-1]] = value
	s.mu.Unlock()

	return s.Save(ctx)
}

// Save writes the whole document to storage.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error(ctx, "failed to encode config", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := storage.WriteAll(ctx, s.storage, s.path, data); err != nil {
		s.logger.Error(ctx, "failed to save config", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the document.
func (s *Store) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.data).(map[string]interface{})
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

func splitKey(key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidKey, key)
		}
	}
	return parts, nil
}
