// Package artifact persists the outputs of a training run: the fitted scaler,
// the trained model, the metrics and the feature importances.
//
// Components depend on the small Store interface so tests can swap the
// filesystem for MemoryStore.
package artifact

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Store saves and loads opaque artifact bytes by key. Save overwrites.
// Load of an unknown key returns an error matching errors.ErrArtifactNotFound.
type Store interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, error)
}

// FileStore maps keys to file paths. Relative keys are resolved against Root.
type FileStore struct {
	Root string
}

// NewFileStore returns a FileStore rooted at root ("" means the working directory).
func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (s *FileStore) path(key string) string {
	if filepath.IsAbs(key) || s.Root == "" {
		return key
	}
	return filepath.Join(s.Root, key)
}

// Save writes value to the key's path through a temporary file and a rename,
// creating parent directories as needed.
func (s *FileStore) Save(key string, value []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewArtifactIOError("save", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.NewArtifactIOError("save", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return errors.NewArtifactIOError("save", key, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewArtifactIOError("save", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewArtifactIOError("save", key, err)
	}
	return nil
}

// Load reads the key's file.
func (s *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewArtifactIOError("load", key, errors.ErrArtifactNotFound)
		}
		return nil, errors.NewArtifactIOError("load", key, err)
	}
	return data, nil
}

// MemoryStore keeps artifacts in a map. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Save stores a copy of value.
func (s *MemoryStore) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = bytes.Clone(value)
	return nil
}

// Load returns a copy of the stored value.
func (s *MemoryStore) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, errors.NewArtifactIOError("load", key, errors.ErrArtifactNotFound)
	}
	return bytes.Clone(v), nil
}

// Keys lists the stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveJSON encodes v as JSON indented with four spaces and a trailing newline.
// encoding/json sorts map keys, so equal values always produce equal bytes.
func SaveJSON(s Store, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.NewArtifactIOError("encode", key, err)
	}
	return s.Save(key, append(data, '\n'))
}

// LoadJSON decodes the JSON artifact at key into v.
func LoadJSON(s Store, key string, v interface{}) error {
	data, err := s.Load(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewArtifactIOError("decode", key, err)
	}
	return nil
}

// SaveGob stores m in gob form.
func SaveGob(s Store, key string, m interface{}) error {
	data, err := model.MarshalModel(m)
	if err != nil {
		return errors.NewArtifactIOError("encode", key, err)
	}
	return s.Save(key, data)
}

// LoadGob decodes the gob artifact at key into m (a pointer).
func LoadGob(s Store, key string, m interface{}) error {
	data, err := s.Load(key)
	if err != nil {
		return err
	}
	if err := model.UnmarshalModel(data, m); err != nil {
		return errors.NewArtifactIOError("decode", key, err)
	}
	return nil
}

// IsNotFound reports whether err is a load of a missing artifact.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrArtifactNotFound)
}
