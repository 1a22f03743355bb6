package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AppName names the per-user application data directory.
const AppName = "AutoPilot-IDE"

// MemoryLocalStore is a LocalStore held in memory.
type MemoryLocalStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryLocalStore returns an empty store.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{data: make(map[string][]byte)}
}

// Get implements LocalStore.
func (s *MemoryLocalStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements LocalStore.
func (s *MemoryLocalStore) Set(key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

// Remove implements LocalStore.
func (s *MemoryLocalStore) Remove(key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Keys implements LocalStore.
func (s *MemoryLocalStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// FileLocalStore keeps one file per key under a directory. Writes go through
// a temporary file and a rename, so each key is replaced atomically.
type FileLocalStore struct {
	dir string
}

const fileSuffix = ".json"

// DefaultLocalDir returns <user config dir>/AutoPilot-IDE/local.
func DefaultLocalDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, AppName, "local"), nil
}

// NewFileLocalStore creates dir if needed and returns a store rooted there.
func NewFileLocalStore(dir string) (*FileLocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &FileLocalStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileLocalStore) Dir() string { return s.dir }

func (s *FileLocalStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}

// Get implements LocalStore.
func (s *FileLocalStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements LocalStore.
func (s *FileLocalStore) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("set %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Remove implements LocalStore. Removing a missing key is not an error.
func (s *FileLocalStore) Remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Keys implements LocalStore.
func (s *FileLocalStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list local store: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
