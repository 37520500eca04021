package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// configFileName is the settings file inside the config directory.
const configFileName = "config.toml"

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore persists retrieval settings in a TOML file. The file is
// read once at construction; every Set rewrites it. Dotted keys map to
// TOML tables, so "retrieval.max_sources = 4" in a [retrieval] table
// and a Set("retrieval.max_sources", ...) address the same value.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	settings map[string]any
}

// NewConfigStore opens the settings file under configDir, creating the
// directory if needed. An empty configDir defaults to ~/.bookchat.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".bookchat")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, configFileName),
		settings: make(map[string]any),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.filePath, err)
	}
	return s, nil
}

// Get returns the raw stored value and whether the key exists.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.settings[key]
	return val, ok
}

// GetInt returns the stored integer for key. TOML integers decode as
// int64; anything else yields 0.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Set stores a value under key and rewrites the settings file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return s.save()
}

// Path returns the settings file's path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// save writes the settings as TOML. Caller holds the lock. Dotted keys
// marshal as quoted literal keys, which load() flattens back, so write
// and read round-trip.
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.settings)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// load reads the settings file into the flat key map. A missing file is
// a fresh install, not an error.
func (s *ConfigStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		return err
	}

	s.settings = flatten(decoded, "")
	return nil
}

// flatten rewrites nested TOML tables as dotted keys, so a [retrieval]
// table's entries come out as "retrieval.<name>".
func flatten(m map[string]any, prefix string) map[string]any {
	flat := make(map[string]any, len(m))
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			for k, v := range flatten(table, key) {
				flat[k] = v
			}
			continue
		}
		flat[key] = value
	}
	return flat
}
