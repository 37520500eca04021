package driven

// ConfigStore persists retrieval settings between runs. Keys use dot
// notation ("retrieval.max_sources"); environment variables overlay the
// stored values at startup, so the store is read once and written only
// by explicit user edits.
type ConfigStore interface {
	// Get returns the raw stored value and whether the key exists.
	Get(key string) (any, bool)

	// GetInt returns the stored integer for key, or 0 when the key is
	// absent or holds a non-integer.
	GetInt(key string) int

	// Set stores a value under key and persists immediately.
	Set(key string, value any) error

	// Path returns the backing file's path, for display.
	Path() string
}
