package driven

// ConfigStore is the flat key/value view of the user's config file.
// Keys are dotted ("chunking.size"); typed getters return the zero value
// when a key is missing or cannot be converted.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores value under key and persists the file.
	Set(key string, value any) error

	// Save writes the current values; Load discards them and rereads the file.
	Save() error
	Load() error

	// Path is the backing file, or ":memory:" for the in-memory store.
	Path() string
}
