package journal

import "github.com/journalkeeper-go/journal/internal/util"

// Config holds the store's tunables, keyed by the same property names the
// embedding layer loads from YAML/flags (see pkg/config).
type Config struct {
	// FileHeaderSize is the number of opaque bytes reserved at the
	// start of every segment file.
	FileHeaderSize int
	// FileDataSize is the maximum number of data bytes per segment.
	FileDataSize int
	// CachedFileCoreCount is the number of idle pages to preload per
	// store in the buffer cache.
	CachedFileCoreCount int
	// CachedFileMaxCount is the maximum number of idle pages the
	// buffer cache retains per store.
	CachedFileMaxCount int
	// MaxDirtySize bounds max-flushed before append back-pressures;
	// zero disables back-pressure.
	MaxDirtySize int64
}

// DefaultConfig returns the property defaults from the store's external
// configuration table.
func DefaultConfig() Config {
	return Config{
		FileHeaderSize:      128,
		FileDataSize:        128 * 1024 * 1024,
		CachedFileCoreCount: 0,
		CachedFileMaxCount:  2,
		MaxDirtySize:        0,
	}
}

// FromProperties builds a Config from a flat string-keyed property map,
// falling back to DefaultConfig for any key that is absent or malformed.
func FromProperties(props map[string]string) Config {
	cfg := DefaultConfig()
	if v, ok := props["file_header_size"]; ok {
		cfg.FileHeaderSize = util.ParseInt(v, cfg.FileHeaderSize)
	}
	if v, ok := props["file_data_size"]; ok {
		cfg.FileDataSize = util.ParseInt(v, cfg.FileDataSize)
	}
	if v, ok := props["cached_file_core_count"]; ok {
		cfg.CachedFileCoreCount = util.ParseInt(v, cfg.CachedFileCoreCount)
	}
	if v, ok := props["cached_file_max_count"]; ok {
		cfg.CachedFileMaxCount = util.ParseInt(v, cfg.CachedFileMaxCount)
	}
	if v, ok := props["max_dirty_size"]; ok {
		cfg.MaxDirtySize = util.ParseInt64(v, cfg.MaxDirtySize)
	}
	return cfg
}
