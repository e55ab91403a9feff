package recurrence

import (
	"log/slog"
	"time"
)

// EngineConfig holds tuning options for the expansion engine.
type EngineConfig struct {
	// CacheEnabled turns on the expansion result cache.
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences caps how many candidate dates a single expansion
	// enumerates. Expansion past the cap is truncated and logged.
	MaxOccurrences int

	// LargeWindowThreshold and LargeWindowProbe tune HasOccurrenceInWindow:
	// windows wider than the threshold are first probed over a shorter
	// span before falling back to a full expansion.
	LargeWindowThreshold time.Duration
	LargeWindowProbe     time.Duration

	// Logger receives cap-truncation warnings. Nil means discard.
	Logger *slog.Logger
}

// DefaultEngineConfig is the production default.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	MaxOccurrences:       1000,
	LargeWindowThreshold: 90 * 24 * time.Hour,
	LargeWindowProbe:     90 * 24 * time.Hour,
}

// HighVolumeConfig trades thoroughness for speed on busy calendars.
var HighVolumeConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},

	MaxOccurrences:       500,
	LargeWindowThreshold: 30 * 24 * time.Hour,
	LargeWindowProbe:     30 * 24 * time.Hour,
}

// DisabledCacheConfig turns caching off entirely; every expansion is
// recomputed. Useful for tests asserting determinism.
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,

	MaxOccurrences:       1000,
	LargeWindowThreshold: 365 * 24 * time.Hour,
	LargeWindowProbe:     365 * 24 * time.Hour,
}
