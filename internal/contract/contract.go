// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/radar/schema"
)

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetForecastStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking forecast runs and their per-account outcomes.
type HistoryStore interface {
	// BeginRun creates a new forecast run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the forecast run with completion data
	EndRun(runID int64, endTime time.Time, cutoff time.Time, horizonDays, accountCount int) error

	// RecordAccountOutcomes stores the end-of-horizon outcome of every account in a run
	RecordAccountOutcomes(runID int64, forecastTime time.Time, summaries []schema.AccountSummary) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run ordered by ID
	GetAllRuns() ([]schema.ForecastRunRecord, error)

	// GetAllAccountOutcomes returns every recorded account outcome ordered by run and account
	GetAllAccountOutcomes() ([]schema.ForecastAccountRecord, error)

	// Close closes the underlying connection
	Close() error
}
