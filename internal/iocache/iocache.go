// Package iocache persists forecast results and forecast run history.
package iocache

import (
	"sync"

	"github.com/huangsam/radar/internal/contract"
)

// CacheStoreManager manages the forecast cache and run history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	forecast     contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetForecastStore returns the forecast CacheStore, or nil when caching is disabled.
func (mgr *CacheStoreManager) GetForecastStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.forecast
}

// GetHistoryStore returns the run HistoryStore, or nil when tracking is disabled.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
