package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash"
	"math"
	"time"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL is how long a stored forecast stays fresh.
const cacheTTL = 7 * 24 * time.Hour

// CachedGenerateChurnForecast serves a forecast from the forecast store when a
// fresh entry exists for the same request, parameters and snapshot contents.
// Without a store it is equivalent to GenerateChurnForecast.
func CachedGenerateChurnForecast(mgr contract.CacheManager, req schema.ChurnForecastRequest, touchpoints []schema.Touchpoint, registry []schema.Account, opts ForecastOptions) (*schema.ChurnForecastResult, error) {
	if err := ValidateHorizon(req.HorizonDays); err != nil {
		return nil, err
	}
	if err := opts.Simulation.Validate(); err != nil {
		return nil, err
	}

	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetForecastStore()
	}
	if store == nil {
		// Fallback to direct computation
		return GenerateChurnForecast(req, touchpoints, registry, opts)
	}

	key := forecastCacheKey(req, touchpoints, registry, opts)

	// Check for cache hit
	if result := checkCacheHit(store, key, now(opts)); result != nil {
		return result, nil
	}

	// Cache miss: compute and store
	return computeAndStore(store, key, req, touchpoints, registry, opts)
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string, at time.Time) *schema.ChurnForecastResult {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || at.Sub(time.Unix(ts, 0)) > cacheTTL {
		return nil
	}
	var result schema.ChurnForecastResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	if result.Forecast == nil {
		result.Forecast = []schema.AccountChurnPoint{}
	}
	result.Cached = true
	return &result
}

// computeAndStore computes the result and stores it in cache
func computeAndStore(store contract.CacheStore, key string, req schema.ChurnForecastRequest, touchpoints []schema.Touchpoint, registry []schema.Account, opts ForecastOptions) (*schema.ChurnForecastResult, error) {
	result, err := GenerateChurnForecast(req, touchpoints, registry, opts)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = store.Set(key, data, currentCacheVersion, now(opts).Unix())
	}
	if err != nil {
		contract.LogWarn("Failed to store forecast in cache", err)
	}
	return result, nil
}

// forecastCacheKey creates a unique key based on forecast parameters and snapshot contents
func forecastCacheKey(req schema.ChurnForecastRequest, touchpoints []schema.Touchpoint, registry []schema.Account, opts ForecastOptions) string {
	sim := opts.Simulation
	norm := "auto"
	if sim.NormalizationFactor != nil {
		norm = fmt.Sprintf("%g", *sim.NormalizationFactor)
	}
	key := fmt.Sprintf("%s:%s:%d:%g:%g:%g:%s:%t:%s",
		BuildCacheKey(opts.WindowDays, opts.MinObs, req.AccountFilter),
		schema.FormatDate(req.CutoffDate),
		req.HorizonDays,
		sim.MaxEngagementScore,
		sim.ChurnThreshold,
		sim.DecayRatePerDay,
		norm,
		sim.ResetOnTouchpoint,
		snapshotFingerprint(touchpoints, registry),
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}

// snapshotFingerprint hashes the snapshot contents so a new snapshot invalidates old entries.
func snapshotFingerprint(touchpoints []schema.Touchpoint, registry []schema.Account) string {
	h := sha256.New()
	for _, tp := range touchpoints {
		writeField(h, tp.AccountID)
		writeField(h, schema.FormatDate(tp.TouchpointDate))
		writeFloat(h, tp.InteractionValue)
	}
	writeField(h, "--registry--")
	for _, acc := range registry {
		writeField(h, acc.AccountID)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	_, _ = h.Write([]byte(s))
	_, _ = h.Write([]byte{0})
}

func writeFloat(h hash.Hash, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, _ = h.Write(buf[:])
}
