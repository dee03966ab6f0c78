package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/huangsam/radar/schema"
)

// cacheKeyPrefix namespaces forecast keys within a shared store.
const cacheKeyPrefix = "churn:"

// cacheKeyParams is the canonical form hashed by BuildCacheKey.
// Fields are declared in sorted key order.
type cacheKeyParams struct {
	AccountIDs []string `json:"account_ids"` // null selects every account
	MinObs     int      `json:"min_obs"`
	WindowDays int      `json:"window_days"`
}

// BuildCacheKey derives a stable key from the estimator parameters and the
// account filter. Order of explicit ids does not matter, and an explicit
// empty filter never collides with AllAccounts.
func BuildCacheKey(windowDays, minObs int, filter schema.AccountFilter) string {
	params := cacheKeyParams{MinObs: minObs, WindowDays: windowDays}
	if !filter.IsAll() {
		params.AccountIDs = filter.IDs()
		if params.AccountIDs == nil {
			params.AccountIDs = []string{}
		}
	}
	data, _ := json.Marshal(params)
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])[:16]
}
