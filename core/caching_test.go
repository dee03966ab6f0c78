package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/radar/internal/iocache"
	"github.com/huangsam/radar/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func storeManager(store *iocache.MockCacheStore) *iocache.MockCacheManager {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetForecastStore").Return(store)
	return mgr
}

func cachedPayload(t *testing.T) []byte {
	t.Helper()
	result := &schema.ChurnForecastResult{
		CutoffDate:   testCutoff,
		StartDate:    schema.AddDays(testCutoff, 1),
		EndDate:      schema.AddDays(testCutoff, 1),
		HorizonDays:  1,
		AccountCount: 1,
		Forecast:     []schema.AccountChurnPoint{{AccountID: "CACHED", Date: schema.AddDays(testCutoff, 1), ChurnProb: 0.42}},
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)
	return data
}

func TestCachedGenerateChurnForecastHit(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(cachedPayload(t), currentCacheVersion, fixedNow.Add(-time.Hour).Unix(), nil)

	result, err := CachedGenerateChurnForecast(storeManager(store), request(1, schema.AllAccounts()), nil, testRegistry("A1"), testOptions())
	require.NoError(t, err)

	assert.True(t, result.Cached)
	require.Len(t, result.Forecast, 1)
	assert.Equal(t, "CACHED", result.Forecast[0].AccountID)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedGenerateChurnForecastMiss(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		version int
		ts      int64
		err     error
	}{
		{"not found", nil, 0, 0, errors.New("not found")},
		{"stale entry", []byte(`{}`), currentCacheVersion, fixedNow.Add(-8 * 24 * time.Hour).Unix(), nil},
		{"old version", []byte(`{}`), currentCacheVersion + 1, fixedNow.Unix(), nil},
		{"corrupt payload", []byte(`{not json`), currentCacheVersion, fixedNow.Unix(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", mock.Anything).Return(tt.data, tt.version, tt.ts, tt.err)
			store.On("Set", mock.Anything, mock.Anything, currentCacheVersion, fixedNow.Unix()).Return(nil)

			result, err := CachedGenerateChurnForecast(storeManager(store), request(30, schema.AllAccounts()), nil, testRegistry("A1", "A2"), testOptions())
			require.NoError(t, err)

			assert.False(t, result.Cached)
			assert.Len(t, result.Forecast, 60)
			store.AssertNumberOfCalls(t, "Set", 1)
		})
	}
}

func TestCachedGenerateChurnForecastSetFailureIsNotFatal(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), errors.New("not found"))
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	result, err := CachedGenerateChurnForecast(storeManager(store), request(7, schema.AllAccounts()), nil, testRegistry("A1"), testOptions())
	require.NoError(t, err)
	assert.Len(t, result.Forecast, 7)
}

func TestCachedGenerateChurnForecastWithoutStore(t *testing.T) {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetForecastStore").Return(nil)

	result, err := CachedGenerateChurnForecast(mgr, request(7, schema.AllAccounts()), nil, testRegistry("A1"), testOptions())
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Len(t, result.Forecast, 7)

	result, err = CachedGenerateChurnForecast(nil, request(7, schema.AllAccounts()), nil, testRegistry("A1"), testOptions())
	require.NoError(t, err)
	assert.Len(t, result.Forecast, 7)
}

func TestCachedGenerateChurnForecastValidatesFirst(t *testing.T) {
	store := &iocache.MockCacheStore{}
	_, err := CachedGenerateChurnForecast(storeManager(store), request(400, schema.AllAccounts()), nil, testRegistry("A1"), testOptions())
	assert.ErrorIs(t, err, ErrInvalidHorizon)
	store.AssertNotCalled(t, "Get", mock.Anything)
}

func TestForecastCacheKeyTracksInputs(t *testing.T) {
	req := request(30, schema.AllAccounts())
	tps := dailyTouchpoints("A1", 1)
	reg := testRegistry("A1")
	base := forecastCacheKey(req, tps, reg, testOptions())

	assert.Equal(t, base, forecastCacheKey(req, tps, reg, testOptions()))
	assert.NotEqual(t, base, forecastCacheKey(request(31, schema.AllAccounts()), tps, reg, testOptions()))
	assert.NotEqual(t, base, forecastCacheKey(req, dailyTouchpoints("A1", 2), reg, testOptions()))
	assert.NotEqual(t, base, forecastCacheKey(req, tps, testRegistry("A1", "A2"), testOptions()))

	opts := testOptions()
	opts.Simulation.DecayRatePerDay = 0.05
	assert.NotEqual(t, base, forecastCacheKey(req, tps, reg, opts))

	norm := 3.0
	opts = testOptions()
	opts.Simulation.NormalizationFactor = &norm
	assert.NotEqual(t, base, forecastCacheKey(req, tps, reg, opts))
}
