// Package decay forward-simulates a bounded engagement reservoir per account
// and derives decay risk and churn probability from it.
package decay

import (
	"errors"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/huangsam/radar/core/baseline"
	"github.com/huangsam/radar/schema"
)

// Default simulation parameters.
const (
	DefaultMaxEngagementScore = 1.0
	DefaultChurnThreshold     = 0.5
	DefaultDecayRatePerDay    = 0.02
)

// Calibration constants.
const (
	minNormalizationFactor = 1e-6
	minLogisticScale       = 0.05
	logisticScaleRatio     = 0.2
)

// Errors returned before any simulation takes place.
var (
	ErrInvalidChurnThreshold = errors.New("churn threshold must be greater than 0")
	ErrInvalidMaxEngagement  = errors.New("max engagement score must be greater than 0")
	ErrInvalidNormalization  = errors.New("normalization factor must be greater than 0")
	ErrInvalidDecayRate      = errors.New("decay rate must be in [0, 1)")
)

// Params controls the reservoir simulation.
type Params struct {
	MaxEngagementScore  float64  // Upper bound of the reservoir
	ChurnThreshold      float64  // Score below which an account is considered at risk
	DecayRatePerDay     float64  // Fraction of the reservoir lost each day
	NormalizationFactor *float64 // Explicit rate-to-gain divisor; nil means auto-calibrate
	ResetOnTouchpoint   bool     // Refill to max on any day with expected activity
	Workers             int      // Per-account simulation concurrency; <= 0 means GOMAXPROCS
}

// DefaultParams returns the documented default parameters.
func DefaultParams() Params {
	return Params{
		MaxEngagementScore: DefaultMaxEngagementScore,
		ChurnThreshold:     DefaultChurnThreshold,
		DecayRatePerDay:    DefaultDecayRatePerDay,
		Workers:            runtime.GOMAXPROCS(0),
	}
}

// Validate checks the parameters that would make the model meaningless.
// Comparisons are written so that NaN fails them.
func (p Params) Validate() error {
	if !(p.ChurnThreshold > 0) || math.IsInf(p.ChurnThreshold, 0) {
		return ErrInvalidChurnThreshold
	}
	if !(p.MaxEngagementScore > 0) || math.IsInf(p.MaxEngagementScore, 0) {
		return ErrInvalidMaxEngagement
	}
	if !(p.DecayRatePerDay >= 0 && p.DecayRatePerDay < 1) {
		return ErrInvalidDecayRate
	}
	if n := p.NormalizationFactor; n != nil && (!(*n > 0) || math.IsInf(*n, 0)) {
		return ErrInvalidNormalization
	}
	return nil
}

// accountRates is the unit of work handed to simulation workers.
type accountRates struct {
	id    string
	rates [schema.DaysPerWeek]float64
}

// Simulate runs the reservoir model for every account in baselines over the
// inclusive date range [start, end]. The normalization factor is fixed across
// the whole table before any account is simulated. Output rows are sorted by
// account and date.
func Simulate(baselines []schema.EngagementBaseline, start, end time.Time, p Params) ([]schema.AccountChurnPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start, end = schema.NormalizeDate(start), schema.NormalizeDate(end)
	pivot := baseline.Pivot(baselines)
	if len(pivot) == 0 || start.After(end) {
		return []schema.AccountChurnPoint{}, nil
	}

	accounts := make([]accountRates, 0, len(pivot))
	avgRates := make([]float64, 0, len(pivot))
	for id, rates := range pivot {
		accounts = append(accounts, accountRates{id: id, rates: rates})
		avgRates = append(avgRates, meanRate(rates))
	}

	norm := ResolveNormalization(p, avgRates)
	days := int(end.Sub(start).Hours()/24) + 1

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(accounts))

	accountCh := make(chan accountRates, len(accounts))
	resultCh := make(chan []schema.AccountChurnPoint, len(accounts))
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for acc := range accountCh {
				resultCh <- simulateAccount(acc, start, days, norm, p)
			}
		})
	}
	for _, acc := range accounts {
		accountCh <- acc
	}
	close(accountCh)
	wg.Wait()
	close(resultCh)

	out := make([]schema.AccountChurnPoint, 0, len(accounts)*days)
	for rows := range resultCh {
		out = append(out, rows...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// simulateAccount produces one account's dense daily trajectory.
func simulateAccount(acc accountRates, start time.Time, days int, norm float64, p Params) []schema.AccountChurnPoint {
	d := p.DecayRatePerDay
	maxScore := p.MaxEngagementScore
	score := SteadyState(meanRate(acc.rates), norm, d, maxScore)

	rows := make([]schema.AccountChurnPoint, days)
	for i := range days {
		day := start.AddDate(0, 0, i)
		gain := acc.rates[schema.DayOfWeek(day)] / norm
		if p.ResetOnTouchpoint && gain > 0 {
			score = maxScore
		} else {
			score = clamp((score+gain)*(1-d), 0, maxScore)
		}
		rows[i] = schema.AccountChurnPoint{
			AccountID:       acc.id,
			Date:            day,
			EngagementScore: score,
			DecayRisk:       DecayRisk(score, p.ChurnThreshold),
			ChurnProb:       ChurnProbability(score, p.ChurnThreshold),
		}
	}
	return rows
}

// ResolveNormalization returns the caller's explicit factor, or calibrates one
// from the average weekday rates of the whole population.
func ResolveNormalization(p Params, avgRates []float64) float64 {
	if p.NormalizationFactor != nil {
		return *p.NormalizationFactor
	}
	return CalibrateNormalization(avgRates, p.DecayRatePerDay, p.ChurnThreshold)
}

// CalibrateNormalization picks the factor that places the median account's
// steady state exactly on the churn threshold.
func CalibrateNormalization(avgRates []float64, decayRate, threshold float64) float64 {
	if decayRate <= 0 || threshold <= 0 {
		return 1.0
	}
	med := median(avgRates)
	if med == 0 {
		return 1.0
	}
	factor := med * (1 - decayRate) / (decayRate * threshold)
	return math.Max(factor, minNormalizationFactor)
}

// SteadyState is the fixed point of the daily update for a constant gain,
// clamped to [0, maxScore]. Without decay any positive gain saturates the reservoir.
func SteadyState(avgRate, norm, decayRate, maxScore float64) float64 {
	gain := avgRate / norm
	if decayRate <= 0 {
		if gain > 0 {
			return maxScore
		}
		return 0
	}
	return clamp(gain*(1-decayRate)/decayRate, 0, maxScore)
}

// DecayRisk is the relative shortfall of score below the threshold.
func DecayRisk(score, threshold float64) float64 {
	return math.Max(0, (threshold-score)/threshold)
}

// ChurnProbability maps a score to a logistic probability that equals 0.5 at
// the threshold and decreases as the score rises.
func ChurnProbability(score, threshold float64) float64 {
	scale := math.Max(minLogisticScale, threshold*logisticScaleRatio)
	return 1 / (1 + math.Exp((score-threshold)/scale))
}

func meanRate(rates [schema.DaysPerWeek]float64) float64 {
	sum := 0.0
	for _, r := range rates {
		sum += r
	}
	return sum / schema.DaysPerWeek
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
