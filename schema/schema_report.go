package schema

import "time"

// RiskBucket labels an account by its end-of-horizon churn probability.
type RiskBucket string

// Risk buckets use right-closed intervals; the lowest bucket includes 0.
const (
	HealthyBucket  RiskBucket = "Healthy (<30%)"   // [0, 0.3]
	AtRiskBucket   RiskBucket = "At Risk (30-50%)" // (0.3, 0.5]
	HighRiskBucket RiskBucket = "High Risk (50-70%)"
	CriticalBucket RiskBucket = "Critical (70%+)"
)

// AllRiskBuckets lists buckets from healthiest to most severe.
var AllRiskBuckets = []RiskBucket{HealthyBucket, AtRiskBucket, HighRiskBucket, CriticalBucket}

// AccountSummary condenses an account's trajectory into end-of-horizon figures
// merged with its registry metadata.
type AccountSummary struct {
	AccountID          string     `json:"account_id"`
	Company            string     `json:"company"`
	Tier               string     `json:"tier,omitempty"`
	ARR                float64    `json:"arr"`
	RenewalDate        time.Time  `json:"renewal_date,omitzero"`
	EngagementScoreEnd float64    `json:"engagement_score_end"`
	DecayRiskEnd       float64    `json:"decay_risk_end"`
	ChurnProbEnd       float64    `json:"churn_prob_end"`
	MaxChurnProb       float64    `json:"max_churn_prob"`
	MinEngagementScore float64    `json:"min_engagement_score"`
	FirstAtRiskDate    *time.Time `json:"first_at_risk_date,omitempty"`
	Bucket             RiskBucket `json:"risk_bucket"`
}

// RiskBucketCount is the number of accounts that fall into a bucket.
type RiskBucketCount struct {
	Bucket RiskBucket `json:"bucket"`
	Count  int        `json:"count"`
	ARR    float64    `json:"arr"`
}

// ForecastSummary is the headline view of a forecast run.
type ForecastSummary struct {
	CutoffDate     time.Time `json:"cutoff_date"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	HorizonDays    int       `json:"horizon_days"`
	AccountCount   int       `json:"account_count"`
	AccountsAtRisk int       `json:"accounts_at_risk"`
	WatchlistCount int       `json:"watchlist_count"`
	RiskThreshold  float64   `json:"risk_threshold"`
	TotalARR       float64   `json:"total_arr"`
	ARRAtRisk      float64   `json:"arr_at_risk"`
	TouchpointMin  time.Time `json:"touchpoint_min,omitzero"`
	TouchpointMax  time.Time `json:"touchpoint_max,omitzero"`
	GeneratedAt    time.Time `json:"generated_at"`
	Cached         bool      `json:"cached"`
}

// ForecastReport bundles everything derived from a forecast result.
type ForecastReport struct {
	Summary   ForecastSummary   `json:"summary"`
	Accounts  []AccountSummary  `json:"accounts"`
	AtRisk    []AccountSummary  `json:"at_risk"`
	Watchlist []AccountSummary  `json:"watchlist"`
	Buckets   []RiskBucketCount `json:"risk_buckets"`
}

// ForecastOutput pairs a forecast result with the report derived from it.
type ForecastOutput struct {
	Result *ChurnForecastResult `json:"result"`
	Report ForecastReport       `json:"report"`
}
