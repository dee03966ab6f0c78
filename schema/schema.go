// Package schema has configs, models and global variables for all parts of radar.
package schema

import "time"

// Touchpoint is a single interaction logged against an account.
// An account may have many touchpoints on the same calendar day.
type Touchpoint struct {
	AccountID        string    `json:"account_id"`
	TouchpointDate   time.Time `json:"touchpoint_dt"`
	InteractionValue float64   `json:"interaction_value"`
}

// Account is a registry record describing a customer account.
type Account struct {
	AccountID   string    `json:"account_id"`
	Company     string    `json:"company"`
	Tier        string    `json:"tier,omitempty"`
	ARR         float64   `json:"arr"`
	RenewalDate time.Time `json:"renewal_date,omitzero"` // Zero when the registry has no renewal date
}

// EngagementBaseline is the expected daily engagement rate of an account
// for one day of the week. DayOfWeek is Monday=0 through Sunday=6.
type EngagementBaseline struct {
	AccountID         string  `json:"account_id"`
	DayOfWeek         int     `json:"day_of_week"`
	EngagementRatePct float64 `json:"engagement_rate_pct"`
}

// AccountChurnPoint is one simulated day of an account's engagement trajectory.
type AccountChurnPoint struct {
	AccountID       string    `json:"account_id"`
	Date            time.Time `json:"date"`
	EngagementScore float64   `json:"engagement_score"` // Reservoir level within [0, max engagement]
	DecayRisk       float64   `json:"decay_risk"`       // Relative shortfall below the churn threshold
	ChurnProb       float64   `json:"churn_prob"`       // Logistic churn probability
}
