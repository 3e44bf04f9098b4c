package models

import "time"

// ExpiryPolicy decides how long a session of a given type stays open.
type ExpiryPolicy struct {
	Name     string
	Duration time.Duration
}

var (
	DailyMatchPolicy     = ExpiryPolicy{Name: "daily_match", Duration: 24 * time.Hour}
	GroupInitiatedPolicy = ExpiryPolicy{Name: "group_initiated", Duration: 72 * time.Hour}
)

// DefaultPolicies maps each session type to its policy.
func DefaultPolicies() map[SessionType]ExpiryPolicy {
	return map[SessionType]ExpiryPolicy{
		SessionTypeDailyMatch:     DailyMatchPolicy,
		SessionTypeGroupInitiated: GroupInitiatedPolicy,
	}
}
