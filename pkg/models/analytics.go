package models

// ActionTypeStats aggregates outcomes for one action type across executions.
type ActionTypeStats struct {
	Total              int     `json:"total"`
	Completed          int     `json:"completed"`
	Failed             int     `json:"failed"`
	SuccessRate        float64 `json:"success_rate"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
}

// DailyStats is one bucket of the execution histogram, keyed by calendar day.
type DailyStats struct {
	Date       string `json:"date"` // YYYY-MM-DD
	Executions int    `json:"executions"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
}

// AutomationAnalytics is a derived, read-only aggregate over the execution
// ledger. It is always recomputed from ledger contents, never mutated
// directly.
type AutomationAnalytics struct {
	TotalExecutions      int                        `json:"total_executions"`
	SuccessfulExecutions int                        `json:"successful_executions"`
	FailedExecutions     int                        `json:"failed_executions"`
	AvgDurationMinutes   float64                    `json:"avg_duration_minutes"`
	ByActionType         map[string]ActionTypeStats `json:"by_action_type"`
	Daily                []DailyStats               `json:"daily"`
}
