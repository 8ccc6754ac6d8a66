// Package models holds the JSON shapes of the HTTP API. Values are plain
// numbers; clients do their own display formatting.
package models

// Meta describes the evaluation behind a response.
type Meta struct {
	Ticker             string  `json:"ticker"`
	Side               string  `json:"side"`
	SpotPrice          float64 `json:"spot_price"`
	Strike             float64 `json:"strike,omitempty"`
	MinAnnualReturnPct float64 `json:"min_annual_return_pct,omitempty"`
	HorizonMonths      int     `json:"horizon_months,omitempty"`
	ExpirationsScanned int     `json:"expirations_scanned"`
	ResultCount        int     `json:"result_count"`
	// RateLimited marks a scan the provider cut short; results are partial
	// and the client should advise waiting before retrying.
	RateLimited bool   `json:"rate_limited"`
	Timestamp   string `json:"timestamp"`
}

// ReportRow is one expiration of the fixed-strike report.
type ReportRow struct {
	Expiration          string  `json:"expiration"`
	DaysToExpiry        int     `json:"days_to_expiry"`
	Premium             float64 `json:"premium"`
	Capital             float64 `json:"capital"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	MoneynessPct        float64 `json:"moneyness_pct"`
	ImpliedVolatility   float64 `json:"implied_volatility"`
}

// ReportResponse answers GET /api/v1/report.
type ReportResponse struct {
	Success bool        `json:"success"`
	Rows    []ReportRow `json:"rows"`
	// Best is the row with the highest annualized return; absent when no
	// expiration carried the requested strike.
	Best *ReportRow `json:"best,omitempty"`
	Meta Meta       `json:"meta"`
}

// SeekRow is the safest qualifying contract for one expiration.
type SeekRow struct {
	Expiration          string  `json:"expiration"`
	DaysToExpiry        int     `json:"days_to_expiry"`
	Strike              float64 `json:"strike"`
	Premium             float64 `json:"premium"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	ImpliedVolatility   float64 `json:"implied_volatility"`
	SafetyGap           float64 `json:"safety_gap"`
}

// SeekResponse answers GET /api/v1/seek.
type SeekResponse struct {
	Success bool      `json:"success"`
	Results []SeekRow `json:"results"`
	Meta    Meta      `json:"meta"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
