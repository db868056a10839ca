package model

import "time"

// ParityReport is the outcome of one parity check. It is logged and
// appended to the audit trail, never used as a system of record.
type ParityReport struct {
	RunID           string    `json:"run_id,omitempty"`
	Metric          Metric    `json:"metric"`
	RawTotal        float64   `json:"raw_total"`
	ExcludedTotal   float64   `json:"excluded_total"`
	MeaningfulTotal float64   `json:"meaningful_total"`
	ProcessedTotal  float64   `json:"processed_total"`
	Difference      float64   `json:"difference"`
	Tolerance       float64   `json:"tolerance"`
	Passed          bool      `json:"passed"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Status renders the pass/fail flag for logs.
func (p ParityReport) Status() string {
	if p.Passed {
		return "SUCCESS"
	}
	return "FAILURE"
}
