// Package model defines the rows, aggregates and audit records shared by the
// variance pipeline.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Metric selects which measure columns a derivation reads.
type Metric string

const (
	MetricValue Metric = "value"
	MetricUnit  Metric = "unit"
)

// Metrics lists every flavour a run produces, in report order.
var Metrics = []Metric{MetricValue, MetricUnit}

// ParseMetric accepts "value"/"unit" plus the "financial" alias used by
// older configs.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "value", "financial":
		return MetricValue, nil
	case "unit", "units":
		return MetricUnit, nil
	default:
		return "", eris.Errorf("model: unknown metric %q", s)
	}
}

// Title is the human label used in report headings.
func (m Metric) Title() string {
	if m == MetricUnit {
		return "Unit Quantity"
	}
	return "Sales Value"
}
