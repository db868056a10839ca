// Package projection computes pace, smart-surge projections and catch-up
// metrics for category aggregates.
package projection

import (
	"fmt"
	"time"
)

// Defaults for the reporting period.
const (
	DefaultLength    = 28
	DefaultNormalEnd = 23
)

// Period describes where a run sits inside the reporting period. Length is a
// fixed configured value, not the calendar length of the month.
type Period struct {
	Elapsed   int
	Length    int
	NormalEnd int
	Month     time.Time // first day of the reported month, for headers
}

// NewPeriod builds the period for a run at now. A positive elapsed
// override replaces the day of month.
func NewPeriod(now time.Time, length, normalEnd, elapsedOverride int) Period {
	if length <= 0 {
		length = DefaultLength
	}
	if normalEnd <= 0 {
		normalEnd = DefaultNormalEnd
	}
	elapsed := now.Day()
	if elapsedOverride > 0 {
		elapsed = elapsedOverride
	}
	return Period{
		Elapsed:   elapsed,
		Length:    length,
		NormalEnd: normalEnd,
		Month:     time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
	}
}

// Remaining is the number of days left in the period, never negative.
func (p Period) Remaining() int {
	if r := p.Length - p.Elapsed; r > 0 {
		return r
	}
	return 0
}

// Header is the one-line period banner shown at the top of every report.
func (p Period) Header() string {
	return fmt.Sprintf("%s report. Days Elapsed: %d. Days Remaining: %d.",
		p.Month.Format("Jan 2006"), p.Elapsed, p.Remaining())
}
