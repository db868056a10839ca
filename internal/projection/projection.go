package projection

import "math"

// Project returns the smart-surge projection of actual at period end. The
// remaining days are split at the normal-phase boundary; days after it run
// at the daily average scaled by surge. Non-positive actual or elapsed
// yields 0.
func Project(actual float64, elapsed int, surge float64, length int) float64 {
	return ProjectWithBoundary(actual, elapsed, surge, length, DefaultNormalEnd)
}

// ProjectWithBoundary is Project with a configurable normal-phase end day.
func ProjectWithBoundary(actual float64, elapsed int, surge float64, length, normalEnd int) float64 {
	if actual <= 0 || elapsed <= 0 || math.IsNaN(actual) {
		return 0
	}

	daily := actual / float64(elapsed)

	var normalDays, surgeDays int
	if elapsed <= normalEnd {
		normalDays = normalEnd - elapsed
		surgeDays = length - normalEnd
	} else {
		normalDays = 0
		surgeDays = max(0, length-elapsed)
	}

	return actual + daily*float64(normalDays) + daily*float64(surgeDays)*surge
}

// Project applies the package-level projection with the period geometry.
func (p Period) Project(actual, surge float64) float64 {
	return ProjectWithBoundary(actual, p.Elapsed, surge, p.Length, p.NormalEnd)
}

// ExpectedToDate is the pro-rata share of target due by the elapsed day.
func (p Period) ExpectedToDate(target float64) float64 {
	if p.Length <= 0 {
		return 0
	}
	return target * float64(p.Elapsed) / float64(p.Length)
}

// DailyRequired is the average daily amount still needed to reach target.
// It is never negative.
func (p Period) DailyRequired(actual, target float64) float64 {
	return math.Max(0, target-actual) / float64(max(1, p.Length-p.Elapsed))
}

// Growth sentinels.
const (
	GrowthFromStandstill = 100.0
	GrowthTargetReached  = -100.0
)

// GrowthRate is the percent change in daily pace needed to close the gap,
// relative to the pace achieved so far.
func (p Period) GrowthRate(actual, target float64) float64 {
	if actual <= 0 {
		return GrowthFromStandstill
	}
	if target-actual <= 0 {
		return GrowthTargetReached
	}
	dailyAvg := actual / float64(max(1, p.Elapsed))
	return (p.DailyRequired(actual, target)/dailyAvg - 1) * 100
}

// Percent returns part/whole×100, or 0 when whole is not positive.
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
