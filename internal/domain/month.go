package domain

import "time"

// AnalysisMonth is the calendar month a price-control run covers.
type AnalysisMonth struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" designator. A missing or malformed value
// falls back to the month of now; this is a recovered condition, never an
// error surfaced to the caller.
func ParseMonth(s string, now time.Time) AnalysisMonth {
	if t, err := time.Parse("2006-01", s); err == nil {
		return AnalysisMonth{Year: t.Year(), Month: t.Month()}
	}
	return AnalysisMonth{Year: now.Year(), Month: now.Month()}
}

// Previous returns the month before m.
func (m AnalysisMonth) Previous() AnalysisMonth {
	t := m.Start().AddDate(0, -1, 0)
	return AnalysisMonth{Year: t.Year(), Month: t.Month()}
}

// Start returns midnight UTC on the first day of the month.
func (m AnalysisMonth) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last instant of the month covered by the inclusive
// [Start, End] range used in upstream date filters.
func (m AnalysisMonth) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Second)
}

func (m AnalysisMonth) String() string {
	return m.Start().Format("2006-01")
}
