package model

import "time"

// TimeframeKind is one of the named timeframe resolutions
type TimeframeKind string

const (
	TimeframeAllAvailable  TimeframeKind = "all_available"
	TimeframeLast12Months  TimeframeKind = "last_12_months"
	TimeframeLast24Months  TimeframeKind = "last_24_months"
	TimeframeCalendarYear  TimeframeKind = "calendar_year"
	TimeframeSinceCovid    TimeframeKind = "since_covid"
	TimeframePreCovid      TimeframeKind = "pre_covid"
	TimeframeAbsoluteRange TimeframeKind = "absolute_range"
	TimeframeRecentGeneric TimeframeKind = "recent_generic"
)

// TimeframeExpression is the raw temporal part of a parsed question.
// Only the fields relevant to the kind are set: Year for calendar_year,
// Start/End for absolute_range.
type TimeframeExpression struct {
	Kind  TimeframeKind `json:"kind"`
	Year  int           `json:"year,omitempty"`
	Start *time.Time    `json:"start,omitempty"`
	End   *time.Time    `json:"end,omitempty"`
	Raw   string        `json:"raw,omitempty"`
}

// DateRange is a closed date interval [Start, End]. Empty is set when a
// requested window has no overlap with the corpus.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Empty bool      `json:"empty,omitempty"`
}

// Contains reports whether d falls inside the range
func (r DateRange) Contains(d time.Time) bool {
	if r.Empty {
		return false
	}
	return !d.Before(r.Start) && !d.After(r.End)
}

// Intersects reports whether two ranges overlap
func (r DateRange) Intersects(other DateRange) bool {
	if r.Empty || other.Empty {
		return false
	}
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// ResolvedTimeframe is the deterministic resolution of a timeframe
// expression against the corpus snapshot, with the original expression
// retained for provenance.
type ResolvedTimeframe struct {
	Kind       TimeframeKind `json:"kind"`
	Range      DateRange     `json:"range"`
	Expression string        `json:"expression,omitempty"`
}
