package resolve

import (
	"fmt"
	"time"

	"github.com/memberpulse/memberpulse/model"
)

// covidPivot separates the pre-covid and since-covid corpus halves
var covidPivot = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)

// recentGenericMonths is the window applied to vague recency wording like
// "recently" or "lately" when no explicit span is given
const recentGenericMonths = 6

// TimeframeResolver maps timeframe expressions to concrete date ranges
// against the bounds of one corpus snapshot. Relative windows are anchored
// to the snapshot cutoff, never to wall-clock time, so the same expression
// resolves identically for every caller of the same snapshot.
type TimeframeResolver struct {
	CorpusStart time.Time
	Cutoff      time.Time
}

// NewTimeframeResolver creates a resolver for the given corpus bounds
func NewTimeframeResolver(corpusStart, cutoff time.Time) *TimeframeResolver {
	return &TimeframeResolver{
		CorpusStart: corpusStart.UTC().Truncate(24 * time.Hour),
		Cutoff:      cutoff.UTC().Truncate(24 * time.Hour),
	}
}

// Resolve turns a timeframe expression into a closed date range clipped to
// the corpus bounds. A nil expression resolves to the full corpus. A window
// that does not intersect the corpus at all comes back with Empty set and
// an explanatory note instead of an error, so the caller can still report
// "no data for that period" with full context.
func (r *TimeframeResolver) Resolve(expression *model.TimeframeExpression) (model.ResolvedTimeframe, []model.ProvenanceNote) {
	if expression == nil {
		return model.ResolvedTimeframe{
			Kind:  model.TimeframeAllAvailable,
			Range: model.DateRange{Start: r.CorpusStart, End: r.Cutoff},
		}, nil
	}

	var notes []model.ProvenanceNote
	resolved := model.ResolvedTimeframe{
		Kind:       expression.Kind,
		Expression: expression.Raw,
	}

	var start, end time.Time
	switch expression.Kind {
	case model.TimeframeAllAvailable:
		start, end = r.CorpusStart, r.Cutoff
	case model.TimeframeLast12Months:
		start, end = r.Cutoff.AddDate(0, -12, 0).AddDate(0, 0, 1), r.Cutoff
	case model.TimeframeLast24Months:
		start, end = r.Cutoff.AddDate(0, -24, 0).AddDate(0, 0, 1), r.Cutoff
	case model.TimeframeCalendarYear:
		start = time.Date(expression.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(expression.Year, 12, 31, 0, 0, 0, 0, time.UTC)
	case model.TimeframeSinceCovid:
		start, end = covidPivot, r.Cutoff
	case model.TimeframePreCovid:
		start, end = r.CorpusStart, covidPivot.AddDate(0, 0, -1)
	case model.TimeframeAbsoluteRange:
		if expression.Start == nil || expression.End == nil || expression.Start.After(*expression.End) {
			resolved.Range = model.DateRange{Empty: true}
			notes = append(notes, model.ProvenanceNote{
				Kind: model.ProvenanceEmptyTimeframe,
				Note: fmt.Sprintf("the requested period %q is not a valid date range", expression.Raw),
			})
			return resolved, notes
		}
		start = expression.Start.UTC().Truncate(24 * time.Hour)
		end = expression.End.UTC().Truncate(24 * time.Hour)
	case model.TimeframeRecentGeneric:
		start, end = r.Cutoff.AddDate(0, -recentGenericMonths, 0).AddDate(0, 0, 1), r.Cutoff
		notes = append(notes, model.ProvenanceNote{
			Kind: model.ProvenanceAssumption,
			Note: fmt.Sprintf("interpreted %q as the last %v months of data", expression.Raw, recentGenericMonths),
		})
	default:
		resolved.Kind = model.TimeframeAllAvailable
		start, end = r.CorpusStart, r.Cutoff
		notes = append(notes, model.ProvenanceNote{
			Kind: model.ProvenanceAssumption,
			Note: fmt.Sprintf("unrecognized timeframe %q, using all available data", expression.Kind),
		})
	}

	resolved.Range, notes = r.clip(start, end, expression, notes)
	return resolved, notes
}

// clip bounds a requested window to the corpus and flags windows that fall
// entirely outside it
func (r *TimeframeResolver) clip(start, end time.Time, expression *model.TimeframeExpression, notes []model.ProvenanceNote) (model.DateRange, []model.ProvenanceNote) {
	if end.Before(r.CorpusStart) || start.After(r.Cutoff) {
		notes = append(notes, model.ProvenanceNote{
			Kind: model.ProvenanceEmptyTimeframe,
			Note: fmt.Sprintf(
				"no review data for the requested period; the corpus covers %v to %v",
				r.CorpusStart.Format("2006-01-02"), r.Cutoff.Format("2006-01-02"),
			),
		})
		return model.DateRange{Empty: true}, notes
	}

	if start.Before(r.CorpusStart) {
		start = r.CorpusStart
	}
	if end.After(r.Cutoff) {
		end = r.Cutoff
	}

	return model.DateRange{Start: start, End: end}, notes
}
