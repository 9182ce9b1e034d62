package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memberpulse/memberpulse/model"
)

// RetrieveMetrics recombines the stored monthly metric rows into one
// aggregate per (entity, focus area) pair of the intent. All averages and
// shares are weighted by per-bucket review count, never averaged naively.
// An empty timeframe yields no aggregates; an (entity, focus area) pair
// without any rows in range contributes nothing rather than a zero
// aggregate, so "no data" shows up as an absent entry, never a fake zero.
func (e *Engine) RetrieveMetrics(ctx context.Context, intent *model.ResolvedIntent) ([]model.MetricAggregate, error) {
	if intent.Timeframe.Range.Empty || intent.Unresolved {
		return nil, nil
	}

	var aggregates []model.MetricAggregate
	for _, entityID := range intent.AllEntityIDs() {
		queryIDs := e.expandPopulation([]string{entityID})

		for _, focusArea := range intent.FocusAreas {
			rows, err := e.metrics.SelectMetricRows(ctx, queryIDs, focusArea, intent.Timeframe.Range)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if len(rows) == 0 {
				continue
			}

			aggregates = append(aggregates, e.aggregate(entityID, focusArea, intent.Timeframe.Range, rows))
		}
	}

	e.logger.Debug(
		"retrieved metrics",
		slog.Int("aggregates", len(aggregates)),
		slog.String("rangeStart", intent.Timeframe.Range.Start.Format("2006-01-02")),
		slog.String("rangeEnd", intent.Timeframe.Range.End.Format("2006-01-02")),
	)

	return aggregates, nil
}

// aggregate recombines metric rows into one review-count-weighted aggregate
func (e *Engine) aggregate(entityID string, focusArea model.FocusArea, dateRange model.DateRange, rows []*model.MetricRow) model.MetricAggregate {
	aggregate := model.MetricAggregate{
		EntityID:  entityID,
		FocusArea: focusArea,
		Range:     dateRange,
	}

	var sumRating, sumSentiment, sumNegative, sumPositive, sumNet float64
	var peerWeightedSum float64
	var peerCount int

	for _, row := range rows {
		aggregate.BucketCount++
		aggregate.ReviewCount += row.ReviewCount

		weight := float64(row.ReviewCount)
		sumRating += weight * row.AvgRating
		sumSentiment += weight * row.AvgSentimentScore
		sumNegative += weight * row.PctNegative
		sumPositive += weight * row.PctPositive
		sumNet += weight * row.NetSentimentScore

		// Buckets without peer figures are left out of the peer aggregate
		// entirely rather than counted as zero
		if row.PeerAvgSentiment != nil && row.PeerReviewCount != nil && *row.PeerReviewCount > 0 {
			peerWeightedSum += float64(*row.PeerReviewCount) * *row.PeerAvgSentiment
			peerCount += *row.PeerReviewCount
		}
	}

	if aggregate.ReviewCount > 0 {
		total := float64(aggregate.ReviewCount)
		aggregate.AvgRating = sumRating / total
		aggregate.AvgSentimentScore = sumSentiment / total
		aggregate.PctNegative = sumNegative / total
		aggregate.PctPositive = sumPositive / total
		aggregate.NetSentimentScore = sumNet / total
	}

	// A peer figure backed by too few reviews is omitted, not reported
	if peerCount >= e.config.MinPeerReviewCount {
		peerAvg := peerWeightedSum / float64(peerCount)
		aggregate.PeerAvgSentiment = &peerAvg
		aggregate.PeerReviewCount = peerCount
	}

	aggregate.LowConfidence = aggregate.ReviewCount < e.config.MinReviewCount

	return aggregate
}
