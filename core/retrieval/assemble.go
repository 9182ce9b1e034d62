package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/memberpulse/memberpulse/model"
)

// RetrieveCoverage describes the evidence base behind a turn: corpus
// bounds, distinct sources, and per-entity review counts over the
// resolved range for the entities in question.
func (e *Engine) RetrieveCoverage(ctx context.Context, intent *model.ResolvedIntent) (model.Coverage, error) {
	corpusStart, cutoff, err := e.metrics.SelectCorpusBounds(ctx)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	coverage := model.Coverage{
		CorpusStart:    corpusStart,
		SnapshotCutoff: cutoff,
	}

	if intent.Timeframe.Range.Empty || intent.Unresolved {
		return coverage, nil
	}

	sources, err := e.snippets.SelectSourceNames(ctx)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	coverage.Sources = sources

	counts, err := e.metrics.SelectEntityReviewCounts(ctx, intent.Timeframe.Range)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	wanted := map[string]bool{}
	sectorWide := false
	for _, id := range intent.AllEntityIDs() {
		if id == model.PopulationEntityID {
			sectorWide = true
			continue
		}
		wanted[id] = true
	}

	for _, count := range counts {
		if sectorWide || wanted[count.EntityID] {
			coverage.PerEntity = append(coverage.PerEntity, count)
		}
		coverage.TotalReviews += count.ReviewCount
	}

	return coverage, nil
}

// AssembleGrounding validates that metrics, evidence, and coverage all
// belong to the intent and bundles them into the payload handed to text
// generation. Any contradiction fails the whole turn with
// ErrConsistencyViolation; a partial or silently repaired payload is never
// produced.
func AssembleGrounding(intent *model.ResolvedIntent, metrics []model.MetricAggregate, evidence []model.EvidenceSnippet, coverage model.Coverage) (*model.GroundingPayload, error) {
	sectorWide := false
	for _, id := range intent.AllEntityIDs() {
		if id == model.PopulationEntityID {
			sectorWide = true
		}
	}

	knownFocus := map[model.FocusArea]bool{}
	for _, focusArea := range intent.FocusAreas {
		knownFocus[focusArea] = true
	}

	for _, aggregate := range metrics {
		if !intent.HasEntityID(aggregate.EntityID) {
			return nil, fmt.Errorf("%w: metric aggregate for unrequested entity %q", ErrConsistencyViolation, aggregate.EntityID)
		}
		if !knownFocus[aggregate.FocusArea] {
			return nil, fmt.Errorf("%w: metric aggregate for unrequested focus area %q", ErrConsistencyViolation, aggregate.FocusArea)
		}
	}

	for _, snippet := range evidence {
		if !sectorWide && !intent.HasEntityID(snippet.EntityID) {
			return nil, fmt.Errorf("%w: evidence snippet %v belongs to unrequested entity %q", ErrConsistencyViolation, snippet.ID, snippet.EntityID)
		}
		if !intent.Timeframe.Range.Empty && !intent.Timeframe.Range.Contains(snippet.ReviewDate) {
			return nil, fmt.Errorf("%w: evidence snippet %v dated %v falls outside the resolved timeframe", ErrConsistencyViolation, snippet.ID, snippet.ReviewDate.Format("2006-01-02"))
		}
	}

	return &model.GroundingPayload{
		Intent:    *intent.Clone(),
		Metrics:   metrics,
		Evidence:  evidence,
		Coverage:  coverage,
		CreatedAt: time.Now(),
	}, nil
}
