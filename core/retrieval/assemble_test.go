package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memberpulse/memberpulse/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleGrounding(t *testing.T) {
	intent := testIntent([]string{"skipton"})

	metrics := []model.MetricAggregate{
		{EntityID: "skipton", FocusArea: model.FocusAreaOverall, ReviewCount: 120},
	}
	evidence := []model.EvidenceSnippet{
		*evidenceSnippet(1, "skipton", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
	}
	coverage := model.Coverage{TotalReviews: 120}

	payload, err := AssembleGrounding(intent, metrics, evidence, coverage)
	require.NoError(t, err)
	require.NotNil(t, payload)

	assert.Equal(t, []string{"skipton"}, payload.Intent.PrimaryEntityIDs)
	assert.Len(t, payload.Metrics, 1)
	assert.Len(t, payload.Evidence, 1)
	assert.Equal(t, 120, payload.Coverage.TotalReviews)
	assert.WithinDuration(t, time.Now(), payload.CreatedAt, 2*time.Second)

	// The payload owns its intent copy
	payload.Intent.PrimaryEntityIDs[0] = "mutated"
	assert.Equal(t, []string{"skipton"}, intent.PrimaryEntityIDs)
}

func TestAssembleGroundingRejectsForeignMetric(t *testing.T) {
	intent := testIntent([]string{"skipton"})
	metrics := []model.MetricAggregate{
		{EntityID: "leeds", FocusArea: model.FocusAreaOverall},
	}

	_, err := AssembleGrounding(intent, metrics, nil, model.Coverage{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConsistencyViolation))
	assert.Contains(t, err.Error(), "leeds")
}

func TestAssembleGroundingRejectsForeignFocusArea(t *testing.T) {
	intent := testIntent([]string{"skipton"})
	metrics := []model.MetricAggregate{
		{EntityID: "skipton", FocusArea: model.FocusAreaMortgages},
	}

	_, err := AssembleGrounding(intent, metrics, nil, model.Coverage{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConsistencyViolation))
}

func TestAssembleGroundingRejectsForeignEvidence(t *testing.T) {
	intent := testIntent([]string{"skipton"})
	evidence := []model.EvidenceSnippet{
		*evidenceSnippet(9, "leeds", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
	}

	_, err := AssembleGrounding(intent, nil, evidence, model.Coverage{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConsistencyViolation))
}

func TestAssembleGroundingRejectsOutOfRangeEvidence(t *testing.T) {
	intent := testIntent([]string{"skipton"})
	evidence := []model.EvidenceSnippet{
		*evidenceSnippet(9, "skipton", time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), 0.9),
	}

	_, err := AssembleGrounding(intent, nil, evidence, model.Coverage{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConsistencyViolation))
}

func TestAssembleGroundingSectorWideAcceptsAnyEntity(t *testing.T) {
	intent := testIntent([]string{model.PopulationEntityID})
	metrics := []model.MetricAggregate{
		{EntityID: model.PopulationEntityID, FocusArea: model.FocusAreaOverall},
	}
	evidence := []model.EvidenceSnippet{
		*evidenceSnippet(1, "cumberland", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0.8),
	}

	_, err := AssembleGrounding(intent, metrics, evidence, model.Coverage{})
	assert.NoError(t, err)
}

func TestRetrieveCoverage(t *testing.T) {
	corpusStart := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	metricStore := &fakeMetricStore{
		corpusStart: corpusStart,
		cutoff:      cutoff,
		counts: []model.EntityCoverage{
			{EntityID: "skipton", ReviewCount: 800},
			{EntityID: "leeds", ReviewCount: 600},
		},
	}
	snippetStore := &fakeSnippetStore{sources: []string{"google_reviews", "trustpilot"}}
	engine := newTestEngine(t, metricStore, snippetStore)

	t.Run("Coverage is scoped to the intent entities", func(t *testing.T) {
		coverage, err := engine.RetrieveCoverage(context.Background(), testIntent([]string{"skipton"}))
		require.NoError(t, err)

		assert.Equal(t, corpusStart, coverage.CorpusStart)
		assert.Equal(t, cutoff, coverage.SnapshotCutoff)
		assert.Equal(t, []string{"google_reviews", "trustpilot"}, coverage.Sources)
		require.Len(t, coverage.PerEntity, 1)
		assert.Equal(t, "skipton", coverage.PerEntity[0].EntityID)
		assert.Equal(t, 1400, coverage.TotalReviews, "the total spans the whole corpus for context")
	})

	t.Run("Sector-wide coverage lists every entity", func(t *testing.T) {
		coverage, err := engine.RetrieveCoverage(context.Background(), testIntent([]string{model.PopulationEntityID}))
		require.NoError(t, err)
		assert.Len(t, coverage.PerEntity, 2)
	})

	t.Run("Empty timeframe still reports corpus bounds", func(t *testing.T) {
		intent := testIntent([]string{"skipton"})
		intent.Timeframe.Range = model.DateRange{Empty: true}

		coverage, err := engine.RetrieveCoverage(context.Background(), intent)
		require.NoError(t, err)
		assert.Equal(t, corpusStart, coverage.CorpusStart)
		assert.Empty(t, coverage.PerEntity)
	})
}
