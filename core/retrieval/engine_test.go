package retrieval

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/memberpulse/memberpulse/model"
	"github.com/memberpulse/memberpulse/registry"
	"github.com/stretchr/testify/require"
)

// fakeMetricStore serves canned metric rows with the same filtering
// semantics as the database handler
type fakeMetricStore struct {
	rows        []*model.MetricRow
	counts      []model.EntityCoverage
	corpusStart time.Time
	cutoff      time.Time
	err         error
}

func (f *fakeMetricStore) SelectMetricRows(ctx context.Context, entityIDs []string, focusArea model.FocusArea, dateRange model.DateRange) ([]*model.MetricRow, error) {
	if f.err != nil {
		return nil, f.err
	}

	wanted := map[string]bool{}
	for _, id := range entityIDs {
		wanted[id] = true
	}

	var results []*model.MetricRow
	for _, row := range f.rows {
		if !wanted[row.EntityID] || row.FocusArea != focusArea {
			continue
		}
		if row.BucketStart.After(dateRange.End) || row.BucketEnd.Before(dateRange.Start) {
			continue
		}
		results = append(results, row)
	}
	return results, nil
}

func (f *fakeMetricStore) SelectEntityReviewCounts(ctx context.Context, dateRange model.DateRange) ([]model.EntityCoverage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

func (f *fakeMetricStore) SelectCorpusBounds(ctx context.Context) (time.Time, time.Time, error) {
	if f.err != nil {
		return time.Time{}, time.Time{}, f.err
	}
	return f.corpusStart, f.cutoff, nil
}

// fakeSnippetStore serves canned snippets with preset similarities
type fakeSnippetStore struct {
	snippets []*model.EvidenceSnippet
	sources  []string
	err      error
}

func (f *fakeSnippetStore) SelectSnippetsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, filter model.SnippetFilter) ([]*model.EvidenceSnippet, error) {
	if f.err != nil {
		return nil, f.err
	}

	wantedEntities := map[string]bool{}
	for _, id := range filter.EntityIDs {
		wantedEntities[id] = true
	}
	wantedLabels := map[model.SentimentLabel]bool{}
	for _, label := range filter.SentimentLabels {
		wantedLabels[label] = true
	}
	wantedAreas := map[model.FocusArea]bool{}
	for _, area := range filter.FocusAreas {
		wantedAreas[area] = true
	}

	var results []*model.EvidenceSnippet
	for _, snippet := range f.snippets {
		if len(filter.EntityIDs) > 0 && !wantedEntities[snippet.EntityID] {
			continue
		}
		if !filter.Range.Start.IsZero() && snippet.ReviewDate.Before(filter.Range.Start) {
			continue
		}
		if !filter.Range.End.IsZero() && snippet.ReviewDate.After(filter.Range.End) {
			continue
		}
		if len(filter.SentimentLabels) > 0 && !wantedLabels[snippet.SentimentLabel] {
			continue
		}
		if len(filter.FocusAreas) > 0 && !overlapsAreas(snippet.FocusAreas, wantedAreas) {
			continue
		}
		if snippet.Similarity < threshold {
			continue
		}

		copied := *snippet
		results = append(results, &copied)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeSnippetStore) SelectSourceNames(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sources, nil
}

func overlapsAreas(areas []model.FocusArea, wanted map[model.FocusArea]bool) bool {
	for _, area := range areas {
		if wanted[area] {
			return true
		}
	}
	return false
}

func fakeEmbed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	reg, err := registry.LoadDefault()
	require.NoError(t, err)
	return reg
}

func newTestEngine(t *testing.T, metrics *fakeMetricStore, snippets *fakeSnippetStore) *Engine {
	return NewEngine(metrics, snippets, testRegistry(t), fakeEmbed, model.DefaultQueryConfig(), nil)
}

func testIntent(entityIDs []string, focusAreas ...model.FocusArea) *model.ResolvedIntent {
	if len(focusAreas) == 0 {
		focusAreas = []model.FocusArea{model.FocusAreaOverall}
	}
	return &model.ResolvedIntent{
		PrimaryEntityIDs: entityIDs,
		Timeframe: model.ResolvedTimeframe{
			Kind: model.TimeframeAllAvailable,
			Range: model.DateRange{
				Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			},
		},
		FocusAreas:     focusAreas,
		QuestionType:   model.QuestionOverallSentiment,
		SentimentFocus: model.SentimentFocusAll,
		DetailLevel:    model.DetailStandard,
	}
}
