// Package retrieval turns a resolved intent into grounded data: recombined
// metric aggregates, a diversity-capped evidence set, and the coverage
// description that makes the payload honest about its evidence base.
package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/memberpulse/memberpulse/model"
	"github.com/memberpulse/memberpulse/registry"
)

// MetricStore is the precomputed metric access the engine needs.
// *database.MetricsDBHandler satisfies it.
type MetricStore interface {
	SelectMetricRows(ctx context.Context, entityIDs []string, focusArea model.FocusArea, dateRange model.DateRange) ([]*model.MetricRow, error)
	SelectEntityReviewCounts(ctx context.Context, dateRange model.DateRange) ([]model.EntityCoverage, error)
	SelectCorpusBounds(ctx context.Context) (time.Time, time.Time, error)
}

// SnippetStore is the evidence index access the engine needs.
// *database.SnippetsDBHandler satisfies it.
type SnippetStore interface {
	SelectSnippetsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, filter model.SnippetFilter) ([]*model.EvidenceSnippet, error)
	SelectSourceNames(ctx context.Context) ([]string, error)
}

// EmbedFunc embeds one query text into the snippet vector space
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Engine retrieves metrics and evidence for resolved intents
type Engine struct {
	metrics  MetricStore
	snippets SnippetStore
	registry *registry.Registry
	embed    EmbedFunc
	config   model.QueryConfig
	logger   *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(metrics MetricStore, snippets SnippetStore, reg *registry.Registry, embed EmbedFunc, config model.QueryConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		metrics:  metrics,
		snippets: snippets,
		registry: reg,
		embed:    embed,
		config:   config,
		logger:   logger,
	}
}

// Embed embeds one text into the snippet vector space. Index builds use it
// so that stored snippets and query texts share the same embedder.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

// expandPopulation replaces the population pseudo-entity with every tracked
// entity id, keeping real ids as they are
func (e *Engine) expandPopulation(ids []string) []string {
	expanded := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == model.PopulationEntityID {
			expanded = append(expanded, e.registry.EntityIDs()...)
			continue
		}
		expanded = append(expanded, id)
	}
	return expanded
}
