package model

import "time"

// EntityCoverage is the total review count available for one entity
type EntityCoverage struct {
	EntityID    string `json:"entity_id"`
	ReviewCount int    `json:"review_count"`
}

// Coverage describes how much data backed a turn, so downstream generation
// can be transparent about the evidence base.
type Coverage struct {
	SnapshotCutoff time.Time        `json:"snapshot_cutoff"`
	CorpusStart    time.Time        `json:"corpus_start"`
	Sources        []string         `json:"sources,omitempty"`
	PerEntity      []EntityCoverage `json:"per_entity,omitempty"`
	TotalReviews   int              `json:"total_reviews"`
}

// GroundingPayload is the complete, validated bundle handed to the text
// generation step. It is the only corpus access generation gets.
type GroundingPayload struct {
	Intent    ResolvedIntent    `json:"intent"`
	Metrics   []MetricAggregate `json:"metrics,omitempty"`
	Evidence  []EvidenceSnippet `json:"evidence,omitempty"`
	Coverage  Coverage          `json:"coverage"`
	CreatedAt time.Time         `json:"created_at"`
}
