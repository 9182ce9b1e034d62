package model

// QueryConfig holds the tunable parameters for a turn. The alias thresholds
// are heuristic knobs, not contracts: raising AliasAmbiguityMargin flags
// more resolutions as ambiguous.
type QueryConfig struct {
	// Alias resolution parameters
	AliasConfidenceThreshold float64 `json:"alias_confidence_threshold"`
	AliasAmbiguityMargin     float64 `json:"alias_ambiguity_margin"`
	AliasMaxEditDistance     int     `json:"alias_max_edit_distance"`

	// Evidence retrieval parameters
	EvidenceLimit           int     `json:"evidence_limit"`
	EvidencePerEntityCap    int     `json:"evidence_per_entity_cap"`
	EvidencePerMonthCap     int     `json:"evidence_per_month_cap"`
	EvidenceOverfetchFactor int     `json:"evidence_overfetch_factor"`
	SimilarityThreshold     float64 `json:"similarity_threshold,omitempty"`
	SnippetDisplayMaxChars  int     `json:"snippet_display_max_chars"`

	// Metric aggregation parameters
	MinReviewCount     int `json:"min_review_count"`
	MinPeerReviewCount int `json:"min_peer_review_count"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		AliasConfidenceThreshold: 0.7,
		AliasAmbiguityMargin:     0.1,
		AliasMaxEditDistance:     3,
		EvidenceLimit:            25,
		EvidencePerEntityCap:     8,
		EvidencePerMonthCap:      6,
		EvidenceOverfetchFactor:  3,
		SimilarityThreshold:      0.0,
		SnippetDisplayMaxChars:   300,
		MinReviewCount:           30,
		MinPeerReviewCount:       30,
	}
}
