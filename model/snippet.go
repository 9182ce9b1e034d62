package model

import (
	"time"

	"github.com/google/uuid"
)

// SentimentLabel is the 5-point ordinal sentiment scale
type SentimentLabel string

const (
	SentimentVeryNegative SentimentLabel = "very_negative"
	SentimentNegative     SentimentLabel = "negative"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentPositive     SentimentLabel = "positive"
	SentimentVeryPositive SentimentLabel = "very_positive"
)

// NegativeSentimentLabels returns the two most negative labels
func NegativeSentimentLabels() []SentimentLabel {
	return []SentimentLabel{SentimentVeryNegative, SentimentNegative}
}

// PositiveSentimentLabels returns the two most positive labels
func PositiveSentimentLabels() []SentimentLabel {
	return []SentimentLabel{SentimentPositive, SentimentVeryPositive}
}

// SnippetFilter narrows a similarity search to the entities, date range,
// sentiment labels, and focus areas of one resolved intent. Zero-value
// fields mean "no filter on this dimension".
type SnippetFilter struct {
	EntityIDs       []string         `json:"entity_ids,omitempty"`
	Range           DateRange        `json:"range,omitempty"`
	SentimentLabels []SentimentLabel `json:"sentiment_labels,omitempty"`
	FocusAreas      []FocusArea      `json:"focus_areas,omitempty"`
}

// EvidenceSnippet is one indexed review extraction. DisplayText has already
// been redacted by the upstream corpus build; the core relies on that
// precondition and does not re-check it.
type EvidenceSnippet struct {
	ID             int            `json:"id"`
	RID            uuid.UUID      `json:"rid"`
	EntityID       string         `json:"entity_id"`
	Source         string         `json:"source"`
	ReviewDate     time.Time      `json:"review_date"`
	Rating         int            `json:"rating"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
	FocusAreas     []FocusArea    `json:"focus_areas,omitempty"`
	Topics         []string       `json:"topics,omitempty"`
	DisplayText    string         `json:"display_text"`
	Embedding      []float32      `json:"-"`
	Metadata       Metadata       `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}
