package model

import "time"

// MetricRow is one precomputed aggregate for an (entity, time bucket,
// focus area) combination, with optional channel/product sub-dimensions.
// Shares lie in [0,1]; peer fields are present only when a peer group with
// at least one review exists for the bucket.
type MetricRow struct {
	ID                int        `json:"id"`
	EntityID          string     `json:"entity_id"`
	BucketStart       time.Time  `json:"bucket_start"`
	BucketEnd         time.Time  `json:"bucket_end"`
	FocusArea         FocusArea  `json:"focus_area"`
	Channel           *string    `json:"channel,omitempty"`
	Product           *string    `json:"product,omitempty"`
	ReviewCount       int        `json:"review_count"`
	AvgRating         float64    `json:"avg_rating"`
	AvgSentimentScore float64    `json:"avg_sentiment_score"`
	PctNegative       float64    `json:"pct_negative_reviews"`
	PctPositive       float64    `json:"pct_positive_reviews"`
	NetSentimentScore float64    `json:"net_sentiment_score"`
	PeerAvgSentiment  *float64   `json:"peer_group_avg_sentiment_score,omitempty"`
	PeerReviewCount   *int       `json:"peer_group_review_count,omitempty"`
	MetricVersion     string     `json:"metric_version,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// MetricAggregate is the review-count-weighted recombination of one or more
// metric rows over the resolved date range for a single (entity, focus area)
// combination.
type MetricAggregate struct {
	EntityID          string    `json:"entity_id"`
	FocusArea         FocusArea `json:"focus_area"`
	Range             DateRange `json:"range"`
	BucketCount       int       `json:"bucket_count"`
	ReviewCount       int       `json:"review_count"`
	AvgRating         float64   `json:"avg_rating"`
	AvgSentimentScore float64   `json:"avg_sentiment_score"`
	PctNegative       float64   `json:"pct_negative_reviews"`
	PctPositive       float64   `json:"pct_positive_reviews"`
	NetSentimentScore float64   `json:"net_sentiment_score"`
	PeerAvgSentiment  *float64  `json:"peer_group_avg_sentiment_score,omitempty"`
	PeerReviewCount   int       `json:"peer_group_review_count,omitempty"`
	LowConfidence     bool      `json:"low_confidence,omitempty"`
}
