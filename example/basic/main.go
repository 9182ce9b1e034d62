package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/memberpulse/memberpulse"
	"github.com/memberpulse/memberpulse/core/pipeline"
	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
	"github.com/memberpulse/memberpulse/parse"
)

// sampleSnippets are a handful of review extractions to index for the demo
var sampleSnippets = []struct {
	entityID  string
	date      time.Time
	rating    int
	sentiment model.SentimentLabel
	focus     []model.FocusArea
	text      string
}{
	{
		"skipton", time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC), 5, model.SentimentVeryPositive,
		[]model.FocusArea{model.FocusAreaMortgages, model.FocusAreaCustomerService},
		"The Skipton mortgage team explained every step and the rate was better than my bank offered.",
	},
	{
		"skipton", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), 2, model.SentimentNegative,
		[]model.FocusArea{model.FocusAreaMobileApp},
		"App keeps logging me out and the latest update removed the payment history view.",
	},
	{
		"leeds", time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC), 4, model.SentimentPositive,
		[]model.FocusArea{model.FocusAreaSavings},
		"Opening a fixed rate ISA with Leeds took ten minutes and the branch staff were lovely.",
	},
	{
		"leeds", time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), 1, model.SentimentVeryNegative,
		[]model.FocusArea{model.FocusAreaComplaintsHandling},
		"Six weeks waiting on a complaint about a missed transfer and still no proper answer from Leeds.",
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	pulse, err := memberpulse.NewMemberPulse(dbConfig, pipeline.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create memberpulse: %v", err)
	}
	defer pulse.Close()

	// Set up the default embedder (all-MiniLM-L6-v2, downloads on first run)
	if err := pulse.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	// Persist the tracked organizations
	if err := pulse.SyncRegistry(); err != nil {
		log.Fatalf("Failed to sync registry: %v", err)
	}

	fmt.Println("Loading sample metric rows and evidence snippets...")
	if err := loadSampleData(pulse); err != nil {
		log.Fatalf("Failed to load sample data: %v", err)
	}

	ctx := context.Background()
	sessionID := uuid.New()

	// First turn: a fresh question about one society
	firstTurn := model.ParsedIntent{
		PrimaryMentions: []string{"Skipton"},
		Timeframe:       &model.TimeframeExpression{Kind: model.TimeframeCalendarYear, Year: 2024, Raw: "in 2024"},
	}

	fmt.Println("\nQuestion 1: How do members feel about Skipton in 2024?")
	payload, err := pulse.ResolveTurn(ctx, sessionID, firstTurn)
	if err != nil {
		log.Fatalf("Failed to resolve turn: %v", err)
	}
	printPayload(pulse, payload)

	// Second turn: a follow-up that inherits the entity and timeframe
	followUp := model.ParsedIntent{
		IsFollowUp: true,
		FocusAreas: []model.FocusArea{model.FocusAreaMobileApp},
		SentimentFocus: func() *model.SentimentFocus {
			focus := model.SentimentFocusNegative
			return &focus
		}(),
	}

	fmt.Println("\nQuestion 2: What are they unhappy about in the app?")
	payload, err = pulse.ResolveTurn(ctx, sessionID, followUp)
	if err != nil {
		log.Fatalf("Failed to resolve follow-up turn: %v", err)
	}
	printPayload(pulse, payload)

	// With an API key the parsing step can run against a real model too
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		pulse.SetParser(parse.NewParser(apiKey, "", nil))

		question := "Compare Skipton and Leeds on savings over the last year"
		fmt.Printf("\nQuestion 3 (parsed from text): %s\n", question)

		payload, err = pulse.Ask(ctx, uuid.New(), question)
		if err != nil {
			log.Fatalf("Failed to ask: %v", err)
		}
		printPayload(pulse, payload)
	}

	fmt.Println("\nBasic example completed successfully!")
}

// loadSampleData inserts monthly metric rows for 2024 and embeds the sample
// snippets into the evidence index
func loadSampleData(pulse *memberpulse.MemberPulse) error {
	for month := 1; month <= 6; month++ {
		bucketStart := time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

		for i, entityID := range []string{"skipton", "leeds"} {
			row := &model.MetricRow{
				EntityID:          entityID,
				BucketStart:       bucketStart,
				BucketEnd:         bucketStart.AddDate(0, 1, -1),
				FocusArea:         model.FocusAreaOverall,
				ReviewCount:       40 + 10*month + 5*i,
				AvgRating:         3.4 + 0.1*float64(month%3),
				AvgSentimentScore: 0.2 + 0.05*float64(month%4),
				PctNegative:       0.25,
				PctPositive:       0.55,
				NetSentimentScore: 0.3,
				MetricVersion:     "v1",
			}
			if err := pulse.Metrics.InsertMetricRow(row); err != nil {
				return err
			}
		}
	}

	for _, sample := range sampleSnippets {
		embedding, err := pulse.Engine.Embed(context.Background(), sample.text)
		if err != nil {
			return err
		}

		snippet := &model.EvidenceSnippet{
			EntityID:       sample.entityID,
			Source:         "trustpilot",
			ReviewDate:     sample.date,
			Rating:         sample.rating,
			SentimentLabel: sample.sentiment,
			FocusAreas:     sample.focus,
			DisplayText:    sample.text,
			Embedding:      embedding,
			Metadata:       model.Metadata{},
		}
		if err := pulse.Snippets.InsertSnippet(snippet); err != nil {
			return err
		}
	}

	return nil
}

// printPayload prints the grounding payload the way a generation layer
// would consume it
func printPayload(pulse *memberpulse.MemberPulse, payload *model.GroundingPayload) {
	fmt.Printf("Resolved entities: %v", payload.Intent.PrimaryEntityIDs)
	if len(payload.Intent.ComparisonEntityIDs) > 0 {
		fmt.Printf(" vs %v", payload.Intent.ComparisonEntityIDs)
	}
	fmt.Printf("\nTimeframe: %s to %s (%s)\n",
		payload.Intent.Timeframe.Range.Start.Format("2006-01-02"),
		payload.Intent.Timeframe.Range.End.Format("2006-01-02"),
		payload.Intent.Timeframe.Kind,
	)

	for _, note := range payload.Intent.Provenance {
		fmt.Printf("Note (%s): %s\n", note.Kind, note.Note)
	}

	for _, metric := range payload.Metrics {
		fmt.Printf("Metrics for %s / %s: %d reviews, avg rating %.2f, net sentiment %+.2f\n",
			pulse.Registry.CanonicalName(metric.EntityID), metric.FocusArea,
			metric.ReviewCount, metric.AvgRating, metric.NetSentimentScore,
		)
	}

	fmt.Printf("Evidence (%d snippets):\n", len(payload.Evidence))
	for i, snippet := range payload.Evidence {
		fmt.Printf("  %d. [%s, %s, %s] %s\n",
			i+1, pulse.Registry.CanonicalName(snippet.EntityID),
			snippet.ReviewDate.Format("2006-01-02"), snippet.SentimentLabel, snippet.DisplayText,
		)
	}
}
