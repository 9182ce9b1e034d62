package memberpulse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/memberpulse/memberpulse/core/retrieval"
	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 8

// testEmbedder creates a simple deterministic embedder for testing
func testEmbedder(dimension int) retrieval.EmbedFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		embedding := make([]float32, dimension)
		for i := 0; i < dimension; i++ {
			embedding[i] = float32((len(text)+i)%100)/100.0 + 0.01
		}
		return embedding, nil
	}
}

func initMemberPulse(t *testing.T) *MemberPulse {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	pulse, err := NewMemberPulse(dbConfig, testEmbeddingDim)
	require.NoError(t, err, "failed to create memberpulse")
	require.NotNil(t, pulse, "expected memberpulse to be non-nil")

	pulse.SetEmbedder(testEmbedder(testEmbeddingDim))

	t.Cleanup(func() {
		pulse.Close()
	})

	return pulse
}

func seedMetricRow(t *testing.T, pulse *MemberPulse, entityID string, bucketStart time.Time, reviewCount int, avgSentiment float64) {
	row := &model.MetricRow{
		EntityID:          entityID,
		BucketStart:       bucketStart,
		BucketEnd:         bucketStart.AddDate(0, 1, -1),
		FocusArea:         model.FocusAreaOverall,
		ReviewCount:       reviewCount,
		AvgRating:         3.8,
		AvgSentimentScore: avgSentiment,
		PctNegative:       0.2,
		PctPositive:       0.6,
		NetSentimentScore: 0.4,
		MetricVersion:     "v1",
	}
	require.NoError(t, pulse.Metrics.InsertMetricRow(row), "failed to seed metric row")
}

func seedSnippet(t *testing.T, pulse *MemberPulse, entityID string, reviewDate time.Time, text string) {
	embedding, err := testEmbedder(testEmbeddingDim)(context.Background(), text)
	require.NoError(t, err)

	snippet := &model.EvidenceSnippet{
		EntityID:       entityID,
		Source:         "trustpilot",
		ReviewDate:     reviewDate,
		Rating:         4,
		SentimentLabel: model.SentimentPositive,
		FocusAreas:     []model.FocusArea{model.FocusAreaOverall, model.FocusAreaMortgages},
		DisplayText:    text,
		Embedding:      embedding,
		Metadata:       model.Metadata{},
	}
	require.NoError(t, pulse.Snippets.InsertSnippet(snippet), "failed to seed snippet")
}

func TestNewMemberPulse(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewMemberPulse", func(t *testing.T) {
		pulse, err := NewMemberPulse(dbConfig, testEmbeddingDim)
		require.NoError(t, err, "Expected NewMemberPulse to not return an error")
		require.NotNil(t, pulse, "Expected NewMemberPulse to return a non-nil instance")
		assert.NotNil(t, pulse.DB, "Expected memberpulse to have a database instance")
		assert.NotNil(t, pulse.Entities, "Expected memberpulse to have entities handler")
		assert.NotNil(t, pulse.Metrics, "Expected memberpulse to have metrics handler")
		assert.NotNil(t, pulse.Snippets, "Expected memberpulse to have snippets handler")
		assert.NotNil(t, pulse.Registry, "Expected memberpulse to have a registry")
		assert.NotNil(t, pulse.Sessions, "Expected memberpulse to have a session manager")
		assert.NotNil(t, pulse.Engine, "Expected memberpulse to have a retrieval engine")
		assert.Nil(t, pulse.Parser, "Expected parser to be nil initially")

		// Cleanup
		err = pulse.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("MemberPulse with nil database handles Close gracefully", func(t *testing.T) {
		pulse := &MemberPulse{}

		err := pulse.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

func TestSyncRegistry(t *testing.T) {
	pulse := initMemberPulse(t)

	err := pulse.SyncRegistry()
	require.NoError(t, err, "Expected SyncRegistry to not return an error")

	entity, err := pulse.Entities.SelectEntity("skipton")
	require.NoError(t, err, "Expected synced entity to be selectable")
	assert.Equal(t, "Skipton Building Society", entity.CanonicalName)
	assert.Equal(t, model.SizeBucketLarge, entity.SizeBucket)

	// Syncing again upserts without error
	err = pulse.SyncRegistry()
	assert.NoError(t, err, "Expected SyncRegistry to be idempotent")

	all, err := pulse.Entities.SelectAllEntities(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(pulse.Registry.Entities()))
}

func TestResolveTurn(t *testing.T) {
	pulse := initMemberPulse(t)
	ctx := context.Background()
	sessionID := uuid.New()

	t.Run("Error without metric data", func(t *testing.T) {
		_, err := pulse.ResolveTurn(ctx, sessionID, model.ParsedIntent{
			PrimaryMentions: []string{"Skipton"},
		})
		require.Error(t, err, "Expected ResolveTurn to fail before any data is loaded")
		assert.Equal(t, 0, pulse.Sessions.Turns(sessionID), "Expected failed turn to not commit session context")
	})

	require.NoError(t, pulse.SyncRegistry())
	seedMetricRow(t, pulse, "skipton", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 0.5)
	seedMetricRow(t, pulse, "skipton", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 50, 0.2)
	seedMetricRow(t, pulse, "leeds", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 80, 0.3)
	seedSnippet(t, pulse, "skipton", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "The mortgage advisor at Skipton was patient and clear.")
	seedSnippet(t, pulse, "leeds", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), "Leeds sorted my savings transfer within a day.")

	t.Run("First turn resolves mention and retrieves grounding", func(t *testing.T) {
		payload, err := pulse.ResolveTurn(ctx, sessionID, model.ParsedIntent{
			PrimaryMentions: []string{"Skipton"},
			Timeframe:       &model.TimeframeExpression{Kind: model.TimeframeCalendarYear, Year: 2024, Raw: "in 2024"},
		})
		require.NoError(t, err, "Expected ResolveTurn to not return an error")
		require.NotNil(t, payload)

		assert.Equal(t, []string{"skipton"}, payload.Intent.PrimaryEntityIDs)
		assert.False(t, payload.Intent.Unresolved)

		require.Len(t, payload.Metrics, 1)
		assert.Equal(t, "skipton", payload.Metrics[0].EntityID)
		assert.Equal(t, 150, payload.Metrics[0].ReviewCount, "Expected both monthly buckets to be recombined")
		assert.Equal(t, 2, payload.Metrics[0].BucketCount)

		require.NotEmpty(t, payload.Evidence, "Expected evidence snippets for the entity")
		for _, snippet := range payload.Evidence {
			assert.Equal(t, "skipton", snippet.EntityID)
		}

		assert.Contains(t, payload.Coverage.Sources, "trustpilot")
		assert.Equal(t, 1, pulse.Sessions.Turns(sessionID), "Expected successful turn to commit session context")
	})

	t.Run("Follow-up turn inherits entities from the previous turn", func(t *testing.T) {
		payload, err := pulse.ResolveTurn(ctx, sessionID, model.ParsedIntent{
			IsFollowUp: true,
			FocusAreas: []model.FocusArea{model.FocusAreaMortgages},
		})
		require.NoError(t, err, "Expected follow-up ResolveTurn to not return an error")

		assert.Equal(t, []string{"skipton"}, payload.Intent.PrimaryEntityIDs, "Expected entities to be carried over")
		assert.Equal(t, []model.FocusArea{model.FocusAreaMortgages}, payload.Intent.FocusAreas)

		inherited := false
		for _, note := range payload.Intent.Provenance {
			if note.Kind == model.ProvenanceInherited {
				inherited = true
			}
		}
		assert.True(t, inherited, "Expected an inherited provenance note on the follow-up turn")
		assert.Equal(t, 2, pulse.Sessions.Turns(sessionID))
	})

	t.Run("Sector question aggregates the whole population", func(t *testing.T) {
		payload, err := pulse.ResolveTurn(ctx, uuid.New(), model.ParsedIntent{
			PrimaryMentions: []string{"building societies"},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{model.PopulationEntityID}, payload.Intent.PrimaryEntityIDs)
		require.Len(t, payload.Metrics, 1)
		assert.Equal(t, model.PopulationEntityID, payload.Metrics[0].EntityID)
		assert.Equal(t, 230, payload.Metrics[0].ReviewCount, "Expected all tracked entities to contribute")
	})

	t.Run("Unknown mention yields an unresolved intent without evidence", func(t *testing.T) {
		payload, err := pulse.ResolveTurn(ctx, uuid.New(), model.ParsedIntent{
			PrimaryMentions: []string{"Barclays"},
		})
		require.NoError(t, err)

		assert.True(t, payload.Intent.Unresolved)
		assert.Empty(t, payload.Metrics)
		assert.Empty(t, payload.Evidence)
		assert.NotZero(t, payload.Coverage.CorpusStart, "Expected coverage to still report corpus bounds")
	})

	t.Run("Error when embedder not set", func(t *testing.T) {
		bare := initMemberPulse(t)
		bare.SetEmbedder(nil)

		_, err := bare.ResolveTurn(ctx, uuid.New(), model.ParsedIntent{
			PrimaryMentions: []string{"Skipton"},
		})
		require.Error(t, err, "Expected error when no embedder is configured")
		assert.Contains(t, err.Error(), "embedder not set")
	})
}

func TestAskRequiresParser(t *testing.T) {
	pulse := initMemberPulse(t)

	_, err := pulse.Ask(context.Background(), uuid.New(), "How do members feel about Skipton?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser not set")
}
