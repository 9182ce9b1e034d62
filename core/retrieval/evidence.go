package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/memberpulse/memberpulse/model"
)

// focusAreaPhrases are the query wordings for each topical tag
var focusAreaPhrases = map[model.FocusArea]string{
	model.FocusAreaDigitalBanking:     "online banking and digital services",
	model.FocusAreaMobileApp:          "mobile app",
	model.FocusAreaBranches:           "branch access and branch closures",
	model.FocusAreaMortgages:          "mortgages",
	model.FocusAreaSavings:            "savings accounts and savings rates",
	model.FocusAreaCurrentAccounts:    "current accounts",
	model.FocusAreaCustomerService:    "customer service",
	model.FocusAreaComplaintsHandling: "complaints handling",
	model.FocusAreaFeesAndRates:       "fees and interest rates",
}

// questionTypePhrases steer the similarity search towards the kind of
// review content each question type needs
var questionTypePhrases = map[model.QuestionType]string{
	model.QuestionOverallSentiment: "overall member sentiment and satisfaction",
	model.QuestionComparison:       "experiences compared with other building societies",
	model.QuestionTrendOverTime:    "how member sentiment has changed over time",
	model.QuestionDriversOf:        "reasons members are satisfied or dissatisfied",
	model.QuestionExamplesOnly:     "member experiences and feedback",
	model.QuestionVolumeAndMix:     "what members write reviews about",
}

// RetrieveEvidence runs the similarity search for an intent and reduces the
// overfetched candidates to a deterministic, diversity-capped evidence set.
// Unresolved intents and empty timeframes yield no evidence.
func (e *Engine) RetrieveEvidence(ctx context.Context, intent *model.ResolvedIntent) ([]model.EvidenceSnippet, error) {
	if intent.Timeframe.Range.Empty || intent.Unresolved {
		return nil, nil
	}

	queryText := e.buildQueryText(intent)
	embedding, err := e.embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query text: %w", err)
	}

	filter := e.buildFilter(intent)
	overfetch := e.config.EvidenceLimit * e.config.EvidenceOverfetchFactor

	candidates, err := e.snippets.SelectSnippetsBySimilarity(ctx, embedding, overfetch, e.config.SimilarityThreshold, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rankCandidates(candidates)
	selected := e.diversify(candidates)

	for i := range selected {
		selected[i].DisplayText = truncateDisplayText(selected[i].DisplayText, e.config.SnippetDisplayMaxChars)
		selected[i].Embedding = nil
	}

	e.logger.Debug(
		"retrieved evidence",
		slog.Int("candidates", len(candidates)),
		slog.Int("selected", len(selected)),
		slog.String("query", queryText),
	)

	return selected, nil
}

// buildQueryText synthesizes the text embedded for the similarity search
// from the canonical names, focus areas, and answer shape of the intent
func (e *Engine) buildQueryText(intent *model.ResolvedIntent) string {
	var parts []string

	for _, id := range intent.AllEntityIDs() {
		parts = append(parts, e.registry.CanonicalName(id))
	}

	for _, focusArea := range intent.FocusAreas {
		if phrase, ok := focusAreaPhrases[focusArea]; ok {
			parts = append(parts, phrase)
		}
	}

	if phrase, ok := questionTypePhrases[intent.QuestionType]; ok {
		parts = append(parts, phrase)
	}

	switch intent.SentimentFocus {
	case model.SentimentFocusNegative:
		parts = append(parts, "complaints and negative experiences")
	case model.SentimentFocusPositive:
		parts = append(parts, "praise and positive experiences")
	}

	return strings.Join(parts, ", ")
}

// buildFilter maps the intent onto the store-level snippet filter
func (e *Engine) buildFilter(intent *model.ResolvedIntent) model.SnippetFilter {
	filter := model.SnippetFilter{
		Range: intent.Timeframe.Range,
	}

	entityIDs := intent.AllEntityIDs()
	sectorWide := false
	for _, id := range entityIDs {
		if id == model.PopulationEntityID {
			sectorWide = true
		}
	}
	if !sectorWide {
		filter.EntityIDs = entityIDs
	}

	switch intent.SentimentFocus {
	case model.SentimentFocusNegative:
		filter.SentimentLabels = model.NegativeSentimentLabels()
	case model.SentimentFocusPositive:
		filter.SentimentLabels = model.PositiveSentimentLabels()
	}

	// An overall-only question searches the whole index; a topical question
	// restricts to snippets tagged with at least one requested area
	topical := make([]model.FocusArea, 0, len(intent.FocusAreas))
	for _, focusArea := range intent.FocusAreas {
		if focusArea != model.FocusAreaOverall {
			topical = append(topical, focusArea)
		}
	}
	filter.FocusAreas = topical

	return filter
}

// rankCandidates orders by similarity, breaking ties by earlier review
// date and then lower id, so equal-similarity candidates always come back
// in the same order
func rankCandidates(candidates []*model.EvidenceSnippet) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if !candidates[i].ReviewDate.Equal(candidates[j].ReviewDate) {
			return candidates[i].ReviewDate.Before(candidates[j].ReviewDate)
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// diversify walks the ranked candidates selecting up to the evidence limit,
// skipping any candidate that would push an entity past the per-entity cap
// or a calendar month past the per-month cap. The caps hold unconditionally,
// so neither one loud organization nor one busy period can dominate the
// evidence shown, even if that leaves the list short of the limit.
func (e *Engine) diversify(candidates []*model.EvidenceSnippet) []model.EvidenceSnippet {
	limit := e.config.EvidenceLimit
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	perEntity := map[string]int{}
	perMonth := map[string]int{}

	var selected []model.EvidenceSnippet
	for _, candidate := range candidates {
		if len(selected) >= limit {
			break
		}

		month := candidate.ReviewDate.Format("2006-01")
		if perEntity[candidate.EntityID] >= e.config.EvidencePerEntityCap {
			continue
		}
		if perMonth[month] >= e.config.EvidencePerMonthCap {
			continue
		}

		perEntity[candidate.EntityID]++
		perMonth[month]++
		selected = append(selected, *candidate)
	}

	return selected
}

// truncateDisplayText shortens a snippet for display without splitting a
// multi-byte character
func truncateDisplayText(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	return strings.TrimRight(string(runes[:maxChars]), " ") + "…"
}
