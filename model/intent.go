package model

// FocusArea is a tag from the closed topical vocabulary
type FocusArea string

const (
	FocusAreaOverall            FocusArea = "overall"
	FocusAreaDigitalBanking     FocusArea = "digital_banking"
	FocusAreaMobileApp          FocusArea = "mobile_app"
	FocusAreaBranches           FocusArea = "branches"
	FocusAreaMortgages          FocusArea = "mortgages"
	FocusAreaSavings            FocusArea = "savings"
	FocusAreaCurrentAccounts    FocusArea = "current_accounts"
	FocusAreaCustomerService    FocusArea = "customer_service"
	FocusAreaComplaintsHandling FocusArea = "complaints_handling"
	FocusAreaFeesAndRates       FocusArea = "fees_and_rates"
)

// FocusAreas lists the full controlled vocabulary
func FocusAreas() []FocusArea {
	return []FocusArea{
		FocusAreaOverall,
		FocusAreaDigitalBanking,
		FocusAreaMobileApp,
		FocusAreaBranches,
		FocusAreaMortgages,
		FocusAreaSavings,
		FocusAreaCurrentAccounts,
		FocusAreaCustomerService,
		FocusAreaComplaintsHandling,
		FocusAreaFeesAndRates,
	}
}

// KnownFocusArea reports whether f belongs to the controlled vocabulary
func KnownFocusArea(f FocusArea) bool {
	for _, known := range FocusAreas() {
		if f == known {
			return true
		}
	}
	return false
}

// QuestionType classifies what kind of answer the question wants
type QuestionType string

const (
	QuestionOverallSentiment QuestionType = "overall_sentiment"
	QuestionComparison       QuestionType = "comparison"
	QuestionTrendOverTime    QuestionType = "trend_over_time"
	QuestionDriversOf        QuestionType = "drivers_of_sentiment"
	QuestionExamplesOnly     QuestionType = "examples_only"
	QuestionVolumeAndMix     QuestionType = "volume_and_mix"
)

// SentimentFocus narrows evidence to one side of the sentiment scale
type SentimentFocus string

const (
	SentimentFocusAll      SentimentFocus = "all"
	SentimentFocusNegative SentimentFocus = "mostly_negative"
	SentimentFocusPositive SentimentFocus = "mostly_positive"
)

// DetailLevel controls how much detail downstream generation should produce
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailStandard DetailLevel = "standard"
	DetailBoard    DetailLevel = "board_level_summary"
)

// ParsedIntent is the partially populated record supplied by the upstream
// parsing collaborator. Every field is optional: nil means "not mentioned
// in this turn" and is distinct from an explicit empty value.
type ParsedIntent struct {
	IsFollowUp         bool                 `json:"is_follow_up"`
	PrimaryMentions    []string             `json:"primary_mentions,omitempty"`
	ComparisonMentions []string             `json:"comparison_mentions,omitempty"`
	Timeframe          *TimeframeExpression `json:"timeframe,omitempty"`
	FocusAreas         []FocusArea          `json:"focus_areas,omitempty"`
	QuestionType       *QuestionType        `json:"question_type,omitempty"`
	SentimentFocus     *SentimentFocus      `json:"sentiment_focus,omitempty"`
	DetailLevel        *DetailLevel         `json:"detail_level,omitempty"`
}

// ProvenanceKind classifies a provenance note
type ProvenanceKind string

const (
	ProvenanceAssumption       ProvenanceKind = "assumption"
	ProvenanceAmbiguousEntity  ProvenanceKind = "ambiguous_entity"
	ProvenanceUnresolvedEntity ProvenanceKind = "unresolved_entity"
	ProvenanceEmptyTimeframe   ProvenanceKind = "empty_timeframe"
	ProvenanceInherited        ProvenanceKind = "inherited"
)

// ProvenanceNote records an assumption or ambiguity made during resolution.
// Notes are carried through to the grounding payload so downstream
// generation can tell the user what was assumed.
type ProvenanceNote struct {
	Kind ProvenanceKind `json:"kind"`
	Note string         `json:"note"`
}

// ResolvedIntent is a fully resolved, unambiguous analytical intent for one
// turn. Intents are immutable: each turn produces a new one, superseding
// (never mutating) the previous turn's intent held in the session context.
type ResolvedIntent struct {
	PrimaryEntityIDs    []string          `json:"primary_entity_ids"`
	ComparisonEntityIDs []string          `json:"comparison_entity_ids,omitempty"`
	Timeframe           ResolvedTimeframe `json:"timeframe"`
	FocusAreas          []FocusArea       `json:"focus_areas"`
	QuestionType        QuestionType      `json:"question_type"`
	SentimentFocus      SentimentFocus    `json:"sentiment_focus"`
	DetailLevel         DetailLevel       `json:"detail_level"`
	Unresolved          bool              `json:"unresolved,omitempty"`
	Provenance          []ProvenanceNote  `json:"provenance,omitempty"`
}

// AllEntityIDs returns primary followed by comparison entity ids
func (i *ResolvedIntent) AllEntityIDs() []string {
	ids := make([]string, 0, len(i.PrimaryEntityIDs)+len(i.ComparisonEntityIDs))
	ids = append(ids, i.PrimaryEntityIDs...)
	ids = append(ids, i.ComparisonEntityIDs...)
	return ids
}

// HasEntityID reports whether id is in the primary or comparison set
func (i *ResolvedIntent) HasEntityID(id string) bool {
	for _, known := range i.PrimaryEntityIDs {
		if known == id {
			return true
		}
	}
	for _, known := range i.ComparisonEntityIDs {
		if known == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so that a stored intent can be handed out
// without sharing slice backing arrays with the caller
func (i *ResolvedIntent) Clone() *ResolvedIntent {
	if i == nil {
		return nil
	}
	clone := *i
	clone.PrimaryEntityIDs = append([]string(nil), i.PrimaryEntityIDs...)
	clone.ComparisonEntityIDs = append([]string(nil), i.ComparisonEntityIDs...)
	clone.FocusAreas = append([]FocusArea(nil), i.FocusAreas...)
	clone.Provenance = append([]ProvenanceNote(nil), i.Provenance...)
	return &clone
}
