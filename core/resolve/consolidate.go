package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/memberpulse/memberpulse/model"
)

// Consolidator merges a parsed turn with the prior intent of its session
// into one fully resolved intent. A fresh turn is resolved from defaults; a
// follow-up inherits every field the new turn does not override.
type Consolidator struct {
	Aliases    *AliasResolver
	Timeframes *TimeframeResolver
	Logger     *slog.Logger
}

// NewConsolidator creates a consolidator from its two resolvers
func NewConsolidator(aliases *AliasResolver, timeframes *TimeframeResolver, logger *slog.Logger) *Consolidator {
	return &Consolidator{
		Aliases:    aliases,
		Timeframes: timeframes,
		Logger:     logger,
	}
}

// Consolidate resolves one turn. The prior intent may be nil for a new
// session. The result is always a freshly allocated intent: prior is never
// mutated, and its provenance notes are not carried over, so notes always
// describe the current turn's resolution only.
func (c *Consolidator) Consolidate(parsed model.ParsedIntent, prior *model.ResolvedIntent) *model.ResolvedIntent {
	intent := &model.ResolvedIntent{}

	followUp := parsed.IsFollowUp && prior != nil
	if parsed.IsFollowUp && prior == nil {
		intent.Provenance = append(intent.Provenance, model.ProvenanceNote{
			Kind: model.ProvenanceAssumption,
			Note: "no previous question in this session to follow up on, treating this as a new question",
		})
	}

	var inherited []string

	c.resolveEntities(parsed, prior, followUp, intent, &inherited)
	c.resolveTimeframe(parsed, prior, followUp, intent, &inherited)
	c.resolveFocusAreas(parsed, prior, followUp, intent, &inherited)
	c.resolveAnswerShape(parsed, prior, followUp, intent, &inherited)

	if len(inherited) > 0 {
		intent.Provenance = append(intent.Provenance, model.ProvenanceNote{
			Kind: model.ProvenanceInherited,
			Note: fmt.Sprintf("carried over from the previous question: %v", strings.Join(inherited, ", ")),
		})
	}

	if c.Logger != nil {
		c.Logger.Debug(
			"consolidated intent",
			slog.Any("primary", intent.PrimaryEntityIDs),
			slog.Any("comparison", intent.ComparisonEntityIDs),
			slog.String("timeframe", string(intent.Timeframe.Kind)),
			slog.Bool("followUp", followUp),
			slog.Bool("unresolved", intent.Unresolved),
		)
	}

	return intent
}

// resolveEntities fills the primary and comparison entity sets. The two
// sets stay disjoint: an entity already primary is dropped from comparison.
func (c *Consolidator) resolveEntities(parsed model.ParsedIntent, prior *model.ResolvedIntent, followUp bool, intent *model.ResolvedIntent, inherited *[]string) {
	switch {
	case len(parsed.PrimaryMentions) > 0:
		intent.PrimaryEntityIDs = c.resolveMentions(parsed.PrimaryMentions, intent)
		if len(intent.PrimaryEntityIDs) == 0 {
			intent.Unresolved = true
		}
	case followUp:
		intent.PrimaryEntityIDs = append([]string(nil), prior.PrimaryEntityIDs...)
		*inherited = append(*inherited, "the organizations in question")
	default:
		intent.PrimaryEntityIDs = []string{model.PopulationEntityID}
		intent.Provenance = append(intent.Provenance, model.ProvenanceNote{
			Kind: model.ProvenanceAssumption,
			Note: "no specific organization mentioned, answering for all tracked building societies",
		})
	}

	// The comparison set is overridden or inherited independently of the
	// primary set
	switch {
	case len(parsed.ComparisonMentions) > 0:
		intent.ComparisonEntityIDs = c.resolveMentions(parsed.ComparisonMentions, intent)
	case followUp:
		intent.ComparisonEntityIDs = append([]string(nil), prior.ComparisonEntityIDs...)
		if len(intent.ComparisonEntityIDs) > 0 && len(parsed.PrimaryMentions) > 0 {
			*inherited = append(*inherited, "the organizations compared against")
		}
	}

	c.dropOverlap(intent)
}

// resolveMentions resolves a mention list to a deduplicated id list in
// mention order, appending the notes each resolution produced
func (c *Consolidator) resolveMentions(mentions []string, intent *model.ResolvedIntent) []string {
	var ids []string
	seen := map[string]bool{}

	for _, mention := range mentions {
		resolution := c.Aliases.Resolve(mention)
		intent.Provenance = append(intent.Provenance, resolution.Notes...)

		best, ok := resolution.Best()
		if !ok || seen[best.EntityID] {
			continue
		}
		seen[best.EntityID] = true
		ids = append(ids, best.EntityID)
	}

	return ids
}

// dropOverlap removes primary ids from the comparison set
func (c *Consolidator) dropOverlap(intent *model.ResolvedIntent) {
	if len(intent.ComparisonEntityIDs) == 0 {
		return
	}

	kept := intent.ComparisonEntityIDs[:0]
	for _, id := range intent.ComparisonEntityIDs {
		if !containsString(intent.PrimaryEntityIDs, id) {
			kept = append(kept, id)
		}
	}
	intent.ComparisonEntityIDs = kept
}

func (c *Consolidator) resolveTimeframe(parsed model.ParsedIntent, prior *model.ResolvedIntent, followUp bool, intent *model.ResolvedIntent, inherited *[]string) {
	if parsed.Timeframe == nil && followUp {
		intent.Timeframe = prior.Timeframe
		*inherited = append(*inherited, "the time period")
		return
	}

	if parsed.Timeframe == nil {
		resolved, notes := c.Timeframes.Resolve(nil)
		intent.Timeframe = resolved
		intent.Provenance = append(intent.Provenance, model.ProvenanceNote{
			Kind: model.ProvenanceAssumption,
			Note: "no time period given, using all available data",
		})
		intent.Provenance = append(intent.Provenance, notes...)
		return
	}

	resolved, notes := c.Timeframes.Resolve(parsed.Timeframe)
	intent.Timeframe = resolved
	intent.Provenance = append(intent.Provenance, notes...)
}

func (c *Consolidator) resolveFocusAreas(parsed model.ParsedIntent, prior *model.ResolvedIntent, followUp bool, intent *model.ResolvedIntent, inherited *[]string) {
	if len(parsed.FocusAreas) == 0 && followUp {
		intent.FocusAreas = append([]model.FocusArea(nil), prior.FocusAreas...)
		*inherited = append(*inherited, "the aspects in focus")
		return
	}

	seen := map[model.FocusArea]bool{}
	for _, area := range parsed.FocusAreas {
		if !model.KnownFocusArea(area) {
			intent.Provenance = append(intent.Provenance, model.ProvenanceNote{
				Kind: model.ProvenanceAssumption,
				Note: fmt.Sprintf("ignored unrecognized aspect %q", area),
			})
			continue
		}
		if seen[area] {
			continue
		}
		seen[area] = true
		intent.FocusAreas = append(intent.FocusAreas, area)
	}

	if len(intent.FocusAreas) == 0 {
		intent.FocusAreas = []model.FocusArea{model.FocusAreaOverall}
	}
}

func (c *Consolidator) resolveAnswerShape(parsed model.ParsedIntent, prior *model.ResolvedIntent, followUp bool, intent *model.ResolvedIntent, inherited *[]string) {
	switch {
	case parsed.QuestionType != nil:
		intent.QuestionType = *parsed.QuestionType
	case followUp:
		intent.QuestionType = prior.QuestionType
		*inherited = append(*inherited, "the type of question")
	case len(intent.ComparisonEntityIDs) > 0:
		intent.QuestionType = model.QuestionComparison
	default:
		intent.QuestionType = model.QuestionOverallSentiment
	}

	switch {
	case parsed.SentimentFocus != nil:
		intent.SentimentFocus = *parsed.SentimentFocus
	case followUp:
		intent.SentimentFocus = prior.SentimentFocus
	default:
		intent.SentimentFocus = model.SentimentFocusAll
	}

	switch {
	case parsed.DetailLevel != nil:
		intent.DetailLevel = *parsed.DetailLevel
	case followUp:
		intent.DetailLevel = prior.DetailLevel
	default:
		intent.DetailLevel = model.DetailStandard
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
