// Package resolve turns the partially populated parse record of a turn into
// a complete, unambiguous analytical intent: mentions become entity ids,
// temporal expressions become date ranges, and missing fields are filled
// from session context or documented defaults.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/memberpulse/memberpulse/model"
	"github.com/memberpulse/memberpulse/registry"
)

// populationPhrases are the fixed sector-level phrases that resolve to the
// reserved population pseudo-entity. Matching is exact on the normalized
// phrase; the pseudo-entity is never reachable through fuzzy matching.
var populationPhrases = []string{
	"building societies",
	"all building societies",
	"uk building societies",
	"all societies",
	"the sector",
	"the whole sector",
	"the market",
	"all tracked societies",
}

// AliasResolver maps free-text entity mentions to ranked candidate lists
// against the alias index of one corpus snapshot.
type AliasResolver struct {
	registry   *registry.Registry
	config     model.QueryConfig
	population map[string]bool
}

// Resolution is the outcome for a single mention. Candidates are ranked
// best first; an empty list means the mention could not be resolved.
type Resolution struct {
	Mention    string                 `json:"mention"`
	Candidates []model.AliasCandidate `json:"candidates,omitempty"`
	Ambiguous  bool                   `json:"ambiguous,omitempty"`
	Notes      []model.ProvenanceNote `json:"notes,omitempty"`
}

// Best returns the top candidate, if any
func (r *Resolution) Best() (model.AliasCandidate, bool) {
	if len(r.Candidates) == 0 {
		return model.AliasCandidate{}, false
	}
	return r.Candidates[0], true
}

// NewAliasResolver creates a resolver over the given registry snapshot
func NewAliasResolver(reg *registry.Registry, config model.QueryConfig) *AliasResolver {
	population := make(map[string]bool, len(populationPhrases))
	for _, phrase := range populationPhrases {
		population[registry.Normalize(phrase)] = true
	}

	return &AliasResolver{
		registry:   reg,
		config:     config,
		population: population,
	}
}

// Resolve maps one raw mention to a ranked candidate list. Resolution order:
// exact normalized match at confidence 1.0, exact match against any
// lower-confidence alias, then approximate matching against all alias keys.
// Ambiguity and interpretation assumptions are reported as provenance notes
// rather than silently swallowed.
func (r *AliasResolver) Resolve(mention string) Resolution {
	resolution := Resolution{Mention: mention}
	normalized := registry.Normalize(mention)

	if normalized == "" {
		resolution.Notes = append(resolution.Notes, model.ProvenanceNote{
			Kind: model.ProvenanceUnresolvedEntity,
			Note: fmt.Sprintf("could not resolve mention %q to a tracked organization", mention),
		})
		return resolution
	}

	if r.population[normalized] {
		resolution.Candidates = []model.AliasCandidate{{
			EntityID:   model.PopulationEntityID,
			AliasType:  model.AliasTypeCanonical,
			Confidence: 1.0,
		}}
		return resolution
	}

	candidates := r.exactCandidates(normalized)
	if len(candidates) == 0 {
		candidates = r.fuzzyCandidates(normalized)
	}

	r.rank(candidates)

	if len(candidates) == 0 {
		resolution.Notes = append(resolution.Notes, model.ProvenanceNote{
			Kind: model.ProvenanceUnresolvedEntity,
			Note: fmt.Sprintf("could not resolve mention %q to a tracked organization", mention),
		})
		return resolution
	}

	resolution.Candidates = candidates

	if len(candidates) >= 2 && candidates[0].Confidence-candidates[1].Confidence < r.config.AliasAmbiguityMargin {
		resolution.Ambiguous = true
		resolution.Notes = append(resolution.Notes, model.ProvenanceNote{
			Kind: model.ProvenanceAmbiguousEntity,
			Note: fmt.Sprintf(
				"mention %q is ambiguous between %v and %v; proceeding with %v",
				mention,
				r.registry.CanonicalName(candidates[0].EntityID),
				r.registry.CanonicalName(candidates[1].EntityID),
				r.registry.CanonicalName(candidates[0].EntityID),
			),
		})
	} else if candidates[0].Confidence < 1.0 {
		resolution.Notes = append(resolution.Notes, model.ProvenanceNote{
			Kind: model.ProvenanceAssumption,
			Note: fmt.Sprintf(
				"interpreted mention %q as %v at confidence %.2f",
				mention,
				r.registry.CanonicalName(candidates[0].EntityID),
				candidates[0].Confidence,
			),
		})
	}

	return resolution
}

// exactCandidates returns the index entries for an exact normalized match,
// keeping the best entry per entity
func (r *AliasResolver) exactCandidates(normalized string) []model.AliasCandidate {
	entries := r.registry.Lookup(normalized)
	if len(entries) == 0 {
		return nil
	}

	best := make(map[string]model.AliasCandidate, len(entries))
	for _, entry := range entries {
		if current, ok := best[entry.EntityID]; !ok || entry.Confidence > current.Confidence {
			best[entry.EntityID] = entry
		}
	}

	candidates := make([]model.AliasCandidate, 0, len(best))
	for _, candidate := range best {
		candidates = append(candidates, candidate)
	}
	return candidates
}

// fuzzyCandidates scores the mention against every alias key using the
// better of token-overlap and bounded edit distance, scaled by the alias
// confidence. Candidates below the acceptance threshold are dropped.
func (r *AliasResolver) fuzzyCandidates(normalized string) []model.AliasCandidate {
	best := make(map[string]model.AliasCandidate)

	for _, key := range r.registry.AliasKeys() {
		score := matchScore(normalized, key, r.config.AliasMaxEditDistance)
		if score <= 0 {
			continue
		}

		for _, entry := range r.registry.Lookup(key) {
			confidence := score * entry.Confidence
			if confidence < r.config.AliasConfidenceThreshold {
				continue
			}
			candidate := model.AliasCandidate{
				EntityID:   entry.EntityID,
				AliasType:  entry.AliasType,
				Confidence: confidence,
			}
			if current, ok := best[entry.EntityID]; !ok || candidate.Confidence > current.Confidence {
				best[entry.EntityID] = candidate
			}
		}
	}

	candidates := make([]model.AliasCandidate, 0, len(best))
	for _, candidate := range best {
		candidates = append(candidates, candidate)
	}
	return candidates
}

// rank orders candidates by confidence, then by how well known the entity
// is (alias-index entry count), then by id for full determinism
func (r *AliasResolver) rank(candidates []model.AliasCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		countI := r.registry.AliasEntryCount(candidates[i].EntityID)
		countJ := r.registry.AliasEntryCount(candidates[j].EntityID)
		if countI != countJ {
			return countI > countJ
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})
}

// matchScore returns a closeness score in [0,1] between a normalized
// mention and a normalized alias key
func matchScore(mention, key string, maxEditDistance int) float64 {
	if mention == key {
		return 1.0
	}

	overlap := tokenOverlap(mention, key)

	distance := editDistance(mention, key)
	editScore := 0.0
	longest := len(mention)
	if len(key) > longest {
		longest = len(key)
	}
	if distance <= maxEditDistance && longest > 0 {
		editScore = 1.0 - float64(distance)/float64(longest)
	}

	if overlap > editScore {
		return overlap
	}
	return editScore
}

// tokenOverlap is the Jaccard similarity of the token sets
func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, token := range tokensA {
		setA[token] = true
	}

	union := make(map[string]bool, len(tokensA)+len(tokensB))
	for token := range setA {
		union[token] = true
	}

	intersection := 0
	for _, token := range tokensB {
		if setA[token] {
			intersection++
			setA[token] = false
		}
		union[token] = true
	}

	return float64(intersection) / float64(len(union))
}

// editDistance is the Levenshtein distance between two strings
func editDistance(a, b string) int {
	runesA := []rune(a)
	runesB := []rune(b)

	previous := make([]int, len(runesB)+1)
	current := make([]int, len(runesB)+1)

	for j := 0; j <= len(runesB); j++ {
		previous[j] = j
	}

	for i := 1; i <= len(runesA); i++ {
		current[0] = i
		for j := 1; j <= len(runesB); j++ {
			cost := 1
			if runesA[i-1] == runesB[j-1] {
				cost = 0
			}
			current[j] = min(previous[j]+1, min(current[j-1]+1, previous[j-1]+cost))
		}
		previous, current = current, previous
	}

	return previous[len(runesB)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
