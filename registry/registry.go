// Package registry holds the immutable set of tracked organizations and the
// normalized alias index built from them. A registry is built once per corpus
// snapshot and is read-only afterwards; a corpus rebuild replaces the whole
// structure rather than mutating it in place.
package registry

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
	"gopkg.in/yaml.v3"
)

//go:embed societies.yaml
var defaultSocietiesYAML []byte

// suffixTokens are organizational-form tokens stripped during normalization
var suffixTokens = map[string]bool{
	"the":      true,
	"building": true,
	"society":  true,
	"bs":       true,
	"ltd":      true,
	"limited":  true,
	"plc":      true,
}

// registryFile is the on-disk YAML shape of a corpus snapshot
type registryFile struct {
	Version   string         `yaml:"version"`
	Societies []model.Entity `yaml:"societies"`
}

// Registry is the immutable entity and alias lookup table for one snapshot
type Registry struct {
	version    string
	entities   []model.Entity
	byID       map[string]*model.Entity
	aliasIndex map[string][]model.AliasCandidate
	aliasKeys  []string
	aliasCount map[string]int
}

// New builds a registry from a list of entities. Every entity gets an alias
// equal to its canonical name at confidence 1.0, added here when the input
// doesn't carry it explicitly.
func New(entities []model.Entity) (*Registry, error) {
	r := &Registry{
		entities:   make([]model.Entity, 0, len(entities)),
		byID:       make(map[string]*model.Entity, len(entities)),
		aliasIndex: make(map[string][]model.AliasCandidate),
		aliasCount: make(map[string]int),
	}

	for _, entity := range entities {
		if entity.ID == "" || entity.CanonicalName == "" {
			return nil, helper.NewError("registry validation", fmt.Errorf("entity with empty id or canonical name"))
		}
		if entity.ID == model.PopulationEntityID {
			return nil, helper.NewError("registry validation", fmt.Errorf("entity id %q is reserved", model.PopulationEntityID))
		}
		if _, exists := r.byID[entity.ID]; exists {
			return nil, helper.NewError("registry validation", fmt.Errorf("duplicate entity id %q", entity.ID))
		}

		hasCanonical := false
		for _, alias := range entity.Aliases {
			if alias.Confidence < 0 || alias.Confidence > 1 {
				return nil, helper.NewError("registry validation", fmt.Errorf("entity %q alias %q confidence %v out of [0,1]", entity.ID, alias.Text, alias.Confidence))
			}
			if Normalize(alias.Text) == Normalize(entity.CanonicalName) && alias.Confidence == 1.0 {
				hasCanonical = true
			}
		}
		if !hasCanonical {
			entity.Aliases = append(entity.Aliases, model.Alias{
				Text:       entity.CanonicalName,
				Type:       model.AliasTypeCanonical,
				Confidence: 1.0,
			})
		}

		r.entities = append(r.entities, entity)
	}

	for i := range r.entities {
		entity := &r.entities[i]
		r.byID[entity.ID] = entity

		for _, alias := range entity.Aliases {
			key := Normalize(alias.Text)
			if key == "" {
				continue
			}
			r.aliasIndex[key] = append(r.aliasIndex[key], model.AliasCandidate{
				EntityID:   entity.ID,
				AliasType:  alias.Type,
				Confidence: alias.Confidence,
			})
			r.aliasCount[entity.ID]++
		}
	}

	r.aliasKeys = make([]string, 0, len(r.aliasIndex))
	for key := range r.aliasIndex {
		r.aliasKeys = append(r.aliasKeys, key)
	}
	sort.Strings(r.aliasKeys)

	return r, nil
}

// Load builds a registry from YAML snapshot data
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, helper.NewError("unmarshal registry yaml", err)
	}

	r, err := New(file.Societies)
	if err != nil {
		return nil, err
	}
	r.version = file.Version

	return r, nil
}

// LoadDefault builds a registry from the embedded snapshot
func LoadDefault() (*Registry, error) {
	return Load(defaultSocietiesYAML)
}

// Version returns the snapshot version string
func (r *Registry) Version() string {
	return r.version
}

// Entity returns the entity with the given id
func (r *Registry) Entity(id string) (*model.Entity, bool) {
	entity, ok := r.byID[id]
	return entity, ok
}

// Entities returns all entities in snapshot order
func (r *Registry) Entities() []model.Entity {
	return r.entities
}

// EntityIDs returns all entity ids in snapshot order
func (r *Registry) EntityIDs() []string {
	ids := make([]string, len(r.entities))
	for i, entity := range r.entities {
		ids[i] = entity.ID
	}
	return ids
}

// CanonicalName returns the display name for an entity id, including the
// reserved population pseudo-entity. Unknown ids return the id itself.
func (r *Registry) CanonicalName(id string) string {
	if id == model.PopulationEntityID {
		return "all tracked building societies"
	}
	if entity, ok := r.byID[id]; ok {
		return entity.CanonicalName
	}
	return id
}

// PeerGroup returns the ids of all entities sharing the given size bucket
func (r *Registry) PeerGroup(bucket model.SizeBucket) []string {
	var ids []string
	for _, entity := range r.entities {
		if entity.SizeBucket == bucket {
			ids = append(ids, entity.ID)
		}
	}
	return ids
}

// Lookup returns the candidates for a normalized alias key, or nil
func (r *Registry) Lookup(normalized string) []model.AliasCandidate {
	return r.aliasIndex[normalized]
}

// AliasKeys returns all normalized alias keys in sorted order
func (r *Registry) AliasKeys() []string {
	return r.aliasKeys
}

// AliasEntryCount returns how many alias-index entries an entity has. More
// entries means the entity is better known, which is used as a tie-break
// during resolution.
func (r *Registry) AliasEntryCount(entityID string) int {
	return r.aliasCount[entityID]
}

// Normalize lowercases a mention, strips punctuation, and drops common
// organizational-form suffix tokens so that "The Skipton Building Society"
// and "skipton" share an index key.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '\'' || r == '&' || r == '/':
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if suffixTokens[token] {
			continue
		}
		kept = append(kept, token)
	}

	// A mention made entirely of suffix tokens keeps them, so that "the
	// society" doesn't normalize to nothing
	if len(kept) == 0 {
		return strings.Join(tokens, " ")
	}

	return strings.Join(kept, " ")
}
