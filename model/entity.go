package model

// SizeBucket classifies a tracked organization into its peer group
type SizeBucket string

const (
	SizeBucketMega     SizeBucket = "mega"
	SizeBucketLarge    SizeBucket = "large"
	SizeBucketRegional SizeBucket = "regional"
	SizeBucketSmall    SizeBucket = "small"
)

// AliasType describes where an alias string comes from
type AliasType string

const (
	AliasTypeCanonical   AliasType = "canonical"
	AliasTypeShortName   AliasType = "short_name"
	AliasTypeTradingName AliasType = "trading_name"
	AliasTypeAcronym     AliasType = "acronym"
	AliasTypeMisspelling AliasType = "misspelling"
)

// PopulationEntityID is the reserved pseudo-entity covering every tracked
// organization. It is matched only by fixed sector-level phrases, never by
// fuzzy matching.
const PopulationEntityID = "all-tracked"

// Alias is one known name for an entity with a confidence weight in [0,1]
type Alias struct {
	Text       string    `json:"text" yaml:"text"`
	Type       AliasType `json:"alias_type" yaml:"type"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
}

// Entity is a tracked organization. Entities are created once per corpus
// snapshot and are read-only at query time.
type Entity struct {
	ID             string     `json:"id" yaml:"id"`
	CanonicalName  string     `json:"canonical_name" yaml:"canonical_name"`
	ReportingNames []string   `json:"reporting_names,omitempty" yaml:"reporting_names,omitempty"`
	SizeBucket     SizeBucket `json:"size_bucket" yaml:"size_bucket"`
	Aliases        []Alias    `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Metadata       Metadata   `json:"metadata,omitempty" yaml:"-"`
}

// AliasCandidate is one possible resolution of a mention to an entity
type AliasCandidate struct {
	EntityID   string    `json:"entity_id"`
	AliasType  AliasType `json:"alias_type"`
	Confidence float64   `json:"confidence"`
}
