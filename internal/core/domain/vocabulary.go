package domain

// Alias is an alternative surface form of a vocabulary term, weighted by how
// reliably it identifies the concept.
type Alias struct {
	Text   string  `json:"text" yaml:"text"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// VocabularyTerm is one concept in the controlled vocabulary.
type VocabularyTerm struct {
	ConceptID string   `json:"concept_id" yaml:"concept_id"`
	Term      string   `json:"term" yaml:"term"`
	Aliases   []Alias  `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Synonyms  []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// AliasMatch pairs a matched alias with its owning term.
type AliasMatch struct {
	Term  VocabularyTerm `json:"term"`
	Alias Alias          `json:"alias"`
}

// MatchedBy values recorded on a CanonicalEntity.
const (
	MatchExact   = "exact"
	MatchAlias   = "alias"
	MatchSynonym = "synonym"
	MatchPartial = "partial"
)
