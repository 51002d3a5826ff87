package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type TrustTier string

const (
	TrustHigh   TrustTier = "high"
	TrustMedium TrustTier = "medium"
	TrustLow    TrustTier = "low"
)

// Order returns the tie-break rank of a tier: higher is more trusted.
func (t TrustTier) Order() int {
	switch t {
	case TrustHigh:
		return 3
	case TrustMedium:
		return 2
	case TrustLow:
		return 1
	default:
		return 0
	}
}

// Source records candidate provenance. Written once at creation.
type Source struct {
	Provider string    `json:"provider"`
	Ref      string    `json:"ref,omitempty"`
	Tier     TrustTier `json:"tier"`
}

// Signals is the mutable aggregate bag attached to a candidate. Score is the
// provider's native relevance on a 0-1 scale; Extra carries provider-specific
// metadata as a narrow string map rather than an open dynamic payload.
type Signals struct {
	Score float64           `json:"score"`
	Extra map[string]string `json:"extra,omitempty"`
}

// CanonicalEntity links a candidate to a controlled-vocabulary concept.
type CanonicalEntity struct {
	ConceptID     string  `json:"concept_id"`
	PreferredTerm string  `json:"preferred_term"`
	Confidence    float64 `json:"confidence"`
	MatchedBy     string  `json:"matched_by"`
}

// Candidate is the unified shape every provider result is normalized into.
// URL, CanonicalURL and Source are fixed at creation; only Signals, Canonical
// and the rank fields are filled in by later pipeline stages.
type Candidate struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	ContentType string     `json:"content_type,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	URL             string `json:"url"`
	CanonicalURL    string `json:"canonical_url"`
	CanonicalDomain string `json:"canonical_domain"`

	Source  Source  `json:"source"`
	Signals Signals `json:"signals"`

	Canonical *CanonicalEntity `json:"canonical,omitempty"`

	Rank        int     `json:"rank,omitempty"`
	RankScore   float64 `json:"rank_score,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
}

// CandidateInput is the raw material a provider hands to NewCandidate.
type CandidateInput struct {
	ID          string
	Title       string
	URL         string
	Snippet     string
	ContentType string
	PublishedAt *time.Time
	Provider    string
	Ref         string
	Tier        TrustTier
	Score       float64
	Extra       map[string]string
}

// NewCandidate validates required fields, canonicalizes the URL and derives a
// deterministic id when the provider has no native one, so identical
// underlying items always normalize to the same candidate id.
func NewCandidate(in CandidateInput) (Candidate, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Candidate{}, fmt.Errorf("%w: title is required", ErrInvalidCandidate)
	}
	if strings.TrimSpace(in.URL) == "" {
		return Candidate{}, fmt.Errorf("%w: url is required", ErrInvalidCandidate)
	}
	if strings.TrimSpace(in.Snippet) == "" {
		return Candidate{}, fmt.Errorf("%w: snippet is required", ErrInvalidCandidate)
	}
	if strings.TrimSpace(in.Provider) == "" {
		return Candidate{}, fmt.Errorf("%w: source provider is required", ErrInvalidCandidate)
	}
	if in.Score < 0 || in.Score > 1 {
		return Candidate{}, fmt.Errorf("%w: score %v out of range [0,1]", ErrInvalidCandidate, in.Score)
	}

	canonicalURL, canonicalDomain, err := CanonicalizeURL(in.URL)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}

	tier := in.Tier
	if tier.Order() == 0 {
		tier = TrustLow
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = deriveCandidateID(in.Provider, in.Ref, title)
	}

	return Candidate{
		ID:              id,
		Title:           title,
		Snippet:         in.Snippet,
		ContentType:     in.ContentType,
		PublishedAt:     in.PublishedAt,
		URL:             in.URL,
		CanonicalURL:    canonicalURL,
		CanonicalDomain: canonicalDomain,
		Source: Source{
			Provider: in.Provider,
			Ref:      in.Ref,
			Tier:     tier,
		},
		Signals: Signals{
			Score: in.Score,
			Extra: in.Extra,
		},
	}, nil
}

func deriveCandidateID(provider, ref, title string) string {
	sum := sha256.Sum256([]byte(provider + "|" + ref + "|" + title))
	return hex.EncodeToString(sum[:16])
}
