package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
	"github.com/kirillkom/federated-retrieval/internal/core/ports"
)

const (
	exactMatchConfidence   = 0.95
	aliasBaseConfidence    = 0.8
	aliasWeightFactor      = 0.1
	aliasMaxConfidence     = 0.9
	synonymMatchConfidence = 0.8
	partialMatchConfidence = 0.6
)

// EntityResolver resolves candidate titles against the controlled vocabulary
// in strict tier order: exact term, alias, synonym, then substring. The first
// matching tier wins.
type EntityResolver struct {
	vocab ports.VocabularyStore
}

func NewEntityResolver(vocab ports.VocabularyStore) *EntityResolver {
	return &EntityResolver{vocab: vocab}
}

// Resolve returns nil (no error) when nothing in the vocabulary matches.
// Empty or whitespace-only input short-circuits without querying the store.
func (r *EntityResolver) Resolve(ctx context.Context, input string) (*domain.CanonicalEntity, error) {
	if r == nil || r.vocab == nil {
		return nil, nil
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	term, err := r.vocab.LookupTerm(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("lookup term: %w", err)
	}
	if term != nil {
		return entityFor(term, exactMatchConfidence, domain.MatchExact), nil
	}

	aliasMatches, err := r.vocab.LookupAlias(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("lookup alias: %w", err)
	}
	if len(aliasMatches) > 0 {
		best := aliasMatches[0]
		for _, m := range aliasMatches[1:] {
			if m.Alias.Weight > best.Alias.Weight {
				best = m
			}
		}
		confidence := aliasBaseConfidence + aliasWeightFactor*best.Alias.Weight
		if confidence > aliasMaxConfidence {
			confidence = aliasMaxConfidence
		}
		return entityFor(&best.Term, confidence, domain.MatchAlias), nil
	}

	term, err = r.vocab.LookupSynonym(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("lookup synonym: %w", err)
	}
	if term != nil {
		return entityFor(term, synonymMatchConfidence, domain.MatchSynonym), nil
	}

	containing, err := r.vocab.SearchContaining(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("search containing: %w", err)
	}
	if len(containing) > 0 {
		// A shorter containing term is considered more specific.
		best := containing[0]
		for _, t := range containing[1:] {
			if len(t.Term) < len(best.Term) {
				best = t
			}
		}
		return entityFor(&best, partialMatchConfidence, domain.MatchPartial), nil
	}

	return nil, nil
}

func entityFor(term *domain.VocabularyTerm, confidence float64, matchedBy string) *domain.CanonicalEntity {
	return &domain.CanonicalEntity{
		ConceptID:     term.ConceptID,
		PreferredTerm: term.Term,
		Confidence:    confidence,
		MatchedBy:     matchedBy,
	}
}
