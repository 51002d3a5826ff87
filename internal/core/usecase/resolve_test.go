package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

type fakeVocabulary struct {
	term       *domain.VocabularyTerm
	aliases    []domain.AliasMatch
	synonym    *domain.VocabularyTerm
	containing []domain.VocabularyTerm

	err   error
	calls int
}

func (f *fakeVocabulary) LookupTerm(context.Context, string) (*domain.VocabularyTerm, error) {
	f.calls++
	return f.term, f.err
}

func (f *fakeVocabulary) LookupAlias(context.Context, string) ([]domain.AliasMatch, error) {
	f.calls++
	return f.aliases, f.err
}

func (f *fakeVocabulary) LookupSynonym(context.Context, string) (*domain.VocabularyTerm, error) {
	f.calls++
	return f.synonym, f.err
}

func (f *fakeVocabulary) SearchContaining(context.Context, string) ([]domain.VocabularyTerm, error) {
	f.calls++
	return f.containing, f.err
}

func TestResolveExactMatchWinsOverLowerTiers(t *testing.T) {
	vocab := &fakeVocabulary{
		term:    &domain.VocabularyTerm{ConceptID: "c-1", Term: "Machine Learning"},
		aliases: []domain.AliasMatch{{Term: domain.VocabularyTerm{ConceptID: "c-2"}, Alias: domain.Alias{Text: "ml", Weight: 1}}},
	}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "machine learning")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity == nil || entity.ConceptID != "c-1" {
		t.Fatalf("entity = %+v, want exact match on c-1", entity)
	}
	if entity.MatchedBy != domain.MatchExact {
		t.Fatalf("MatchedBy = %q", entity.MatchedBy)
	}
	if entity.Confidence != 0.95 {
		t.Fatalf("Confidence = %v", entity.Confidence)
	}
}

func TestResolveAliasPicksBestWeightAndCapsConfidence(t *testing.T) {
	vocab := &fakeVocabulary{
		aliases: []domain.AliasMatch{
			{Term: domain.VocabularyTerm{ConceptID: "c-weak", Term: "Weak"}, Alias: domain.Alias{Text: "x", Weight: 0.2}},
			{Term: domain.VocabularyTerm{ConceptID: "c-strong", Term: "Strong"}, Alias: domain.Alias{Text: "x", Weight: 2.0}},
		},
	}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "x")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity.ConceptID != "c-strong" {
		t.Fatalf("ConceptID = %q, want the best-weight alias's concept", entity.ConceptID)
	}
	if entity.MatchedBy != domain.MatchAlias {
		t.Fatalf("MatchedBy = %q", entity.MatchedBy)
	}
	if entity.Confidence != 0.9 {
		t.Fatalf("Confidence = %v, want capped at 0.9", entity.Confidence)
	}
}

func TestResolveAliasConfidenceScalesWithWeight(t *testing.T) {
	vocab := &fakeVocabulary{
		aliases: []domain.AliasMatch{
			{Term: domain.VocabularyTerm{ConceptID: "c-1", Term: "T"}, Alias: domain.Alias{Text: "x", Weight: 0.5}},
		},
	}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "x")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if math.Abs(entity.Confidence-0.85) > 1e-9 {
		t.Fatalf("Confidence = %v, want 0.85", entity.Confidence)
	}
}

func TestResolveAliasWinsOverSubstring(t *testing.T) {
	vocab := &fakeVocabulary{
		aliases: []domain.AliasMatch{
			{Term: domain.VocabularyTerm{ConceptID: "c-alias", Term: "Via Alias"}, Alias: domain.Alias{Text: "x", Weight: 0.5}},
		},
		containing: []domain.VocabularyTerm{{ConceptID: "c-partial", Term: "X-ray"}},
	}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "x")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity.ConceptID != "c-alias" || entity.MatchedBy != domain.MatchAlias {
		t.Fatalf("entity = %+v, want the alias tier to win", entity)
	}
	if entity.Confidence < 0.8 {
		t.Fatalf("Confidence = %v, want an alias-tier confidence", entity.Confidence)
	}
}

func TestResolveSynonymTier(t *testing.T) {
	vocab := &fakeVocabulary{
		synonym: &domain.VocabularyTerm{ConceptID: "c-3", Term: "Neural Network"},
	}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "neural net")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity.MatchedBy != domain.MatchSynonym || entity.Confidence != 0.8 {
		t.Fatalf("entity = %+v", entity)
	}
}

func TestResolvePartialPrefersShortestTerm(t *testing.T) {
	vocab := &fakeVocabulary{
		containing: []domain.VocabularyTerm{
			{ConceptID: "c-long", Term: "Deep Reinforcement Learning"},
			{ConceptID: "c-short", Term: "Learning"},
		},
	}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "learn")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity.ConceptID != "c-short" {
		t.Fatalf("ConceptID = %q, want the shortest containing term", entity.ConceptID)
	}
	if entity.MatchedBy != domain.MatchPartial || entity.Confidence != 0.6 {
		t.Fatalf("entity = %+v", entity)
	}
}

func TestResolveNoMatchReturnsNilWithoutError(t *testing.T) {
	entity, err := NewEntityResolver(&fakeVocabulary{}).Resolve(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity != nil {
		t.Fatalf("entity = %+v, want nil", entity)
	}
}

func TestResolveEmptyInputSkipsStore(t *testing.T) {
	vocab := &fakeVocabulary{}
	entity, err := NewEntityResolver(vocab).Resolve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity != nil {
		t.Fatalf("entity = %+v, want nil", entity)
	}
	if vocab.calls != 0 {
		t.Fatalf("store queried %d times for empty input", vocab.calls)
	}
}

func TestResolvePropagatesStoreError(t *testing.T) {
	vocab := &fakeVocabulary{err: errors.New("store down")}
	if _, err := NewEntityResolver(vocab).Resolve(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveNilResolverIsNoop(t *testing.T) {
	var r *EntityResolver
	entity, err := r.Resolve(context.Background(), "anything")
	if err != nil || entity != nil {
		t.Fatalf("nil resolver: entity=%v err=%v", entity, err)
	}
}
