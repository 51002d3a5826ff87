// Package memory holds the controlled vocabulary in process, loaded from a
// YAML file. Suited for small vocabularies and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

type Store struct {
	terms     []domain.VocabularyTerm
	byTerm    map[string]int
	bySynonym map[string]int
	byAlias   map[string][]domain.AliasMatch
}

func New(terms []domain.VocabularyTerm) *Store {
	s := &Store{
		terms:     terms,
		byTerm:    make(map[string]int, len(terms)),
		bySynonym: make(map[string]int),
		byAlias:   make(map[string][]domain.AliasMatch),
	}
	for i, term := range terms {
		s.byTerm[strings.ToLower(term.Term)] = i
		for _, syn := range term.Synonyms {
			key := strings.ToLower(syn)
			if _, taken := s.bySynonym[key]; !taken {
				s.bySynonym[key] = i
			}
		}
		for _, alias := range term.Aliases {
			key := strings.ToLower(alias.Text)
			s.byAlias[key] = append(s.byAlias[key], domain.AliasMatch{Term: term, Alias: alias})
		}
	}
	return s
}

// Load reads a vocabulary file of the shape:
//
//	terms:
//	  - concept_id: c-001
//	    term: Machine Learning
//	    aliases:
//	      - text: ML
//	        weight: 0.9
//	    synonyms: [statistical learning]
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	var doc struct {
		Terms []domain.VocabularyTerm `yaml:"terms"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse vocabulary file: %w", err)
	}
	return New(doc.Terms), nil
}

func (s *Store) LookupTerm(_ context.Context, input string) (*domain.VocabularyTerm, error) {
	if i, ok := s.byTerm[strings.ToLower(input)]; ok {
		term := s.terms[i]
		return &term, nil
	}
	return nil, nil
}

func (s *Store) LookupAlias(_ context.Context, input string) ([]domain.AliasMatch, error) {
	return s.byAlias[strings.ToLower(input)], nil
}

func (s *Store) LookupSynonym(_ context.Context, input string) (*domain.VocabularyTerm, error) {
	if i, ok := s.bySynonym[strings.ToLower(input)]; ok {
		term := s.terms[i]
		return &term, nil
	}
	return nil, nil
}

func (s *Store) SearchContaining(_ context.Context, input string) ([]domain.VocabularyTerm, error) {
	needle := strings.ToLower(input)
	var out []domain.VocabularyTerm
	for _, term := range s.terms {
		if strings.Contains(strings.ToLower(term.Term), needle) {
			out = append(out, term)
		}
	}
	return out, nil
}
