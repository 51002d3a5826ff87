// Package neo4j backs the controlled vocabulary with an ontology graph:
// (:Concept)-[:HAS_ALIAS]->(:Alias) nodes maintained by the surrounding
// ontology tooling. All retrieval-path lookups are read-only.
package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

func New(cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Store{driver: driver, database: cfg.Database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) LookupTerm(ctx context.Context, input string) (*domain.VocabularyTerm, error) {
	records, err := s.read(ctx, `
MATCH (c:Concept)
WHERE c.term_lower = $input
RETURN c.id AS id, c.term AS term
LIMIT 1`, strings.ToLower(input))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	term := termFromRecord(records[0])
	return &term, nil
}

func (s *Store) LookupAlias(ctx context.Context, input string) ([]domain.AliasMatch, error) {
	records, err := s.read(ctx, `
MATCH (c:Concept)-[r:HAS_ALIAS]->(a:Alias)
WHERE a.text_lower = $input
RETURN c.id AS id, c.term AS term, a.text AS alias, r.weight AS weight`, strings.ToLower(input))
	if err != nil {
		return nil, err
	}

	matches := make([]domain.AliasMatch, 0, len(records))
	for _, record := range records {
		match := domain.AliasMatch{Term: termFromRecord(record)}
		if alias, ok := record["alias"].(string); ok {
			match.Alias.Text = alias
		}
		if weight, ok := record["weight"].(float64); ok {
			match.Alias.Weight = weight
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *Store) LookupSynonym(ctx context.Context, input string) (*domain.VocabularyTerm, error) {
	records, err := s.read(ctx, `
MATCH (c:Concept)
WHERE $input IN c.synonyms_lower
RETURN c.id AS id, c.term AS term
LIMIT 1`, strings.ToLower(input))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	term := termFromRecord(records[0])
	return &term, nil
}

func (s *Store) SearchContaining(ctx context.Context, input string) ([]domain.VocabularyTerm, error) {
	records, err := s.read(ctx, `
MATCH (c:Concept)
WHERE c.term_lower CONTAINS $input
RETURN c.id AS id, c.term AS term`, strings.ToLower(input))
	if err != nil {
		return nil, err
	}

	terms := make([]domain.VocabularyTerm, 0, len(records))
	for _, record := range records {
		terms = append(terms, termFromRecord(record))
	}
	return terms, nil
}

// UpsertTerm writes one concept with its aliases and synonyms. Used by the
// vocabulary import tool, not by the retrieval path.
func (s *Store) UpsertTerm(ctx context.Context, term domain.VocabularyTerm) error {
	synonymsLower := make([]string, 0, len(term.Synonyms))
	for _, syn := range term.Synonyms {
		synonymsLower = append(synonymsLower, strings.ToLower(syn))
	}

	_, err := neo4j.ExecuteQuery(ctx, s.driver, `
MERGE (c:Concept {id: $id})
SET c.term = $term, c.term_lower = $term_lower,
    c.synonyms = $synonyms, c.synonyms_lower = $synonyms_lower`,
		map[string]any{
			"id":             term.ConceptID,
			"term":           term.Term,
			"term_lower":     strings.ToLower(term.Term),
			"synonyms":       term.Synonyms,
			"synonyms_lower": synonymsLower,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
	if err != nil {
		return fmt.Errorf("upsert concept %s: %w", term.ConceptID, err)
	}

	for _, alias := range term.Aliases {
		_, err := neo4j.ExecuteQuery(ctx, s.driver, `
MATCH (c:Concept {id: $id})
MERGE (a:Alias {text_lower: $text_lower})
SET a.text = $text
MERGE (c)-[r:HAS_ALIAS]->(a)
SET r.weight = $weight`,
			map[string]any{
				"id":         term.ConceptID,
				"text":       alias.Text,
				"text_lower": strings.ToLower(alias.Text),
				"weight":     alias.Weight,
			},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(s.database),
		)
		if err != nil {
			return fmt.Errorf("upsert alias %q for %s: %w", alias.Text, term.ConceptID, err)
		}
	}
	return nil
}

func (s *Store) read(ctx context.Context, cypher, input string) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher,
		map[string]any{"input": input},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("vocabulary query: %w", err)
	}

	records := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		records = append(records, record.AsMap())
	}
	return records, nil
}

func termFromRecord(record map[string]any) domain.VocabularyTerm {
	var term domain.VocabularyTerm
	if id, ok := record["id"].(string); ok {
		term.ConceptID = id
	}
	if text, ok := record["term"].(string); ok {
		term.Term = text
	}
	return term
}
