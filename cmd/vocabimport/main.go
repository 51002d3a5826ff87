// vocabimport loads a controlled-vocabulary workbook into the Neo4j ontology
// store. Expected sheets:
//
//	Terms:   concept_id | term | synonyms (semicolon separated)
//	Aliases: concept_id | alias | weight
//
// The first row of each sheet is treated as a header and skipped.
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/federated-retrieval/internal/config"
	"github.com/kirillkom/federated-retrieval/internal/core/domain"
	neo4jvocab "github.com/kirillkom/federated-retrieval/internal/infrastructure/vocabulary/neo4j"
)

func main() {
	var (
		file       = flag.String("file", "", "path to the vocabulary .xlsx workbook")
		termsSheet = flag.String("terms-sheet", "Terms", "sheet with canonical terms")
		aliasSheet = flag.String("aliases-sheet", "Aliases", "sheet with weighted aliases")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: vocabimport -file vocabulary.xlsx")
	}

	terms, err := readWorkbook(*file, *termsSheet, *aliasSheet)
	if err != nil {
		log.Fatalf("read workbook: %v", err)
	}

	cfg := config.Load()
	store, err := neo4jvocab.New(neo4jvocab.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		log.Fatalf("connect neo4j: %v", err)
	}
	ctx := context.Background()
	defer func() { _ = store.Close(ctx) }()

	imported := 0
	for _, term := range terms {
		if err := store.UpsertTerm(ctx, term); err != nil {
			log.Fatalf("upsert %s: %v", term.ConceptID, err)
		}
		imported++
	}
	log.Printf("imported %d vocabulary terms", imported)
}

func readWorkbook(path, termsSheet, aliasSheet string) ([]domain.VocabularyTerm, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = workbook.Close() }()

	termRows, err := workbook.GetRows(termsSheet)
	if err != nil {
		return nil, err
	}

	byConcept := make(map[string]*domain.VocabularyTerm)
	var order []string
	for i, row := range termRows {
		if i == 0 || len(row) < 2 {
			continue
		}
		conceptID := strings.TrimSpace(row[0])
		term := strings.TrimSpace(row[1])
		if conceptID == "" || term == "" {
			continue
		}
		entry := &domain.VocabularyTerm{ConceptID: conceptID, Term: term}
		if len(row) > 2 {
			for _, syn := range strings.Split(row[2], ";") {
				if syn = strings.TrimSpace(syn); syn != "" {
					entry.Synonyms = append(entry.Synonyms, syn)
				}
			}
		}
		byConcept[conceptID] = entry
		order = append(order, conceptID)
	}

	aliasRows, err := workbook.GetRows(aliasSheet)
	if err != nil {
		return nil, err
	}
	for i, row := range aliasRows {
		if i == 0 || len(row) < 2 {
			continue
		}
		conceptID := strings.TrimSpace(row[0])
		aliasText := strings.TrimSpace(row[1])
		entry, ok := byConcept[conceptID]
		if !ok || aliasText == "" {
			continue
		}
		weight := 0.5
		if len(row) > 2 {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err == nil {
				weight = parsed
			}
		}
		entry.Aliases = append(entry.Aliases, domain.Alias{Text: aliasText, Weight: weight})
	}

	terms := make([]domain.VocabularyTerm, 0, len(order))
	for _, conceptID := range order {
		terms = append(terms, *byConcept[conceptID])
	}
	return terms, nil
}
