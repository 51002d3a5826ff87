package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

// AuditRepository persists retrieval audit records. Writes are append-only;
// the retrieval path never reads these tables.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across auditor instances.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS retrieval_requests (
	request_id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	mode TEXT NOT NULL,
	cache_hit BOOLEAN NOT NULL,
	providers JSONB NOT NULL DEFAULT '[]'::jsonb,
	candidates INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS retrieval_candidates (
	request_id TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	url TEXT NOT NULL,
	canonical_url TEXT NOT NULL,
	title TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	concept_id TEXT,
	matched_by TEXT,
	confidence DOUBLE PRECISION,
	PRIMARY KEY (request_id, candidate_id)
);

CREATE TABLE IF NOT EXISTS retrieval_ranks (
	request_id TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	rank_score DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (request_id, candidate_id)
);

CREATE INDEX IF NOT EXISTS idx_retrieval_requests_created_at ON retrieval_requests(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_retrieval_candidates_provider ON retrieval_candidates(provider);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AuditRepository) InsertRequest(ctx context.Context, record domain.AuditRequestRecord) error {
	providersJSON, err := json.Marshal(record.Providers)
	if err != nil {
		return fmt.Errorf("marshal provider stats: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO retrieval_requests (
	request_id, query, mode, cache_hit, providers, candidates, duration_ms, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (request_id) DO NOTHING
`,
		record.RequestID, record.Query, string(record.Mode), record.CacheHit, providersJSON,
		record.Candidates, record.DurationMs, record.Error, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request record: %w", err)
	}
	return nil
}

func (r *AuditRepository) InsertCandidate(ctx context.Context, record domain.AuditCandidateRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO retrieval_candidates (
	request_id, candidate_id, provider, url, canonical_url, title, score, concept_id, matched_by, confidence
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (request_id, candidate_id) DO NOTHING
`,
		record.RequestID, record.CandidateID, record.Provider, record.URL, record.CanonicalURL,
		record.Title, record.Score, record.ConceptID, record.MatchedBy, record.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert candidate record: %w", err)
	}
	return nil
}

func (r *AuditRepository) InsertRank(ctx context.Context, record domain.AuditRankRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO retrieval_ranks (
	request_id, candidate_id, rank, rank_score
) VALUES ($1,$2,$3,$4)
ON CONFLICT (request_id, candidate_id) DO NOTHING
`,
		record.RequestID, record.CandidateID, record.Rank, record.RankScore,
	)
	if err != nil {
		return fmt.Errorf("insert rank record: %w", err)
	}
	return nil
}
