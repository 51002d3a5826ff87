package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*AuditRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &AuditRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestInsertRequestEncodesProviderStats(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	record := domain.AuditRequestRecord{
		RequestID: "req-1",
		Query:     "golang",
		Mode:      domain.ModeHybrid,
		CacheHit:  false,
		Providers: []domain.ProviderStats{
			{Provider: "internal-index", Status: domain.ProviderStatusSuccess, Candidates: 3},
		},
		Candidates: 3,
		DurationMs: 42,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO retrieval_requests").
		WithArgs("req-1", "golang", "hybrid", false, sqlmock.AnyArg(), 3, int64(42), "", record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.InsertRequest(context.Background(), record); err != nil {
		t.Fatalf("InsertRequest() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertRequestWrapsDBError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO retrieval_requests").
		WillReturnError(errors.New("connection reset"))

	err := repo.InsertRequest(context.Background(), domain.AuditRequestRecord{RequestID: "req-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertCandidate(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	record := domain.AuditCandidateRecord{
		RequestID:    "req-1",
		CandidateID:  "cand-1",
		Provider:     "web-search",
		URL:          "https://example.com/a?utm_source=x",
		CanonicalURL: "https://example.com/a",
		Title:        "A",
		Score:        0.8,
		ConceptID:    "c-1",
		MatchedBy:    domain.MatchAlias,
		Confidence:   0.85,
	}

	mock.ExpectExec("INSERT INTO retrieval_candidates").
		WithArgs("req-1", "cand-1", "web-search", record.URL, record.CanonicalURL, "A", 0.8, "c-1", domain.MatchAlias, 0.85).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.InsertCandidate(context.Background(), record); err != nil {
		t.Fatalf("InsertCandidate() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertRank(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO retrieval_ranks").
		WithArgs("req-1", "cand-1", 1, 0.705).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := domain.AuditRankRecord{RequestID: "req-1", CandidateID: "cand-1", Rank: 1, RankScore: 0.705}
	if err := repo.InsertRank(context.Background(), record); err != nil {
		t.Fatalf("InsertRank() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRunsInsideAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(int64(2026082901)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS retrieval_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
