package ports

import (
	"context"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

// SearchProvider is one federated search backend. Providers are stateless
// with respect to the orchestrator; a provider may return zero candidates
// (not an error) and must only fail for actual faults.
type SearchProvider interface {
	Name() string
	TrustTier() domain.TrustTier
	Weight() float64
	Timeout() time.Duration
	Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.Candidate, error)
}

// ProviderGate decides per call whether a provider may be contacted. Allow
// reserves the call and returns a report callback for its outcome; an error
// means the provider's circuit is open and it must be skipped this request.
type ProviderGate interface {
	Allow(provider string) (report func(success bool), err error)
	State(provider string) string
}

// ResultCache stores finished ranked lists keyed by request fingerprint.
// Implementations are concurrency-safe; failures degrade to cache misses.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]domain.Candidate, bool)
	Set(ctx context.Context, key string, candidates []domain.Candidate, ttl time.Duration)
}

// VocabularyStore is the read-only lookup surface of the controlled
// vocabulary. All lookups are case-insensitive.
type VocabularyStore interface {
	LookupTerm(ctx context.Context, input string) (*domain.VocabularyTerm, error)
	LookupAlias(ctx context.Context, input string) ([]domain.AliasMatch, error)
	LookupSynonym(ctx context.Context, input string) (*domain.VocabularyTerm, error)
	SearchContaining(ctx context.Context, input string) ([]domain.VocabularyTerm, error)
}

// AuditSink receives one event per orchestration call. Emission is
// best-effort: callers log and drop errors.
type AuditSink interface {
	Emit(ctx context.Context, event domain.AuditEvent) error
}
