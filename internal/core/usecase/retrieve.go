package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
	"github.com/kirillkom/federated-retrieval/internal/core/ports"
)

const auditEmitTimeout = 5 * time.Second

// RetrieveOptions carries orchestration knobs that are not collaborators.
type RetrieveOptions struct {
	CacheTTL time.Duration
	// Pool runs provider searches when set; exhaustion falls back to a
	// plain goroutine so a request never blocks on pool capacity.
	Pool *ants.Pool
}

// RetrieveUseCase is the federation orchestrator: cache lookup, breaker-gated
// concurrent fan-out, candidate merge, dedupe, entity resolution, rank fusion,
// cache store and best-effort audit emission.
type RetrieveUseCase struct {
	providers []ports.SearchProvider
	byName    map[string]ports.SearchProvider
	weights   map[string]float64
	gate      ports.ProviderGate
	cache     ports.ResultCache
	resolver  *EntityResolver
	audit     ports.AuditSink
	opts      RetrieveOptions
}

func NewRetrieveUseCase(
	providers []ports.SearchProvider,
	gate ports.ProviderGate,
	cache ports.ResultCache,
	resolver *EntityResolver,
	audit ports.AuditSink,
	opts RetrieveOptions,
) *RetrieveUseCase {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	byName := make(map[string]ports.SearchProvider, len(providers))
	weights := make(map[string]float64, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
		weights[p.Name()] = p.Weight()
	}
	return &RetrieveUseCase{
		providers: providers,
		byName:    byName,
		weights:   weights,
		gate:      gate,
		cache:     cache,
		resolver:  resolver,
		audit:     audit,
		opts:      opts,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error) {
	start := time.Now()
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &domain.RetrievalResult{
		RequestID:  uuid.NewString(),
		Query:      req.Query,
		Mode:       req.Mode,
		Candidates: []domain.Candidate{},
		Providers:  []domain.ProviderStats{},
	}

	fingerprint := req.Fingerprint()
	if cached, ok := uc.cache.Get(ctx, fingerprint); ok {
		result.Candidates = cached
		result.CacheHit = true
		result.Total = len(cached)
		result.DurationMs = time.Since(start).Milliseconds()
		uc.emitAudit(result)
		return result, nil
	}

	eligible, skipped := uc.eligibleProviders(req)
	result.Providers = append(result.Providers, skipped...)

	var merged []domain.Candidate
	for _, outcome := range uc.fanOut(ctx, req, eligible) {
		result.Providers = append(result.Providers, outcome.stats)
		merged = append(merged, outcome.candidates...)
	}

	deduped := dedupeCandidates(merged)
	uc.resolveEntities(ctx, deduped)

	ranked := rankCandidates(deduped, uc.weights)
	if len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}
	result.Candidates = ranked
	result.Total = len(ranked)
	result.DurationMs = time.Since(start).Milliseconds()

	uc.cache.Set(ctx, fingerprint, ranked, uc.opts.CacheTTL)
	uc.emitAudit(result)
	return result, nil
}

type eligibleProvider struct {
	provider ports.SearchProvider
	report   func(success bool)
}

// eligibleProviders intersects the registry with the request allow-list and
// reserves a breaker slot per remaining provider. Providers whose circuit is
// open are reported as skipped, never as request errors.
func (uc *RetrieveUseCase) eligibleProviders(req domain.RetrievalRequest) ([]eligibleProvider, []domain.ProviderStats) {
	allowed := func(string) bool { return true }
	if len(req.Providers) > 0 {
		set := make(map[string]struct{}, len(req.Providers))
		for _, name := range req.Providers {
			set[name] = struct{}{}
		}
		allowed = func(name string) bool {
			_, ok := set[name]
			return ok
		}
	}

	var eligible []eligibleProvider
	var skipped []domain.ProviderStats
	for _, p := range uc.providers {
		if !allowed(p.Name()) {
			continue
		}
		report, err := uc.gate.Allow(p.Name())
		if err != nil {
			slog.Info("provider_skipped", "provider", p.Name(), "reason", err)
			skipped = append(skipped, domain.ProviderStats{
				Provider: p.Name(),
				Status:   domain.ProviderStatusSkipped,
				Error:    err.Error(),
			})
			continue
		}
		eligible = append(eligible, eligibleProvider{provider: p, report: report})
	}
	return eligible, skipped
}

type providerOutcome struct {
	stats      domain.ProviderStats
	candidates []domain.Candidate
}

// fanOut dispatches one bounded search per eligible provider and waits for
// all of them to settle. Each call carries its own deadline so one slow
// provider never shortens another's budget.
func (uc *RetrieveUseCase) fanOut(ctx context.Context, req domain.RetrievalRequest, eligible []eligibleProvider) []providerOutcome {
	if len(eligible) == 0 {
		return nil
	}

	outcomes := make([]providerOutcome, len(eligible))
	var wg sync.WaitGroup
	for i, e := range eligible {
		wg.Add(1)
		go func(i int, e eligibleProvider) {
			defer wg.Done()
			outcomes[i] = uc.callProvider(ctx, req, e)
		}(i, e)
	}
	wg.Wait()
	return outcomes
}

func (uc *RetrieveUseCase) callProvider(ctx context.Context, req domain.RetrievalRequest, e eligibleProvider) providerOutcome {
	budget := e.provider.Timeout()
	if req.Timeout > 0 && req.Timeout < budget {
		budget = req.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type searchResult struct {
		candidates []domain.Candidate
		err        error
	}
	// Buffered so a late completion never blocks after the deadline fired.
	resultCh := make(chan searchResult, 1)

	run := func() {
		candidates, err := e.provider.Search(callCtx, req)
		resultCh <- searchResult{candidates: candidates, err: err}
	}
	uc.dispatch(run)

	start := time.Now()
	stats := domain.ProviderStats{Provider: e.provider.Name()}

	select {
	case res := <-resultCh:
		stats.DurationMs = time.Since(start).Milliseconds()
		if res.err != nil {
			e.report(false)
			stats.Status = domain.ProviderStatusFailure
			stats.Error = res.err.Error()
			slog.Warn("provider_failed", "provider", stats.Provider, "error", res.err)
			return providerOutcome{stats: stats}
		}
		e.report(true)
		stats.Status = domain.ProviderStatusSuccess
		stats.Candidates = len(res.candidates)
		return providerOutcome{stats: stats, candidates: res.candidates}
	case <-callCtx.Done():
		// The provider's eventual result, if any, is abandoned here.
		e.report(false)
		stats.DurationMs = time.Since(start).Milliseconds()
		stats.Status = domain.ProviderStatusTimeout
		stats.Error = callCtx.Err().Error()
		slog.Warn("provider_timeout", "provider", stats.Provider, "budget_ms", budget.Milliseconds())
		return providerOutcome{stats: stats}
	}
}

func (uc *RetrieveUseCase) dispatch(task func()) {
	if uc.opts.Pool != nil {
		if err := uc.opts.Pool.Submit(task); err == nil {
			return
		}
	}
	go task()
}

// resolveEntities attaches canonical concepts to surviving candidates.
// Resolution is best-effort enrichment: lookup errors leave the candidate
// unresolved and never fail the request.
func (uc *RetrieveUseCase) resolveEntities(ctx context.Context, candidates []domain.Candidate) {
	if uc.resolver == nil {
		return
	}
	for i := range candidates {
		entity, err := uc.resolver.Resolve(ctx, candidates[i].Title)
		if err != nil {
			slog.Warn("entity_resolution_failed", "candidate_id", candidates[i].ID, "error", err)
			continue
		}
		candidates[i].Canonical = entity
	}
}

func (uc *RetrieveUseCase) emitAudit(result *domain.RetrievalResult) {
	if uc.audit == nil {
		return
	}
	event := domain.NewAuditEvent(result, nil)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditEmitTimeout)
		defer cancel()
		if err := uc.audit.Emit(ctx, event); err != nil {
			slog.Warn("audit_emit_failed", "request_id", event.Request.RequestID, "error", err)
		}
	}()
}
