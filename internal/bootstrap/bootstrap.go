package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/federated-retrieval/internal/config"
	"github.com/kirillkom/federated-retrieval/internal/core/ports"
	"github.com/kirillkom/federated-retrieval/internal/core/usecase"
	auditnats "github.com/kirillkom/federated-retrieval/internal/infrastructure/audit/nats"
	memorycache "github.com/kirillkom/federated-retrieval/internal/infrastructure/cache/memory"
	rediscache "github.com/kirillkom/federated-retrieval/internal/infrastructure/cache/redis"
	"github.com/kirillkom/federated-retrieval/internal/infrastructure/provider/internalindex"
	"github.com/kirillkom/federated-retrieval/internal/infrastructure/provider/mediasearch"
	"github.com/kirillkom/federated-retrieval/internal/infrastructure/provider/websearch"
	"github.com/kirillkom/federated-retrieval/internal/infrastructure/resilience"
	memoryvocab "github.com/kirillkom/federated-retrieval/internal/infrastructure/vocabulary/memory"
	neo4jvocab "github.com/kirillkom/federated-retrieval/internal/infrastructure/vocabulary/neo4j"
	"github.com/kirillkom/federated-retrieval/internal/observability/metrics"
)

// App owns every process-lifetime collaborator of the API service: the
// provider registry, one breaker registry, one result cache and the
// orchestrator composed from them.
type App struct {
	Config    config.Config
	Metrics   *metrics.RetrievalMetrics
	Providers []ports.SearchProvider
	Gate      ports.ProviderGate
	Retriever ports.Retriever

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	m := metrics.NewRetrievalMetrics(service)

	providers := buildProviders(cfg)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no search providers configured")
	}

	gate := resilience.NewBreakerRegistry(
		resilience.Config{
			FailureThreshold: uint32(cfg.BreakerFailureThreshold),
			ResetTimeout:     time.Duration(cfg.BreakerResetTimeoutMs) * time.Millisecond,
			SuccessThreshold: uint32(cfg.BreakerSuccessThreshold),
		},
		func(provider, _, to string) {
			m.RecordBreakerTransition(service, provider, to)
		},
	)

	var closers []func()

	var cache ports.ResultCache
	switch cfg.CacheBackend {
	case "redis":
		redisCache := rediscache.New(rediscache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { _ = redisCache.Close() })
		cache = redisCache
	default:
		cache = memorycache.New(cfg.CacheCapacity)
	}

	vocab, vocabClose, err := buildVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	if vocabClose != nil {
		closers = append(closers, vocabClose)
	}

	var audit ports.AuditSink
	if cfg.NATSURL != "" {
		sink, err := auditnats.New(cfg.NATSURL, cfg.AuditSubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("init audit sink: %w", err)
		}
		closers = append(closers, sink.Close)
		audit = sink
	}

	pool, err := ants.NewPool(cfg.FanoutPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("init fan-out pool: %w", err)
	}
	closers = append(closers, pool.Release)

	retriever := usecase.NewRetrieveUseCase(
		providers,
		gate,
		cache,
		usecase.NewEntityResolver(vocab),
		audit,
		usecase.RetrieveOptions{
			CacheTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
			Pool:     pool,
		},
	)

	return &App{
		Config:    cfg,
		Metrics:   m,
		Providers: providers,
		Gate:      gate,
		Retriever: retriever,
		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildProviders(cfg config.Config) []ports.SearchProvider {
	var providers []ports.SearchProvider
	if cfg.InternalIndexURL != "" {
		providers = append(providers, internalindex.New(internalindex.Config{
			BaseURL: cfg.InternalIndexURL,
			Weight:  cfg.InternalIndexWeight,
			Timeout: time.Duration(cfg.InternalIndexTimeoutMs) * time.Millisecond,
		}))
	}
	if cfg.MediaSearchURL != "" {
		providers = append(providers, mediasearch.New(mediasearch.Config{
			BaseURL: cfg.MediaSearchURL,
			Weight:  cfg.MediaSearchWeight,
			Timeout: time.Duration(cfg.MediaSearchTimeoutMs) * time.Millisecond,
		}))
	}
	if cfg.WebSearchURL != "" {
		providers = append(providers, websearch.New(websearch.Config{
			BaseURL: cfg.WebSearchURL,
			Weight:  cfg.WebSearchWeight,
			Timeout: time.Duration(cfg.WebSearchTimeoutMs) * time.Millisecond,
		}))
	}
	return providers
}

func buildVocabulary(cfg config.Config) (ports.VocabularyStore, func(), error) {
	switch cfg.VocabBackend {
	case "neo4j":
		store, err := neo4jvocab.New(neo4jvocab.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init neo4j vocabulary: %w", err)
		}
		return store, func() { _ = store.Close(context.Background()) }, nil
	case "none":
		return nil, nil, nil
	default:
		store, err := memoryvocab.Load(cfg.VocabFile)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("vocabulary_file_missing", "path", cfg.VocabFile)
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load vocabulary file: %w", err)
		}
		return store, nil, nil
	}
}
