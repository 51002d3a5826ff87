package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/config"
	"github.com/kirillkom/federated-retrieval/internal/core/domain"
	auditnats "github.com/kirillkom/federated-retrieval/internal/infrastructure/audit/nats"
	"github.com/kirillkom/federated-retrieval/internal/infrastructure/audit/postgres"
	"github.com/kirillkom/federated-retrieval/internal/observability/logging"
	"github.com/kirillkom/federated-retrieval/internal/observability/metrics"
)

const service = "auditor"

func main() {
	cfg := config.Load()
	logging.Setup(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := postgres.NewAuditRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	consumer, err := auditnats.NewConsumer(cfg.NATSURL, cfg.AuditSubjectPrefix, cfg.AuditQueueGroup)
	if err != nil {
		log.Fatalf("init audit consumer: %v", err)
	}
	defer consumer.Close()

	m := metrics.NewAuditorMetrics(service)
	go serveMetrics(cfg.AuditorMetricsPort, m)

	log.Printf("auditor consuming %s.* from %s", cfg.AuditSubjectPrefix, cfg.NATSURL)
	err = consumer.Run(ctx, auditnats.Handlers{
		Request: func(ctx context.Context, record domain.AuditRequestRecord) error {
			start := time.Now()
			err := repo.InsertRequest(ctx, record)
			m.RecordPersist(service, "request", time.Since(start), err)
			m.ObserveConsumeLag(service, time.Since(record.CreatedAt))
			return err
		},
		Candidate: func(ctx context.Context, record domain.AuditCandidateRecord) error {
			start := time.Now()
			err := repo.InsertCandidate(ctx, record)
			m.RecordPersist(service, "candidate", time.Since(start), err)
			return err
		},
		Rank: func(ctx context.Context, record domain.AuditRankRecord) error {
			start := time.Now()
			err := repo.InsertRank(ctx, record)
			m.RecordPersist(service, "rank", time.Since(start), err)
			return err
		},
	})
	if err != nil {
		log.Fatalf("auditor run error: %v", err)
	}
}

func serveMetrics(port string, m *metrics.AuditorMetrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("metrics server error: %v", err)
	}
}
