package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

// Handlers receives decoded audit records. A nil handler drops that record
// class. Handler errors are logged, not retried: audit persistence is
// best-effort end to end.
type Handlers struct {
	Request   func(ctx context.Context, record domain.AuditRequestRecord) error
	Candidate func(ctx context.Context, record domain.AuditCandidateRecord) error
	Rank      func(ctx context.Context, record domain.AuditRankRecord) error
}

type Consumer struct {
	conn          *nats.Conn
	subjectPrefix string
	queueGroup    string
}

func NewConsumer(url, subjectPrefix, queueGroup string) (*Consumer, error) {
	sink, err := New(url, subjectPrefix)
	if err != nil {
		return nil, err
	}
	if queueGroup == "" {
		queueGroup = "auditors"
	}
	return &Consumer{conn: sink.conn, subjectPrefix: subjectPrefix, queueGroup: queueGroup}, nil
}

func (c *Consumer) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Run subscribes to all three audit subjects and blocks until ctx is done,
// then drains the subscriptions.
func (c *Consumer) Run(ctx context.Context, handlers Handlers) error {
	subs := make([]*nats.Subscription, 0, 3)

	subscribe := func(suffix string, handle func(context.Context, []byte) error) error {
		sub, err := c.conn.QueueSubscribe(c.subjectPrefix+suffix, c.queueGroup, func(msg *nats.Msg) {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			handlerCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := handle(handlerCtx, msg.Data); err != nil {
				log.Printf("audit handler error on %s: %v", msg.Subject, err)
			}
		})
		if err != nil {
			return fmt.Errorf("nats subscribe %s: %w", c.subjectPrefix+suffix, err)
		}
		subs = append(subs, sub)
		return nil
	}

	if handlers.Request != nil {
		if err := subscribe(requestsSuffix, func(ctx context.Context, data []byte) error {
			var record domain.AuditRequestRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("decode request record: %w", err)
			}
			return handlers.Request(ctx, record)
		}); err != nil {
			return err
		}
	}
	if handlers.Candidate != nil {
		if err := subscribe(candidatesSuffix, func(ctx context.Context, data []byte) error {
			var record domain.AuditCandidateRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("decode candidate record: %w", err)
			}
			return handlers.Candidate(ctx, record)
		}); err != nil {
			return err
		}
	}
	if handlers.Rank != nil {
		if err := subscribe(ranksSuffix, func(ctx context.Context, data []byte) error {
			var record domain.AuditRankRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("decode rank record: %w", err)
			}
			return handlers.Rank(ctx, record)
		}); err != nil {
			return err
		}
	}

	if err := c.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			log.Printf("nats drain subscription: %v", err)
		}
	}
	if err := c.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
