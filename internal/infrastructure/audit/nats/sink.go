// Package nats publishes audit records to NATS and consumes them in the
// auditor worker. Requests, candidates and ranks each get their own subject
// under a shared prefix.
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

const (
	requestsSuffix   = ".requests"
	candidatesSuffix = ".candidates"
	ranksSuffix      = ".ranks"
)

type Sink struct {
	conn          *nats.Conn
	subjectPrefix string
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
}

func New(url, subjectPrefix string) (*Sink, error) {
	return NewWithOptions(url, subjectPrefix, Options{})
}

func NewWithOptions(url, subjectPrefix string, options Options) (*Sink, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("federated-retrieval"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Sink{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (s *Sink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// Emit publishes every record of the event. Publishing is fire-and-forget;
// partial failures are joined so the caller can log one line and move on.
func (s *Sink) Emit(_ context.Context, event domain.AuditEvent) error {
	var errs []error
	if err := s.publish(s.subjectPrefix+requestsSuffix, event.Request); err != nil {
		errs = append(errs, err)
	}
	for _, record := range event.Candidates {
		if err := s.publish(s.subjectPrefix+candidatesSuffix, record); err != nil {
			errs = append(errs, err)
		}
	}
	for _, record := range event.Ranks {
		if err := s.publish(s.subjectPrefix+ranksSuffix, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) publish(subject string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if err := s.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}
