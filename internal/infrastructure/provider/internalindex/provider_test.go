package internalindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

func TestSearchTranslatesRequestAndRows(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[
			{"id":"doc-1","title":"Go Patterns","url":"https://example.com/go","snippet":"patterns","content_type":"article","published_at":"2025-04-01T10:00:00Z","score":0.91,"fields":{"lang":"en"}},
			{"id":"doc-2","title":"Channels","url":"https://example.com/ch","snippet":"channels","score":1.7}
		]}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	req := domain.RetrievalRequest{Query: "golang", Limit: 5, Mode: domain.ModeHybrid, Expand: true}

	candidates, err := p.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotBody["query"] != "golang" || gotBody["mode"] != "hybrid" || gotBody["expand"] != true {
		t.Fatalf("request body = %+v", gotBody)
	}

	if len(candidates) != 2 {
		t.Fatalf("len = %d, want 2", len(candidates))
	}
	first := candidates[0]
	if first.ID != "doc-1" || first.Source.Provider != Name || first.Source.Tier != domain.TrustHigh {
		t.Fatalf("first = %+v", first)
	}
	if first.PublishedAt == nil || first.PublishedAt.Year() != 2025 {
		t.Fatalf("PublishedAt = %v", first.PublishedAt)
	}
	if first.Signals.Extra["lang"] != "en" {
		t.Fatalf("Extra = %+v", first.Signals.Extra)
	}
	if candidates[1].Signals.Score != 1 {
		t.Fatalf("out-of-range score not clamped: %v", candidates[1].Signals.Score)
	}
}

func TestSearchSkipsInvalidRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"id":"bad","title":"","url":"https://example.com/bad","snippet":"s","score":0.5},
			{"id":"good","title":"Fine","url":"https://example.com/ok","snippet":"s","score":0.5}
		]}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	candidates, err := p.Search(context.Background(), domain.RetrievalRequest{Query: "q", Limit: 10, Mode: domain.ModeHybrid})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "good" {
		t.Fatalf("candidates = %+v", candidates)
	}
}

func TestSearchReportsUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	_, err := p.Search(context.Background(), domain.RetrievalRequest{Query: "q", Limit: 10, Mode: domain.ModeHybrid})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("error should carry the status, got %v", err)
	}
}

func TestSearchHonorsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	p := New(Config{BaseURL: server.URL})
	if _, err := p.Search(ctx, domain.RetrievalRequest{Query: "q", Limit: 10, Mode: domain.ModeHybrid}); err == nil {
		t.Fatalf("expected a cancellation error")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p := New(Config{BaseURL: "http://index/"})
	if p.Weight() != 0.95 {
		t.Fatalf("Weight() = %v", p.Weight())
	}
	if p.TrustTier() != domain.TrustHigh {
		t.Fatalf("TrustTier() = %v", p.TrustTier())
	}
	if p.Timeout() != 2*time.Second {
		t.Fatalf("Timeout() = %v", p.Timeout())
	}
	if p.Name() != "internal-index" {
		t.Fatalf("Name() = %q", p.Name())
	}
}
