// Package internalindex adapts the in-house hybrid vector/text index to the
// SearchProvider contract. The index service owns embeddings and query
// rewriting; this client only translates requests and rows.
package internalindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

const Name = "internal-index"

type Config struct {
	BaseURL string
	Weight  float64
	Tier    domain.TrustTier
	Timeout time.Duration
}

type Provider struct {
	baseURL    string
	weight     float64
	tier       domain.TrustTier
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg Config) *Provider {
	if cfg.Weight <= 0 {
		cfg.Weight = 0.95
	}
	if cfg.Tier == "" {
		cfg.Tier = domain.TrustHigh
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		weight:     cfg.Weight,
		tier:       cfg.Tier,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

func (p *Provider) Name() string                { return Name }
func (p *Provider) TrustTier() domain.TrustTier { return p.tier }
func (p *Provider) Weight() float64             { return p.weight }
func (p *Provider) Timeout() time.Duration      { return p.timeout }

type searchRow struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Snippet     string            `json:"snippet"`
	ContentType string            `json:"content_type"`
	PublishedAt string            `json:"published_at"`
	Score       float64           `json:"score"`
	Fields      map[string]string `json:"fields"`
}

func (p *Provider) Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.Candidate, error) {
	body, err := json.Marshal(map[string]any{
		"query":  req.Query,
		"mode":   req.Mode,
		"limit":  req.Limit,
		"expand": req.Expand,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("index search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("index search status: %s", resp.Status)
	}

	var payload struct {
		Results []searchRow `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(payload.Results))
	for _, row := range payload.Results {
		candidate, err := domain.NewCandidate(domain.CandidateInput{
			ID:          row.ID,
			Title:       row.Title,
			URL:         row.URL,
			Snippet:     row.Snippet,
			ContentType: row.ContentType,
			PublishedAt: parseTimestamp(row.PublishedAt),
			Provider:    Name,
			Ref:         row.ID,
			Tier:        p.tier,
			Score:       clampScore(row.Score),
			Extra:       row.Fields,
		})
		if err != nil {
			slog.Warn("internal_index_row_dropped", "url", row.URL, "error", err)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &ts
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
