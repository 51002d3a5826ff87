// Package mediasearch adapts the media-transcript index to the
// SearchProvider contract.
package mediasearch

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

const Name = "media-search"

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
		cfg.Weight = 0.85
	}
	if cfg.Tier == "" {
		cfg.Tier = domain.TrustMedium
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
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

type transcriptHit struct {
	MediaID   string  `json:"media_id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Excerpt   string  `json:"excerpt"`
	Program   string  `json:"program"`
	AiredAt   string  `json:"aired_at"`
	Relevance float64 `json:"relevance"`
}

func (p *Provider) Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.Candidate, error) {
	body, err := json.Marshal(map[string]any{
		"query": req.Query,
		"limit": req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transcript query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/transcripts/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create transcript request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcript search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcript search status: %s", resp.Status)
	}

	var payload struct {
		Hits []transcriptHit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode transcript response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		extra := map[string]string{}
		if hit.Program != "" {
			extra["program"] = hit.Program
		}
		candidate, err := domain.NewCandidate(domain.CandidateInput{
			ID:          hit.MediaID,
			Title:       hit.Title,
			URL:         hit.URL,
			Snippet:     hit.Excerpt,
			ContentType: "media",
			PublishedAt: parseAiredAt(hit.AiredAt),
			Provider:    Name,
			Ref:         hit.MediaID,
			Tier:        p.tier,
			Score:       clampRelevance(hit.Relevance),
			Extra:       extra,
		})
		if err != nil {
			slog.Warn("media_search_hit_dropped", "url", hit.URL, "error", err)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func parseAiredAt(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

func clampRelevance(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
