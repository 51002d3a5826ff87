// Package websearch adapts a SearxNG-style web meta-search engine to the
// SearchProvider contract.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

const Name = "web-search"

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
		cfg.Weight = 0.6
	}
	if cfg.Tier == "" {
		cfg.Tier = domain.TrustLow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
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

type webResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Engine        string  `json:"engine"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"publishedDate"`
}

func (p *Provider) Search(ctx context.Context, req domain.RetrievalRequest) ([]domain.Candidate, error) {
	query := url.Values{}
	query.Set("q", req.Query)
	query.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create web search request: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("web search status: %s", resp.Status)
	}

	var payload struct {
		Results []webResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode web search response: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > len(payload.Results) {
		limit = len(payload.Results)
	}

	candidates := make([]domain.Candidate, 0, limit)
	for i, result := range payload.Results[:limit] {
		extra := map[string]string{}
		if result.Engine != "" {
			extra["engine"] = result.Engine
		}
		candidate, err := domain.NewCandidate(domain.CandidateInput{
			Title:       result.Title,
			URL:         result.URL,
			Snippet:     result.Content,
			ContentType: "web",
			PublishedAt: parsePublishedDate(result.PublishedDate),
			Provider:    Name,
			Ref:         result.URL,
			Tier:        p.tier,
			Score:       normalizeEngineScore(result.Score, i),
			Extra:       extra,
		})
		if err != nil {
			slog.Warn("web_search_result_dropped", "url", result.URL, "error", err)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func parsePublishedDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

// normalizeEngineScore squeezes the meta-search engine's open-ended score
// into the comparable 0-1 range; a missing score falls back to the result's
// position in the engine's own ordering.
func normalizeEngineScore(score float64, position int) float64 {
	if score <= 0 {
		return 1.0 / float64(position+2)
	}
	if score > 1 {
		return 1
	}
	return score
}
