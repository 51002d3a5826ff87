package usecase

import (
	"testing"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

func candidate(id, canonicalURL, provider string, tier domain.TrustTier, score float64) domain.Candidate {
	return domain.Candidate{
		ID:           id,
		Title:        "title " + id,
		URL:          canonicalURL,
		CanonicalURL: canonicalURL,
		Source:       domain.Source{Provider: provider, Tier: tier},
		Signals:      domain.Signals{Score: score},
	}
}

func TestDedupeKeepsHigherScoreRegardlessOfTier(t *testing.T) {
	low := candidate("a", "https://example.com/x", "web-search", domain.TrustLow, 0.9)
	high := candidate("b", "https://example.com/x", "internal-index", domain.TrustHigh, 0.2)

	out := dedupeCandidates([]domain.Candidate{high, low})
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if out[0].ID != "a" {
		t.Fatalf("survivor = %s, want the 0.9-score low-trust candidate", out[0].ID)
	}
}

func TestDedupeBreaksScoreTieByTier(t *testing.T) {
	low := candidate("a", "https://example.com/x", "web-search", domain.TrustLow, 0.7)
	high := candidate("b", "https://example.com/x", "internal-index", domain.TrustHigh, 0.7)

	out := dedupeCandidates([]domain.Candidate{low, high})
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("expected the higher-tier candidate to survive, got %+v", out)
	}
}

func TestDedupeFullTieKeepsFirstSeen(t *testing.T) {
	first := candidate("a", "https://example.com/x", "media-search", domain.TrustMedium, 0.5)
	second := candidate("b", "https://example.com/x", "media-search", domain.TrustMedium, 0.5)

	out := dedupeCandidates([]domain.Candidate{first, second})
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("expected the first-seen candidate to survive, got %+v", out)
	}
}

func TestDedupeSurvivorKeepsFirstSeenPosition(t *testing.T) {
	in := []domain.Candidate{
		candidate("a", "https://example.com/1", "web-search", domain.TrustLow, 0.3),
		candidate("b", "https://example.com/2", "web-search", domain.TrustLow, 0.4),
		candidate("c", "https://example.com/1", "internal-index", domain.TrustHigh, 0.9),
	}
	out := dedupeCandidates(in)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "c" {
		t.Fatalf("survivor must occupy the group's first-seen slot, got %s", out[0].ID)
	}
	if out[1].ID != "b" {
		t.Fatalf("unrelated candidate moved, got %s", out[1].ID)
	}
}

func TestDedupeDistinctURLsUntouched(t *testing.T) {
	in := []domain.Candidate{
		candidate("a", "https://example.com/1", "web-search", domain.TrustLow, 0.3),
		candidate("b", "https://example.com/2", "web-search", domain.TrustLow, 0.4),
	}
	out := dedupeCandidates(in)
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("distinct URLs must pass through in order, got %+v", out)
	}
}

func TestDedupeFallsBackToRawURL(t *testing.T) {
	a := candidate("a", "", "web-search", domain.TrustLow, 0.3)
	a.URL = "https://example.com/raw"
	b := candidate("b", "", "web-search", domain.TrustLow, 0.8)
	b.URL = "https://example.com/raw"

	out := dedupeCandidates([]domain.Candidate{a, b})
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("expected raw-URL dedupe to keep the stronger candidate, got %+v", out)
	}
}
