package usecase

import (
	"math"
	"strings"
	"testing"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRankWeightsProvidersOverNativeScore(t *testing.T) {
	weights := map[string]float64{
		"internal-index": 0.95,
		"web-search":     0.6,
	}
	trusted := candidate("a", "https://example.com/1", "internal-index", domain.TrustHigh, 0.6)
	trusted.Canonical = &domain.CanonicalEntity{ConceptID: "c-1", PreferredTerm: "Go", Confidence: 0.9, MatchedBy: domain.MatchExact}
	web := candidate("b", "https://example.com/2", "web-search", domain.TrustLow, 0.8)

	out := rankCandidates([]domain.Candidate{web, trusted}, weights)
	if out[0].ID != "a" {
		t.Fatalf("expected the trusted provider's candidate first, got %s", out[0].ID)
	}
	if !almostEqual(out[0].RankScore, 0.6*0.95+0.9*0.15) {
		t.Fatalf("rank score = %v", out[0].RankScore)
	}
	if !almostEqual(out[1].RankScore, 0.8*0.6) {
		t.Fatalf("rank score = %v", out[1].RankScore)
	}
}

func TestRankUnknownProviderGetsDefaultWeight(t *testing.T) {
	c := candidate("a", "https://example.com/1", "mystery", domain.TrustLow, 0.8)
	out := rankCandidates([]domain.Candidate{c}, map[string]float64{})
	if !almostEqual(out[0].RankScore, 0.8*defaultProviderWeight) {
		t.Fatalf("rank score = %v, want %v", out[0].RankScore, 0.8*defaultProviderWeight)
	}
}

func TestRankAssignsContiguousRanks(t *testing.T) {
	in := []domain.Candidate{
		candidate("a", "https://example.com/1", "web-search", domain.TrustLow, 0.1),
		candidate("b", "https://example.com/2", "web-search", domain.TrustLow, 0.9),
		candidate("c", "https://example.com/3", "web-search", domain.TrustLow, 0.5),
	}
	out := rankCandidates(in, nil)
	for i, c := range out {
		if c.Rank != i+1 {
			t.Fatalf("rank[%d] = %d", i, c.Rank)
		}
	}
	if out[0].ID != "b" || out[1].ID != "c" || out[2].ID != "a" {
		t.Fatalf("order = %s,%s,%s", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestRankTieBreaksByTierThenNativeThenFirstSeen(t *testing.T) {
	weights := map[string]float64{"p1": 0.5, "p2": 0.5}

	low := candidate("a", "https://example.com/1", "p1", domain.TrustLow, 0.8)
	high := candidate("b", "https://example.com/2", "p2", domain.TrustHigh, 0.8)
	out := rankCandidates([]domain.Candidate{low, high}, weights)
	if out[0].ID != "b" {
		t.Fatalf("equal rank scores must prefer the higher tier, got %s first", out[0].ID)
	}

	// Equal rank score and tier: compare native scores via different weights.
	strongNative := candidate("c", "https://example.com/3", "p1", domain.TrustLow, 0.8)
	weakNative := candidate("d", "https://example.com/4", "p2", domain.TrustLow, 0.4)
	out = rankCandidates([]domain.Candidate{weakNative, strongNative}, map[string]float64{"p1": 0.5, "p2": 1.0})
	if out[0].ID != "c" {
		t.Fatalf("equal rank score and tier must prefer the higher native score, got %s first", out[0].ID)
	}

	// Full tie: first-seen order wins.
	first := candidate("e", "https://example.com/5", "p1", domain.TrustLow, 0.8)
	second := candidate("f", "https://example.com/6", "p1", domain.TrustLow, 0.8)
	out = rankCandidates([]domain.Candidate{first, second}, weights)
	if out[0].ID != "e" {
		t.Fatalf("full tie must keep first-seen order, got %s first", out[0].ID)
	}
}

func TestRankExplanationNamesEveryFactor(t *testing.T) {
	c := candidate("a", "https://example.com/1", "internal-index", domain.TrustHigh, 0.6)
	c.Canonical = &domain.CanonicalEntity{ConceptID: "c-1", PreferredTerm: "Go", Confidence: 0.9, MatchedBy: domain.MatchAlias}

	out := rankCandidates([]domain.Candidate{c}, map[string]float64{"internal-index": 0.95})
	expl := out[0].Explanation
	for _, want := range []string{"native score", "provider weight", "canonical boost", "final"} {
		if !strings.Contains(expl, want) {
			t.Fatalf("explanation missing %q: %s", want, expl)
		}
	}

	plain := candidate("b", "https://example.com/2", "web-search", domain.TrustLow, 0.5)
	out = rankCandidates([]domain.Candidate{plain}, nil)
	if !strings.Contains(out[0].Explanation, "no canonical match") {
		t.Fatalf("explanation should note the missing canonical match: %s", out[0].Explanation)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := []domain.Candidate{
		candidate("a", "https://example.com/1", "p1", domain.TrustLow, 0.1),
		candidate("b", "https://example.com/2", "p1", domain.TrustLow, 0.9),
	}
	_ = rankCandidates(in, nil)
	if in[0].ID != "a" || in[0].Rank != 0 {
		t.Fatalf("input slice was mutated: %+v", in[0])
	}
}
