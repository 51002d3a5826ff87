package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

const (
	// defaultProviderWeight applies when a candidate's provider is unknown
	// to the ranker.
	defaultProviderWeight = 0.5
	// canonicalBoostFactor scales the resolved entity confidence into the
	// rank score.
	canonicalBoostFactor = 0.15
)

// rankCandidates fuses each candidate's native score, its provider's trust
// weight and any canonical-entity boost into one total, deterministic order.
// Native scores are treated as already comparable across providers; no
// calibration step exists, which is a known limitation.
func rankCandidates(candidates []domain.Candidate, weights map[string]float64) []domain.Candidate {
	ranked := append([]domain.Candidate(nil), candidates...)

	for i := range ranked {
		weight, ok := weights[ranked[i].Source.Provider]
		if !ok {
			weight = defaultProviderWeight
		}

		native := ranked[i].Signals.Score
		boost := 0.0
		if ranked[i].Canonical != nil {
			boost = ranked[i].Canonical.Confidence * canonicalBoostFactor
		}
		ranked[i].RankScore = native*weight + boost
		ranked[i].Explanation = explainRank(ranked[i], native, weight, boost)
	}

	// Stable sort keeps first-seen order as the final tie-break.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RankScore != ranked[j].RankScore {
			return ranked[i].RankScore > ranked[j].RankScore
		}
		if ranked[i].Source.Tier != ranked[j].Source.Tier {
			return ranked[i].Source.Tier.Order() > ranked[j].Source.Tier.Order()
		}
		return ranked[i].Signals.Score > ranked[j].Signals.Score
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func explainRank(c domain.Candidate, native, weight, boost float64) string {
	base := fmt.Sprintf("native score %.3f x provider weight %.2f (%s, %s trust) = %.3f",
		native, weight, c.Source.Provider, c.Source.Tier, native*weight)
	if c.Canonical == nil {
		return base + "; no canonical match; final " + fmt.Sprintf("%.3f", native*weight)
	}
	return base + fmt.Sprintf("; canonical boost +%.3f (%s %q, confidence %.2f); final %.3f",
		boost, c.Canonical.MatchedBy, c.Canonical.PreferredTerm, c.Canonical.Confidence, native*weight+boost)
}
