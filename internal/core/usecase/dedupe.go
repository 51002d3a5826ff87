package usecase

import "github.com/kirillkom/federated-retrieval/internal/core/domain"

// dedupeCandidates collapses candidates sharing a canonical URL down to one.
// The survivor is the group member with the highest native score, ties broken
// by trust tier, then by first-seen order. Losers are discarded outright, not
// merged. Survivors keep the first-seen position of their group.
func dedupeCandidates(candidates []domain.Candidate) []domain.Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	out := make([]domain.Candidate, 0, len(candidates))
	position := make(map[string]int, len(candidates))

	for _, c := range candidates {
		key := c.CanonicalURL
		if key == "" {
			key = c.URL
		}
		i, seen := position[key]
		if !seen {
			position[key] = len(out)
			out = append(out, c)
			continue
		}
		if strongerDuplicate(c, out[i]) {
			out[i] = c
		}
	}
	return out
}

// strongerDuplicate reports whether challenger should replace incumbent
// within a duplicate group. On a full tie the incumbent (first seen) wins.
func strongerDuplicate(challenger, incumbent domain.Candidate) bool {
	if challenger.Signals.Score != incumbent.Signals.Score {
		return challenger.Signals.Score > incumbent.Signals.Score
	}
	return challenger.Source.Tier.Order() > incumbent.Source.Tier.Order()
}
