package domain

import "time"

// AuditRequestRecord is the request-level audit entry for one retrieval.
type AuditRequestRecord struct {
	RequestID  string          `json:"request_id"`
	Query      string          `json:"query"`
	Mode       RetrievalMode   `json:"mode"`
	CacheHit   bool            `json:"cache_hit"`
	Providers  []ProviderStats `json:"providers"`
	Candidates int             `json:"candidates"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditCandidateRecord is emitted once per surviving candidate.
type AuditCandidateRecord struct {
	RequestID    string  `json:"request_id"`
	CandidateID  string  `json:"candidate_id"`
	Provider     string  `json:"provider"`
	URL          string  `json:"url"`
	CanonicalURL string  `json:"canonical_url"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
	ConceptID    string  `json:"concept_id,omitempty"`
	MatchedBy    string  `json:"matched_by,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// AuditRankRecord is emitted once per ranked candidate.
type AuditRankRecord struct {
	RequestID   string  `json:"request_id"`
	CandidateID string  `json:"candidate_id"`
	Rank        int     `json:"rank"`
	RankScore   float64 `json:"rank_score"`
}

// AuditEvent bundles every audit record produced by one orchestration call.
// Emission is best-effort: sink failures never fail the retrieval.
type AuditEvent struct {
	Request    AuditRequestRecord     `json:"request"`
	Candidates []AuditCandidateRecord `json:"candidates,omitempty"`
	Ranks      []AuditRankRecord      `json:"ranks,omitempty"`
}

// NewAuditEvent derives the full audit payload from a finished result.
func NewAuditEvent(res *RetrievalResult, requestErr error) AuditEvent {
	event := AuditEvent{
		Request: AuditRequestRecord{
			RequestID:  res.RequestID,
			Query:      res.Query,
			Mode:       res.Mode,
			CacheHit:   res.CacheHit,
			Providers:  res.Providers,
			Candidates: len(res.Candidates),
			DurationMs: res.DurationMs,
			CreatedAt:  time.Now().UTC(),
		},
	}
	if requestErr != nil {
		event.Request.Error = requestErr.Error()
	}

	for _, c := range res.Candidates {
		record := AuditCandidateRecord{
			RequestID:    res.RequestID,
			CandidateID:  c.ID,
			Provider:     c.Source.Provider,
			URL:          c.URL,
			CanonicalURL: c.CanonicalURL,
			Title:        c.Title,
			Score:        c.Signals.Score,
		}
		if c.Canonical != nil {
			record.ConceptID = c.Canonical.ConceptID
			record.MatchedBy = c.Canonical.MatchedBy
			record.Confidence = c.Canonical.Confidence
		}
		event.Candidates = append(event.Candidates, record)
		event.Ranks = append(event.Ranks, AuditRankRecord{
			RequestID:   res.RequestID,
			CandidateID: c.ID,
			Rank:        c.Rank,
			RankScore:   c.RankScore,
		})
	}
	return event
}
