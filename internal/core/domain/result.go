package domain

const (
	ProviderStatusSuccess = "success"
	ProviderStatusFailure = "failure"
	ProviderStatusTimeout = "timeout"
	ProviderStatusSkipped = "skipped"
)

// ProviderStats summarizes one provider's part in one retrieval call.
type ProviderStats struct {
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Candidates int    `json:"candidates"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RetrievalResult is the ordered, explainable outcome of one orchestration.
type RetrievalResult struct {
	RequestID  string          `json:"request_id"`
	Query      string          `json:"query"`
	Mode       RetrievalMode   `json:"mode"`
	Candidates []Candidate     `json:"candidates"`
	Providers  []ProviderStats `json:"providers"`
	CacheHit   bool            `json:"cache_hit"`
	Total      int             `json:"total"`
	DurationMs int64           `json:"duration_ms"`
}
