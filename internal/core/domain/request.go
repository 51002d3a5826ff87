package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

type RetrievalMode string

const (
	ModeVector RetrievalMode = "vector"
	ModeText   RetrievalMode = "text"
	ModeHybrid RetrievalMode = "hybrid"
)

const (
	DefaultResultLimit = 10
	MaxResultLimit     = 500
)

// RetrievalRequest describes one federated retrieval call. It is immutable
// for the life of the orchestration: Normalize returns a filled copy.
type RetrievalRequest struct {
	Query     string        `json:"query"`
	Limit     int           `json:"limit,omitempty"`
	Mode      RetrievalMode `json:"mode,omitempty"`
	Providers []string      `json:"providers,omitempty"`
	Timeout   time.Duration `json:"timeout_ms,omitempty"`
	Expand    bool          `json:"expand,omitempty"`
}

func (r RetrievalRequest) Normalize() RetrievalRequest {
	out := r
	out.Query = strings.TrimSpace(r.Query)
	if out.Limit == 0 {
		out.Limit = DefaultResultLimit
	}
	if out.Mode == "" {
		out.Mode = ModeHybrid
	}
	return out
}

func (r RetrievalRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}
	if r.Limit < 1 || r.Limit > MaxResultLimit {
		return fmt.Errorf("%w: limit %d out of range [1,%d]", ErrInvalidRequest, r.Limit, MaxResultLimit)
	}
	switch r.Mode {
	case ModeVector, ModeText, ModeHybrid:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	return nil
}

// Fingerprint is the deterministic cache key for this request. Query text is
// lower-cased with collapsed whitespace and the provider allow-list is sorted,
// so equivalent requests always share one cache entry.
func (r RetrievalRequest) Fingerprint() string {
	query := strings.ToLower(strings.Join(strings.Fields(r.Query), " "))

	providers := append([]string(nil), r.Providers...)
	sort.Strings(providers)

	h := sha256.New()
	fmt.Fprintf(h, "q=%s|mode=%s|providers=%s|limit=%d|expand=%t",
		query, r.Mode, strings.Join(providers, ","), r.Limit, r.Expand)
	return hex.EncodeToString(h.Sum(nil))
}
