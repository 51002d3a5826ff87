package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
	"github.com/kirillkom/federated-retrieval/internal/core/ports"
	"github.com/kirillkom/federated-retrieval/internal/observability/metrics"
)

// TrafficConfig bounds the API surface: token-bucket rate limiting and a
// backpressure gate on concurrent requests.
type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueTimeout   time.Duration
}

type Router struct {
	service   string
	retriever ports.Retriever
	providers []ports.SearchProvider
	gate      ports.ProviderGate
	metrics   *metrics.RetrievalMetrics
	traffic   TrafficConfig
}

func NewRouter(
	service string,
	retriever ports.Retriever,
	providers []ports.SearchProvider,
	gate ports.ProviderGate,
	m *metrics.RetrievalMetrics,
	traffic TrafficConfig,
) *Router {
	return &Router{
		service:   service,
		retriever: retriever,
		providers: providers,
		gate:      gate,
		metrics:   m,
		traffic:   traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/providers", rt.listProviders)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, rt.traffic.QueueTimeout)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrieveRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
	Mode      string   `json:"mode"`
	Providers []string `json:"providers"`
	TimeoutMs int      `json:"timeout_ms"`
	Expand    bool     `json:"expand"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.retriever.Retrieve(r.Context(), domain.RetrievalRequest{
		Query:     req.Query,
		Limit:     req.Limit,
		Mode:      domain.RetrievalMode(req.Mode),
		Providers: req.Providers,
		Timeout:   time.Duration(req.TimeoutMs) * time.Millisecond,
		Expand:    req.Expand,
	})
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordRejectedRetrieval(rt.service)
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(rt.service, result)
	}
	writeJSON(w, http.StatusOK, result)
}

type providerInfo struct {
	Name         string  `json:"name"`
	Tier         string  `json:"tier"`
	Weight       float64 `json:"weight"`
	TimeoutMs    int64   `json:"timeout_ms"`
	BreakerState string  `json:"breaker_state"`
}

func (rt *Router) listProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	infos := make([]providerInfo, 0, len(rt.providers))
	for _, p := range rt.providers {
		info := providerInfo{
			Name:      p.Name(),
			Tier:      string(p.TrustTier()),
			Weight:    p.Weight(),
			TimeoutMs: p.Timeout().Milliseconds(),
		}
		if rt.gate != nil {
			info.BreakerState = rt.gate.State(p.Name())
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": infos})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
