package resilience

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker/v2"
)

// StateChangeFunc observes breaker transitions, e.g. for metrics.
type StateChangeFunc func(provider, from, to string)

// BreakerRegistry owns one circuit breaker per provider. Breakers are created
// lazily on first use, live for the process lifetime and are independent: one
// provider's failures never affect another's eligibility.
//
// It implements ports.ProviderGate via gobreaker's two-step breaker: Allow
// reserves the call and the returned callback reports its outcome, which
// keeps gating and recording safe under concurrent requests and
// timeout-firing paths.
type BreakerRegistry struct {
	cfg      Config
	onChange StateChangeFunc

	mu       sync.Mutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker[any]
}

func NewBreakerRegistry(cfg Config, onChange StateChangeFunc) *BreakerRegistry {
	return &BreakerRegistry{
		cfg:      cfg.normalize(),
		onChange: onChange,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker[any]),
	}
}

func (r *BreakerRegistry) Allow(provider string) (func(success bool), error) {
	done, err := r.breaker(provider).Allow()
	if err != nil {
		return nil, err
	}
	return done, nil
}

func (r *BreakerRegistry) State(provider string) string {
	return r.breaker(provider).State().String()
}

func (r *BreakerRegistry) breaker(provider string) *gobreaker.TwoStepCircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[provider]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: r.cfg.SuccessThreshold,
		Timeout:     r.cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change",
				"provider", name, "from", from.String(), "to", to.String())
			if r.onChange != nil {
				r.onChange(name, from.String(), to.String())
			}
		},
	}

	b := gobreaker.NewTwoStepCircuitBreaker[any](settings)
	r.breakers[provider] = b
	return b
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
