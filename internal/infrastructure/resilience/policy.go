package resilience

import "time"

type Config struct {
	// FailureThreshold trips the breaker after this many consecutive
	// failures from the closed state.
	FailureThreshold uint32
	// ResetTimeout is the open-state cooldown before a half-open trial.
	ResetTimeout time.Duration
	// SuccessThreshold closes the breaker after this many consecutive
	// half-open successes.
	SuccessThreshold uint32
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 1,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.FailureThreshold == 0 {
		out.FailureThreshold = def.FailureThreshold
	}
	if out.ResetTimeout <= 0 {
		out.ResetTimeout = def.ResetTimeout
	}
	if out.SuccessThreshold == 0 {
		out.SuccessThreshold = def.SuccessThreshold
	}
	return out
}
