package resilience

import (
	"net/http"
	"time"
)

// Config drives both the retry schedule and the per-operation breaker.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// Interactive is the policy for calls made while a party waits on a
// challenge: one attempt, and the breaker opens sooner.
func Interactive(breaker bool) Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = breaker
	cfg.BreakerMinRequests = 5
	cfg.BreakerOpenTimeout = 15 * time.Second
	return cfg
}

// Background is the policy for ingestion and transcript plumbing, where
// latency matters less than getting the document indexed.
func Background(attempts int, breaker bool) Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = attempts
	cfg.RetryMaxBackoff = 2 * time.Second
	cfg.BreakerEnabled = breaker
	return cfg
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	out.RetryMaxAttempts = positiveOr(out.RetryMaxAttempts, def.RetryMaxAttempts)
	out.RetryInitialBackoff = positiveOr(out.RetryInitialBackoff, def.RetryInitialBackoff)
	out.RetryMaxBackoff = max(positiveOr(out.RetryMaxBackoff, def.RetryMaxBackoff), out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	out.BreakerMinRequests = positiveOr(out.BreakerMinRequests, def.BreakerMinRequests)
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = positiveOr(out.BreakerOpenTimeout, def.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = positiveOr(out.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return out
}

func positiveOr[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

// Canned classifications shared by the adapters.
var (
	// Transient errors are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Failed errors are final and count against the breaker.
	Failed = ErrorClassification{Retryable: false, RecordFailure: true}
	// Rejected errors are the caller's fault: final, breaker untouched.
	Rejected = ErrorClassification{Retryable: false, RecordFailure: false}
)

// RetryableStatus reports whether an upstream HTTP status is worth another
// attempt.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
