package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

// ErrorClassification tells the executor whether an error is worth another
// attempt and whether it counts against the circuit breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Guard puts the cases every adapter agrees on in front of classifier:
// cancellation is never retried nor counted, and an open breaker is
// reported as transient so callers surface it as a temporary outage.
func Guard(classifier ErrorClassifier) ErrorClassifier {
	if classifier == nil {
		classifier = defaultClassifier
	}
	return func(err error) ErrorClassification {
		switch {
		case err == nil:
			return ErrorClassification{}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Rejected
		case IsCircuitOpen(err):
			return Transient
		}
		return classifier(err)
	}
}

// WrapTemporary marks err as domain.ErrTemporary when classifier would retry
// it, leaving everything else untouched.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if Guard(classifier)(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	classifier = Guard(classifier)

	if !e.cfg.BreakerEnabled {
		return e.executeWithRetry(ctx, op, fn, classifier)
	}

	breaker := e.circuitBreaker(op, classifier)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.executeWithRetry(ctx, op, fn, classifier)
	})
	return err
}

func (e *Executor) executeWithRetry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	maxAttempts := e.cfg.RetryMaxAttempts
	attempt := 0

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !classifier(err).Retryable {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("upstream_retry",
			"operation", operation,
			"attempt", attempt,
			"remaining", maxAttempts-attempt,
			"wait", wait.String(),
			"error", err,
		)
	}

	return backoff.RetryNotify(op, backoff.WithContext(e.backOff(), ctx), notify)
}

// backOff builds a fresh jitter-free schedule capped at RetryMaxAttempts
// calls in total.
func (e *Executor) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInitialBackoff
	b.MaxInterval = e.cfg.RetryMaxBackoff
	b.Multiplier = e.cfg.RetryMultiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(e.cfg.RetryMaxAttempts-1))
}

func (e *Executor) circuitBreaker(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) ErrorClassification {
	return Failed
}
