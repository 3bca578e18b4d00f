// Package resilience guards calls to flaky external services with a
// circuit breaker, so a failing dependency is skipped instead of waited on.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned without calling the operation while the breaker is open.
var ErrOpen = gobreaker.ErrOpenState

// BreakerConfig holds configuration for a Breaker. Zero values pick defaults.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before one trial call.
	Cooldown time.Duration
	Logger   *slog.Logger
}

// Breaker implements the circuit breaker pattern using gobreaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	maxFailures := uint32(cfg.MaxFailures)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A caller giving up is not the service's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs operation through the breaker. While the breaker is open it
// returns ErrOpen immediately.
func (b *Breaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, operation(ctx)
	})
	return err
}

// State reports "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
