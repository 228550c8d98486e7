package email

import (
	"context"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"eventticketing/internal/domain"
)

// DefaultBreakerSettings opens after five consecutive send failures and
// probes again after a minute.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

type breakerMailer struct {
	next    domain.Mailer
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerMailer wraps next so that a failing provider is skipped quickly
// instead of slowing every request that sends mail. While the breaker is open
// Send returns gobreaker.ErrOpenState.
func NewBreakerMailer(next domain.Mailer, settings gobreaker.Settings, logger *slog.Logger) domain.Mailer {
	onStateChange := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("mailer circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}
	return &breakerMailer{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (m *breakerMailer) Send(ctx context.Context, to, subject, html, text string) error {
	_, err := m.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.Send(ctx, to, subject, html, text)
	})
	return err
}
