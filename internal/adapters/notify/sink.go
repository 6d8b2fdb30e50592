package notify

import (
	"context"
	"errors"
	"time"

	"royal-collector/internal/adapters/persistence/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Sink is anything that can deliver an alert
type Sink interface {
	Name() string
	Deliver(ctx context.Context, alert *models.Alert) error
}

// LogSink writes alerts to the log. It is the fallback when no real channel is configured.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a log sink
func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

// Name identifies the sink in logs
func (s *LogSink) Name() string {
	return "log"
}

// Deliver logs the alert
func (s *LogSink) Deliver(ctx context.Context, alert *models.Alert) error {
	s.log.Info("alert delivered",
		zap.Uint("alert_id", alert.ID),
		zap.String("target_email", alert.TargetEmail),
		zap.String("severity", string(alert.Severity)),
		zap.String("title", alert.Title),
	)
	return nil
}

// Fanout delivers to every sink and joins their errors
type Fanout []Sink

// Name identifies the sink in logs
func (f Fanout) Name() string {
	return "fanout"
}

// Deliver sends to all sinks even when one fails
func (f Fanout) Deliver(ctx context.Context, alert *models.Alert) error {
	var errs []error
	for _, s := range f {
		if err := s.Deliver(ctx, alert); err != nil {
			errs = append(errs, errors.New(s.Name()+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

// BreakerSettings configures the circuit breaker around a sink
type BreakerSettings struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration
	Interval            time.Duration
}

// DefaultBreakerSettings trips after five straight failures and tries again after 30s
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		Interval:            time.Minute,
	}
}

// BreakerSink stops calling a failing sink until it has had time to recover
type BreakerSink struct {
	next    Sink
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker
func WithBreaker(next Sink, settings BreakerSettings, log *zap.Logger) *BreakerSink {
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alerts-" + next.Name(),
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerSink{next: next, breaker: cb}
}

// Name identifies the sink in logs
func (s *BreakerSink) Name() string {
	return s.next.Name()
}

// Deliver forwards to the wrapped sink unless the breaker is open
func (s *BreakerSink) Deliver(ctx context.Context, alert *models.Alert) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.next.Deliver(ctx, alert)
	})
	return err
}

// State reports the breaker state
func (s *BreakerSink) State() gobreaker.State {
	return s.breaker.State()
}
