package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	applogger "BubbleScope/pkg/logger"
)

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

// ErrPublisherOpen is returned while the breaker rejects publishes.
var ErrPublisherOpen = errors.New("result publisher circuit open")

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// BreakerSettings tunes the circuit breaker around the broker.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// KafkaResultPublisher emits fit reports keyed by symbol. After
// FailureThreshold consecutive failures it stops calling the broker until
// the breaker timeout elapses.
type KafkaResultPublisher struct {
	p     MessagePublisher
	topic string
	cb    *gobreaker.CircuitBreaker
	l     *applogger.Logger
}

func NewKafkaResultPublisher(p MessagePublisher, topic string, bs BreakerSettings) *KafkaResultPublisher {
	if bs.FailureThreshold == 0 {
		bs.FailureThreshold = 5
	}
	kp := &KafkaResultPublisher{p: p, topic: topic}
	kp.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka:" + topic,
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if kp.l != nil {
				kp.l.Warn("publisher breaker state change",
					applogger.String("breaker", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			}
		},
	})
	return kp
}

// SetLogger injects a structured logger.
func (k *KafkaResultPublisher) SetLogger(l *applogger.Logger) { k.l = l }

// State reports the breaker state.
func (k *KafkaResultPublisher) State() gobreaker.State { return k.cb.State() }

func (k *KafkaResultPublisher) Publish(ctx context.Context, r *models.FitReport) error {
	if r == nil {
		return nil
	}
	_, err := k.cb.Execute(func() (interface{}, error) {
		return nil, k.p.Publish(ctx, k.topic, []byte(r.Symbol), r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrPublisherOpen, err)
	}
	if err != nil {
		if k.l != nil {
			k.l.Error("publish fit report failed",
				applogger.String("topic", k.topic),
				applogger.String("symbol", r.Symbol),
				applogger.String("run_id", r.RunID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

func (k *KafkaResultPublisher) Close() error { return k.p.Close() }

// FanoutPublisher forwards a report to every publisher and joins the errors.
type FanoutPublisher []domrepo.ResultPublisher

func (f FanoutPublisher) Publish(ctx context.Context, r *models.FitReport) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f FanoutPublisher) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
