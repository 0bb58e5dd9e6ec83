package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/resilience"
)

// publishOperation names the breaker guarding analysis job publishes.
const publishOperation = "nats.publish_analysis"

// Connection loss is retried; a job the server rejects (oversized payload,
// bad subject) is a caller bug and does not trip the breaker.
var (
	transientNATSErrors = []error{
		nats.ErrNoServers,
		nats.ErrTimeout,
		nats.ErrConnectionClosed,
		nats.ErrConnectionReconnecting,
		nats.ErrDisconnected,
		nats.ErrSlowConsumer,
	}
	rejectedJobErrors = []error{
		nats.ErrMaxPayload,
		nats.ErrBadSubject,
		nats.ErrInvalidMsg,
	}
)

var classifyNATSError = resilience.ContextClassifier(func(err error) resilience.ErrorClassification {
	switch {
	case resilience.IsCircuitOpen(err), isAny(err, transientNATSErrors):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case isAny(err, rejectedJobErrors):
		return resilience.ErrorClassification{}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
})

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapTemporaryIfNeeded marks publish failures a client may retry later; the
// HTTP layer answers those with 503.
func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "publish analysis job", err)
	}
	return err
}
