package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

// connectionErrors are the client states that clear up once the
// reconnect loop finds a server again.
var connectionErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

func classifyPublishError(err error) resilience.ErrorClassification {
	for _, target := range connectionErrors {
		if errors.Is(err, target) {
			return resilience.Transient
		}
	}
	if errors.Is(err, nats.ErrBadSubject) || errors.Is(err, nats.ErrMaxPayload) {
		return resilience.Rejected
	}
	return resilience.Failed
}
