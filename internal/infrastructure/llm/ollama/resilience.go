package ollama

import (
	"errors"
	"fmt"
	"net"

	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

// StatusError is a non-2xx answer from the Ollama API, kept with the start
// of its body since Ollama explains model errors there.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("ollama %s returned %d", e.Endpoint, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// classify is wrapped by resilience.Guard, so cancellation and open
// breakers never reach it.
func classify(err error) resilience.ErrorClassification {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if resilience.RetryableStatus(statusErr.Code) {
			return resilience.Transient
		}
		return resilience.Rejected
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Failed
}
