package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/resilience"
)

const (
	DefaultSubject    = "transcript.segments"
	DefaultQueueGroup = "evidence-transcript"
)

// Feed carries live transcript segments from meeting bots to the API.
type Feed struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	executor   *resilience.Executor
}

type Options struct {
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Feed, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Feed, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = DefaultQueueGroup
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("evidence-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Feed{
		conn:       conn,
		subject:    subject,
		queueGroup: queueGroup,
		executor:   options.ResilienceExecutor,
	}, nil
}

func (f *Feed) Close() {
	if f.conn != nil {
		f.conn.Close()
	}
}

func (f *Feed) Subject() string {
	return f.subject
}

func (f *Feed) PublishSegment(ctx context.Context, segment ports.TranscriptSegment) error {
	data, err := encodeSegment(segment)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := f.conn.Publish(f.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if f.executor != nil {
		err = f.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.WrapTemporary("nats publish", err, classifyPublishError)
	}
	return nil
}

// SubscribeSegments blocks until ctx is done, then drains the
// subscription. Malformed messages and handler failures are logged and
// dropped.
func (f *Feed) SubscribeSegments(ctx context.Context, handler func(context.Context, ports.TranscriptSegment) error) error {
	sub, err := f.conn.QueueSubscribe(f.subject, f.queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		segment, err := decodeSegment(msg.Data)
		if err != nil {
			slog.Warn("transcript_segment_malformed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, segment); err != nil {
			slog.Warn("transcript_segment_failed", "session_id", segment.SessionID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := f.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := f.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeSegment(segment ports.TranscriptSegment) ([]byte, error) {
	if strings.TrimSpace(segment.SessionID) == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "publish segment", "session_id is required")
	}
	data, err := json.Marshal(segment)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript segment: %w", err)
	}
	return data, nil
}

func decodeSegment(data []byte) (ports.TranscriptSegment, error) {
	var segment ports.TranscriptSegment
	if err := json.Unmarshal(data, &segment); err != nil {
		return ports.TranscriptSegment{}, fmt.Errorf("decode transcript segment: %w", err)
	}
	if strings.TrimSpace(segment.SessionID) == "" {
		return ports.TranscriptSegment{}, errors.New("decode transcript segment: session_id is required")
	}
	return segment, nil
}
