// Package redis keeps raw transcript turns in per-session Redis lists.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const defaultKeyPrefix = "evidence:transcript:"

type TranscriptStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

type storedTurn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTranscriptStore keeps each session's log for ttl after its last
// append. A zero ttl keeps logs until cleared. The log is never trimmed, so
// replay always sees every raw turn.
func NewTranscriptStore(client redis.UniversalClient, ttl time.Duration) *TranscriptStore {
	return &TranscriptStore{client: client, keyPrefix: defaultKeyPrefix, ttl: ttl}
}

func (s *TranscriptStore) AppendTurn(ctx context.Context, turn domain.RawTurn) error {
	payload, err := json.Marshal(storedTurn{Speaker: turn.Speaker, Text: turn.Text, CreatedAt: turn.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal transcript turn: %w", err)
	}
	key := s.key(turn.SessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append transcript turn: %w", err)
	}
	return nil
}

func (s *TranscriptStore) ListTurns(ctx context.Context, sessionID string) ([]domain.RawTurn, error) {
	values, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list transcript turns: %w", err)
	}
	out := make([]domain.RawTurn, 0, len(values))
	for _, v := range values {
		var st storedTurn
		if err := json.Unmarshal([]byte(v), &st); err != nil {
			return nil, fmt.Errorf("decode transcript turn: %w", err)
		}
		out = append(out, domain.RawTurn{SessionID: sessionID, Speaker: st.Speaker, Text: st.Text, CreatedAt: st.CreatedAt})
	}
	return out, nil
}

func (s *TranscriptStore) ClearTurns(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear transcript turns: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *TranscriptStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}
