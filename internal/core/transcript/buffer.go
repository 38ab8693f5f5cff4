// Package transcript keeps a bounded window of consolidated speaker turns per
// session, backed by an optional durable store of raw turns.
package transcript

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

const (
	defaultWindow      = 10
	defaultQueryWindow = 4
	defaultMaxSessions = 1024
	unknownSpeaker     = "Unknown"
)

type Options struct {
	Window      int
	QueryWindow int
	MaxSessions int
	Durable     ports.TurnStore
	Tokens      ports.TokenCounter
	Now         func() time.Time
}

// Store owns the per-session buffers. Appends for one session are
// serialized; different sessions only share the brief cache lookup.
type Store struct {
	window      int
	queryWindow int
	durable     ports.TurnStore
	tokens      ports.TokenCounter
	now         func() time.Time

	mu       sync.Mutex
	sessions *lru.Cache[string, *sessionBuffer]
}

type sessionBuffer struct {
	mu    sync.Mutex
	turns []domain.Turn
}

func NewStore(opts Options) *Store {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.QueryWindow <= 0 {
		opts.QueryWindow = defaultQueryWindow
	}
	if opts.QueryWindow > opts.Window {
		opts.QueryWindow = opts.Window
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *sessionBuffer](opts.MaxSessions)
	return &Store{
		window:      opts.Window,
		queryWindow: opts.QueryWindow,
		durable:     opts.Durable,
		tokens:      opts.Tokens,
		now:         opts.Now,
		sessions:    cache,
	}
}

func (s *Store) Window() int {
	return s.window
}

// Append persists the raw turn, then merges it into the session window and
// returns the resulting window.
func (s *Store) Append(ctx context.Context, sessionID, speaker, text string) ([]domain.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "transcript append", "empty text")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "transcript append", "session id is required")
	}
	speaker = strings.TrimSpace(speaker)
	if speaker == "" {
		speaker = unknownSpeaker
	}

	buf := s.buffer(sessionID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if err := s.hydrateLocked(ctx, sessionID, buf); err != nil {
		return nil, err
	}

	raw := domain.RawTurn{SessionID: sessionID, Speaker: speaker, Text: text, CreatedAt: s.now()}
	if s.durable != nil {
		if err := s.durable.AppendTurn(ctx, raw); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "persist transcript turn", err)
		}
	}
	buf.turns = truncate(merge(buf.turns, raw), s.window)
	s.countTokens(buf.turns)
	return cloneTurns(buf.turns), nil
}

// Recent returns the full window, oldest first.
func (s *Store) Recent(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	buf := s.buffer(sessionID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if err := s.hydrateLocked(ctx, sessionID, buf); err != nil {
		return nil, err
	}
	return cloneTurns(buf.turns), nil
}

// QueryWindow returns the last QueryWindow turns of the buffer.
func (s *Store) QueryWindow(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	turns, err := s.Recent(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Tail(turns, s.queryWindow), nil
}

// Clear drops the persisted raw turns and the in-memory buffer. The session
// lock is held throughout, so no reader can rehydrate rows that are about to
// be deleted. On a durable failure the buffer is left as it was.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	buf := s.buffer(sessionID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if s.durable != nil {
		if err := s.durable.ClearTurns(ctx, sessionID); err != nil {
			return domain.WrapError(domain.ErrTemporary, "clear transcript turns", err)
		}
	}
	buf.turns = nil

	s.mu.Lock()
	s.sessions.Remove(sessionID)
	s.mu.Unlock()
	return nil
}

// Hydrate fills an empty buffer from the durable tier. It is a no-op when the
// buffer already holds turns or no durable tier is configured.
func (s *Store) Hydrate(ctx context.Context, sessionID string) error {
	buf := s.buffer(sessionID)
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return s.hydrateLocked(ctx, sessionID, buf)
}

func (s *Store) hydrateLocked(ctx context.Context, sessionID string, buf *sessionBuffer) error {
	if len(buf.turns) > 0 || s.durable == nil {
		return nil
	}
	rows, err := s.durable.ListTurns(ctx, sessionID)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "load transcript turns", err)
	}
	buf.turns = Replay(rows, s.window)
	s.countTokens(buf.turns)
	return nil
}

func (s *Store) buffer(sessionID string) *sessionBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.sessions.Get(sessionID); ok {
		return buf
	}
	buf := &sessionBuffer{}
	s.sessions.Add(sessionID, buf)
	return buf
}

func (s *Store) countTokens(turns []domain.Turn) {
	for i := range turns {
		turns[i].Tokens = countTokens(s.tokens, turns[i].Text)
	}
}

// Replay rebuilds a window from raw turns, oldest first, using the same
// merge and truncation rules as Append.
func Replay(rows []domain.RawTurn, window int) []domain.Turn {
	var turns []domain.Turn
	for _, row := range rows {
		turns = merge(turns, row)
	}
	return truncate(turns, window)
}

func merge(turns []domain.Turn, raw domain.RawTurn) []domain.Turn {
	if n := len(turns); n > 0 && turns[n-1].Speaker == raw.Speaker {
		turns[n-1].Text += " " + raw.Text
		turns[n-1].Timestamp = raw.CreatedAt
		return turns
	}
	turn := domain.Turn{Speaker: raw.Speaker, Text: raw.Text, Timestamp: raw.CreatedAt}
	if party, ok := domain.ResolveSpeakerParty(raw.Speaker); ok {
		turn.Party = party
	}
	return append(turns, turn)
}

func truncate(turns []domain.Turn, window int) []domain.Turn {
	if window <= 0 || len(turns) <= window {
		return turns
	}
	kept := make([]domain.Turn, window)
	copy(kept, turns[len(turns)-window:])
	return kept
}

// Tail returns the last n turns.
func Tail(turns []domain.Turn, n int) []domain.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func cloneTurns(turns []domain.Turn) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

func countTokens(counter ports.TokenCounter, text string) int {
	if counter != nil {
		return counter.CountTokens(text)
	}
	return (len([]rune(text)) + 3) / 4
}
