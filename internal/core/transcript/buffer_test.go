package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

type fakeTurnStore struct {
	mu        sync.Mutex
	rows      map[string][]domain.RawTurn
	listCalls int
	appendErr error
	clearErr  error
	// clearing, when set, is closed on entry to ClearTurns, which then waits
	// for release.
	clearing chan struct{}
	release  chan struct{}
}

func newFakeTurnStore() *fakeTurnStore {
	return &fakeTurnStore{rows: map[string][]domain.RawTurn{}}
}

func (f *fakeTurnStore) AppendTurn(_ context.Context, turn domain.RawTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows[turn.SessionID] = append(f.rows[turn.SessionID], turn)
	return nil
}

func (f *fakeTurnStore) ListTurns(_ context.Context, sessionID string) ([]domain.RawTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]domain.RawTurn(nil), f.rows[sessionID]...), nil
}

func (f *fakeTurnStore) ClearTurns(_ context.Context, sessionID string) error {
	if f.clearing != nil {
		close(f.clearing)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.rows, sessionID)
	return nil
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	base := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestAppendConsolidatesSameSpeaker(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Options{Window: 10, Now: fixedClock()})

	_, err := store.Append(ctx, "s1", "Alice", "hello")
	require.NoError(t, err)
	turns, err := store.Append(ctx, "s1", "Alice", "world")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello world", turns[0].Text)
	assert.Equal(t, time.Date(2026, 3, 3, 10, 0, 2, 0, time.UTC), turns[0].Timestamp)

	turns, err = store.Append(ctx, "s1", "Bob", "hi")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestAppendRejectsBlankText(t *testing.T) {
	store := NewStore(Options{})
	_, err := store.Append(context.Background(), "s1", "Alice", "   ")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	turns, err := store.Recent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestWindowKeepsMostRecentTurns(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Options{Window: 3, QueryWindow: 2})
	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, "s1", fmt.Sprintf("Speaker%d", i), fmt.Sprintf("line %d", i))
		require.NoError(t, err)
	}

	turns, err := store.Recent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, []string{turns[0].Text, turns[1].Text, turns[2].Text})

	query, err := store.QueryWindow(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, query, 2)
	assert.Equal(t, "Speaker3: line 3\nSpeaker4: line 4", Format(query))
}

func TestRecentRehydratesFromDurableTier(t *testing.T) {
	ctx := context.Background()
	durable := newFakeTurnStore()
	clock := fixedClock()

	writer := NewStore(Options{Window: 3, Durable: durable, Now: clock})
	for _, seg := range [][2]string{{"Alice", "one"}, {"Alice", "two"}, {"Bob", "three"}, {"Carol", "four"}, {"Dan", "five"}} {
		_, err := writer.Append(ctx, "s1", seg[0], seg[1])
		require.NoError(t, err)
	}
	want, err := writer.Recent(ctx, "s1")
	require.NoError(t, err)

	restarted := NewStore(Options{Window: 3, Durable: durable})
	got, err := restarted.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReplayIsIdempotent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.RawTurn{
		{SessionID: "s1", Speaker: "Party A", Text: "we paid", CreatedAt: base},
		{SessionID: "s1", Speaker: "Party A", Text: "in full", CreatedAt: base.Add(time.Second)},
		{SessionID: "s1", Speaker: "Mediator", Text: "when?", CreatedAt: base.Add(2 * time.Second)},
	}
	first := Replay(rows, 10)
	second := Replay(rows, 10)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "we paid in full", first[0].Text)
	assert.Equal(t, domain.PartyA, first[0].Party)
	assert.Equal(t, base.Add(time.Second), first[0].Timestamp)
}

func TestClearDropsBufferAndDurableTurns(t *testing.T) {
	ctx := context.Background()
	durable := newFakeTurnStore()
	store := NewStore(Options{Durable: durable})

	_, err := store.Append(ctx, "s1", "Alice", "hello")
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx, "s1"))

	turns, err := store.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, durable.rows["s1"])
}

func TestReadDuringClearSeesNoClearedTurns(t *testing.T) {
	ctx := context.Background()
	durable := newFakeTurnStore()
	store := NewStore(Options{Durable: durable})

	_, err := store.Append(ctx, "s1", "Alice", "secret")
	require.NoError(t, err)

	durable.clearing = make(chan struct{})
	durable.release = make(chan struct{})
	cleared := make(chan error, 1)
	go func() { cleared <- store.Clear(ctx, "s1") }()
	<-durable.clearing

	read := make(chan []domain.Turn, 1)
	go func() {
		turns, _ := store.Recent(ctx, "s1")
		read <- turns
	}()
	time.Sleep(20 * time.Millisecond)
	close(durable.release)

	require.NoError(t, <-cleared)
	assert.Empty(t, <-read, "a read racing Clear must not resurrect the turns")

	turns, err := store.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestClearKeepsBufferWhenDurableClearFails(t *testing.T) {
	ctx := context.Background()
	durable := newFakeTurnStore()
	store := NewStore(Options{Durable: durable})

	_, err := store.Append(ctx, "s1", "Alice", "hello")
	require.NoError(t, err)

	durable.clearErr = errors.New("db down")
	err = store.Clear(ctx, "s1")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrTemporary))

	turns, err := store.Recent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Text)
}

func TestAppendDoesNotMutateBufferWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	durable := newFakeTurnStore()
	durable.appendErr = errors.New("db down")
	store := NewStore(Options{Durable: durable})

	_, err := store.Append(ctx, "s1", "Alice", "hello")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrTemporary))

	durable.appendErr = nil
	turns, err := store.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestConcurrentAppendsSameSessionAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Options{Window: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Append(ctx, "s1", fmt.Sprintf("S%d", i), "x")
		}(i)
	}
	wg.Wait()

	turns, err := store.Recent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 50)
}

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func TestTokenCountsUseCounter(t *testing.T) {
	store := NewStore(Options{Tokens: wordCounter{}})
	turns, err := store.Append(context.Background(), "s1", "Alice", "three small words")
	require.NoError(t, err)
	assert.Equal(t, 3, turns[0].Tokens)
}
