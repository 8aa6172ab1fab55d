package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nathfavour/flora/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func turn(id, raw string, o engine.Outcome) engine.Turn {
	now := time.Now()
	return engine.Turn{
		ID:       id,
		Raw:      raw,
		Cleaned:  raw,
		Path:     "clock",
		Outcome:  o,
		Response: "It is noon.",
		States:   []engine.State{engine.StateReceived, engine.StateRouted, engine.StateSkillExecuted},
		Started:  now,
		Finished: now.Add(time.Millisecond),
	}
}

func TestJournalRecordsTurns(t *testing.T) {
	ctx := context.Background()
	h := openStore(t)
	j, err := h.StartSession(ctx, "test run")
	require.NoError(t, err)

	require.NoError(t, j.RecordTurn(ctx, turn("t1", "what time is it", engine.OutcomeSkill)))
	failed := turn("t2", "tell me a joke", engine.OutcomeError)
	failed.Path = engine.PathFallback
	failed.Err = errors.New("connection refused")
	require.NoError(t, j.RecordTurn(ctx, failed))

	entries, err := h.SessionTurns(ctx, j.SessionID())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "t1", entries[0].TurnID)
	assert.Equal(t, "skill", entries[0].Outcome)
	assert.Equal(t, []string{"RECEIVED", "ROUTED", "SKILL_EXECUTED"}, entries[0].States)
	assert.False(t, entries[0].StartedAt.IsZero())

	assert.Equal(t, "t2", entries[1].TurnID)
	assert.Equal(t, engine.PathFallback, entries[1].Path)
	assert.Equal(t, "connection refused", entries[1].Error)
}

func TestJournalSkipsFilteredTurns(t *testing.T) {
	ctx := context.Background()
	h := openStore(t)
	j, err := h.StartSession(ctx, "")
	require.NoError(t, err)

	ignored := engine.Turn{ID: "x", Raw: "background noise", Outcome: engine.OutcomeIgnored, Reason: engine.ReasonFiltered}
	require.NoError(t, j.RecordTurn(ctx, ignored))

	entries, err := h.SessionTurns(ctx, j.SessionID())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecentSpansSessions(t *testing.T) {
	ctx := context.Background()
	h := openStore(t)

	first, err := h.StartSession(ctx, "first")
	require.NoError(t, err)
	require.NoError(t, first.RecordTurn(ctx, turn("a", "one", engine.OutcomeSkill)))
	require.NoError(t, first.RecordTurn(ctx, turn("b", "two", engine.OutcomeSkill)))

	second, err := h.StartSession(ctx, "second")
	require.NoError(t, err)
	require.NoError(t, second.RecordTurn(ctx, turn("c", "three", engine.OutcomeFallback)))

	recent, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].TurnID)
	assert.Equal(t, "c", recent[1].TurnID)

	sessions, err := h.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "second", sessions[0].Title)
	assert.Equal(t, 1, sessions[0].Turns)
	assert.Equal(t, 2, sessions[1].Turns)

	none, err := h.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	h := openStore(t)
	j, err := h.StartSession(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, j.RecordTurn(ctx, turn("a", "one", engine.OutcomeSkill)))

	require.NoError(t, h.DeleteSession(ctx, j.SessionID()))
	entries, err := h.SessionTurns(ctx, j.SessionID())
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, h.DeleteSession(ctx, j.SessionID()), ErrUnknownSession)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := NewHistoryStore(path)
	require.NoError(t, err)
	j, err := h.StartSession(ctx, "persist")
	require.NoError(t, err)
	require.NoError(t, j.RecordTurn(ctx, turn("p", "hello", engine.OutcomeSkill)))
	require.NoError(t, h.Close())

	h, err = NewHistoryStore(path)
	require.NoError(t, err)
	defer h.Close()
	recent, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "hello", recent[0].Raw)
}
