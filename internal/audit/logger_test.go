package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/firstaid/internal/model"
)

// memStore is an in-memory EventStore.
type memStore struct {
	events []model.AuditEvent
	err    error
}

func (m *memStore) InsertAuditEvent(_ context.Context, ev model.AuditEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) ListAuditEvents(_ context.Context, scopeID, userID string, limit int) ([]model.AuditEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.AuditEvent
	for _, ev := range m.events {
		if ev.ScopeID == scopeID && ev.UserID == userID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLogger(store EventStore) *Logger {
	l := NewLogger(store, "firstaid-test", quietLogger())
	clock := ts
	l.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return l
}

func TestLoggerAppendAndFetch(t *testing.T) {
	store := &memStore{}
	l := newTestLogger(store)
	ctx := context.Background()

	require.True(t, l.Append(ctx, "u1", model.EventLogin, nil))
	require.True(t, l.Append(ctx, "u1", model.EventModuleComplete, map[string]any{"moduleName": "Burns"}))
	require.True(t, l.Append(ctx, "u2", model.EventLogin, nil))
	require.True(t, l.Append(ctx, "u1", model.EventLevelUp, map[string]any{"newLevel": 2}))

	ev := store.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "firstaid-test", ev.ScopeID)
	assert.Equal(t, model.AuditVersion, ev.Version)
	assert.NotNil(t, ev.Details)
	assert.Equal(t, time.UTC, ev.Timestamp.Location())

	got := l.FetchRecent(ctx, "u1", 0)
	require.Len(t, got, 3)
	assert.Equal(t, model.EventLevelUp, got[0].Type)
	assert.Equal(t, model.EventLogin, got[2].Type)

	limited := l.FetchRecent(ctx, "u1", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, model.EventModuleComplete, limited[1].Type)

	assert.Empty(t, l.FetchRecent(ctx, "nobody", 10))
}

func TestLoggerSwallowsStoreFailures(t *testing.T) {
	l := newTestLogger(&memStore{err: errors.New("store unreachable")})
	ctx := context.Background()

	assert.False(t, l.Append(ctx, "u1", model.EventLogin, nil))

	got := l.FetchRecent(ctx, "u1", 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWriteCSV(t *testing.T) {
	ctx := langCtx(t, "en")
	events := []model.AuditEvent{
		{ID: "1", Timestamp: ts, Type: model.EventModuleComplete, Details: map[string]any{"moduleName": "Burns, scalds"}},
		{ID: "2", Timestamp: ts.Add(time.Hour), Type: model.EventLogin, Details: map[string]any{}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(ctx, &buf, Formatter{}, events))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"Mar 1, 2025 09:30", "Completed module: Burns, scalds", `{"moduleName":"Burns, scalds"}`}, records[1])
	assert.Equal(t, []string{"Mar 1, 2025 10:30", "Logged in", "{}"}, records[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(context.Background(), &buf, Formatter{}, nil))
	assert.Equal(t, "Timestamp,Event,Details\n", buf.String())
}

func TestSummarize(t *testing.T) {
	events := []model.AuditEvent{
		{Type: model.EventLogin, Timestamp: ts},
		{Type: model.EventLogin, Timestamp: ts.Add(2 * time.Hour)},
		{Type: model.EventExamStart, Timestamp: ts.Add(time.Hour)},
	}

	sum := Summarize(events)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.ByType[model.EventLogin])
	assert.Equal(t, 1, sum.ByType[model.EventExamStart])
	require.NotNil(t, sum.LastActivity)
	assert.Equal(t, ts.Add(2*time.Hour), *sum.LastActivity)

	empty := Summarize(nil)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.LastActivity)
}
