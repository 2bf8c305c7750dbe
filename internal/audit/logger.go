package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/firstaid/internal/model"
)

// DefaultMaxEvents is the number of events returned when no limit is given.
const DefaultMaxEvents = 50

// EventStore persists audit events.
type EventStore interface {
	InsertAuditEvent(ctx context.Context, ev model.AuditEvent) error
	ListAuditEvents(ctx context.Context, scopeID, userID string, limit int) ([]model.AuditEvent, error)
}

// Logger appends and reads audit events for one deployment scope.
// Store failures are logged and never returned: a broken audit trail must not
// interrupt the user.
type Logger struct {
	store   EventStore
	scopeID string
	logger  *slog.Logger
	now     func() time.Time
}

// NewLogger creates a Logger writing under the given scope.
func NewLogger(store EventStore, scopeID string, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		store:   store,
		scopeID: scopeID,
		logger:  logger,
		now:     time.Now,
	}
}

// Append records one event for the user and reports whether it was stored.
func (l *Logger) Append(ctx context.Context, userID string, eventType model.EventType, details map[string]any) bool {
	if details == nil {
		details = map[string]any{}
	}
	ev := model.AuditEvent{
		ID:        uuid.NewString(),
		ScopeID:   l.scopeID,
		UserID:    userID,
		Timestamp: l.now().UTC(),
		Type:      eventType,
		Details:   details,
		Version:   model.AuditVersion,
	}
	if err := l.store.InsertAuditEvent(ctx, ev); err != nil {
		l.logger.Error("failed to record audit event",
			"scope", l.scopeID, "user_id", userID, "type", eventType, "error", err)
		return false
	}
	l.logger.Debug("recorded audit event", "user_id", userID, "type", eventType, "id", ev.ID)
	return true
}

// FetchRecent returns the user's newest events, newest first. A non-positive
// maxEvents means DefaultMaxEvents. Failures yield an empty list.
func (l *Logger) FetchRecent(ctx context.Context, userID string, maxEvents int) []model.AuditEvent {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	events, err := l.store.ListAuditEvents(ctx, l.scopeID, userID, maxEvents)
	if err != nil {
		l.logger.Error("failed to fetch audit events",
			"scope", l.scopeID, "user_id", userID, "error", err)
		return []model.AuditEvent{}
	}
	if events == nil {
		return []model.AuditEvent{}
	}
	return events
}
