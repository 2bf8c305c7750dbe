package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/firstaid/internal/model"
)

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertAuditEvent stores an audit event. Events are never updated.
func (s *Store) InsertAuditEvent(ctx context.Context, ev model.AuditEvent) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, scope_id, user_id, timestamp, type, details, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ScopeID, ev.UserID, ev.Timestamp.UTC().Format(timestampLayout),
		string(ev.Type), string(details), ev.Version,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns a user's events in the scope, newest first.
func (s *Store) ListAuditEvents(ctx context.Context, scopeID, userID string, limit int) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope_id, user_id, timestamp, type, details, version
		 FROM audit_events
		 WHERE scope_id = ? AND user_id = ?
		 ORDER BY timestamp DESC
		 LIMIT ?`,
		scopeID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		var (
			ev      model.AuditEvent
			ts      string
			typ     string
			details string
		)
		if err := rows.Scan(&ev.ID, &ev.ScopeID, &ev.UserID, &ts, &typ, &details, &ev.Version); err != nil {
			return nil, err
		}
		ev.Type = model.EventType(typ)
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp of event %s: %w", ev.ID, err)
		}
		if err := json.Unmarshal([]byte(details), &ev.Details); err != nil {
			return nil, fmt.Errorf("decode details of event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountAuditEvents returns the number of events stored for a scope.
func (s *Store) CountAuditEvents(ctx context.Context, scopeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events WHERE scope_id = ?`, scopeID).Scan(&count)
	return count, err
}
