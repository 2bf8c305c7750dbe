package model

import "time"

// EventType identifies the kind of audit event.
type EventType string

const (
	EventModuleComplete EventType = "module_complete"
	EventExamStart      EventType = "exam_start"
	EventExamComplete   EventType = "exam_complete"
	EventLevelUp        EventType = "level_up"
	EventLogin          EventType = "login"
)

// AuditVersion tags the schema generation of written audit events.
const AuditVersion = "light"

// AllEventTypes returns the known event types in display order.
func AllEventTypes() []EventType {
	return []EventType{EventModuleComplete, EventExamStart, EventExamComplete, EventLevelUp, EventLogin}
}

// Known reports whether t is one of AllEventTypes.
func (t EventType) Known() bool {
	for _, k := range AllEventTypes() {
		if t == k {
			return true
		}
	}
	return false
}

// AuditEvent is an immutable record of a significant user action.
type AuditEvent struct {
	ID        string         `json:"id,omitempty"`
	ScopeID   string         `json:"-"`
	UserID    string         `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Details   map[string]any `json:"details"`
	Version   string         `json:"version"`
}
