// Package audit records and renders the lightweight per-user activity log.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/firstaid/internal/i18n"
	"github.com/pavelanni/firstaid/internal/model"
)

// ExamMaxScore is the maximum score of the final exam.
const ExamMaxScore = 10

// Semantic color classes used by the dashboard.
const (
	ColorSuccess = "text-green-600"
	ColorInfo    = "text-blue-600"
	ColorNeutral = "text-orange-600"
	ColorLevel   = "text-purple-600"
	ColorMuted   = "text-gray-500"
	ColorDefault = "text-gray-600"
)

// Entry is an audit event rendered for display.
type Entry struct {
	Time       string `json:"time"`
	Icon       string `json:"icon"`
	Text       string `json:"text"`
	ColorClass string `json:"colorClass"`
}

// Formatter renders audit events using the localizer found in the context.
type Formatter struct {
	// Location is the zone timestamps are shown in. Nil means UTC.
	Location *time.Location
}

// Format renders one event. Unknown event types render their raw type as text.
func Format(ctx context.Context, ev model.AuditEvent) Entry {
	return Formatter{}.Format(ctx, ev)
}

// Format renders one event. Unknown event types render their raw type as text.
func (f Formatter) Format(ctx context.Context, ev model.AuditEvent) Entry {
	e := describe(ctx, ev)
	e.Time = f.formatTime(ctx, ev.Timestamp)
	return e
}

func (f Formatter) formatTime(ctx context.Context, ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(i18n.T(ctx, "AuditTimeLayout"))
}

func describe(ctx context.Context, ev model.AuditEvent) Entry {
	switch ev.Type {
	case model.EventModuleComplete:
		name := detailString(ev.Details, "moduleName")
		if name == "" {
			name = i18n.T(ctx, "AuditDefaultModule")
		}
		return Entry{
			Icon:       "✅",
			ColorClass: ColorSuccess,
			Text:       i18n.Td(ctx, "AuditModuleComplete", map[string]any{"Module": name}),
		}
	case model.EventExamStart:
		return Entry{
			Icon:       "📝",
			ColorClass: ColorInfo,
			Text:       i18n.T(ctx, "AuditExamStart"),
		}
	case model.EventExamComplete:
		e := Entry{Icon: "📋", ColorClass: ColorNeutral}
		if model.Truthy(ev.Details["passed"]) {
			e.Icon, e.ColorClass = "🎉", ColorSuccess
		}
		e.Text = i18n.Td(ctx, "AuditExamComplete", map[string]any{
			"Score": detailString(ev.Details, "score"),
			"Max":   ExamMaxScore,
		})
		return e
	case model.EventLevelUp:
		return Entry{
			Icon:       "⭐",
			ColorClass: ColorLevel,
			Text:       i18n.Td(ctx, "AuditLevelUp", map[string]any{"Level": detailString(ev.Details, "newLevel")}),
		}
	case model.EventLogin:
		return Entry{
			Icon:       "🔑",
			ColorClass: ColorMuted,
			Text:       i18n.T(ctx, "AuditLogin"),
		}
	default:
		return Entry{
			Icon:       "📌",
			ColorClass: ColorDefault,
			Text:       string(ev.Type),
		}
	}
}

// detailString renders a detail value, or "" when it is absent.
func detailString(details map[string]any, key string) string {
	v, ok := details[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}
