package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pavelanni/firstaid/internal/model"
)

// CSVHeader is the header row of the audit CSV export.
var CSVHeader = []string{"Timestamp", "Event", "Details"}

// WriteCSV writes one row per formatted event. The Details column holds the
// event details as compact JSON. Fields containing commas or quotes are quoted.
func WriteCSV(ctx context.Context, w io.Writer, f Formatter, events []model.AuditEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, ev := range events {
		entry := f.Format(ctx, ev)
		details, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("marshal details of event %s: %w", ev.ID, err)
		}
		if err := cw.Write([]string{entry.Time, entry.Text, string(details)}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary counts a user's events for the activity overview.
type Summary struct {
	Total        int                     `json:"total"`
	ByType       map[model.EventType]int `json:"byType"`
	LastActivity *time.Time              `json:"lastActivity,omitempty"`
}

// Summarize counts events per type and finds the most recent timestamp.
func Summarize(events []model.AuditEvent) Summary {
	sum := Summary{ByType: make(map[model.EventType]int)}
	for _, ev := range events {
		sum.Total++
		sum.ByType[ev.Type]++
		if sum.LastActivity == nil || ev.Timestamp.After(*sum.LastActivity) {
			ts := ev.Timestamp
			sum.LastActivity = &ts
		}
	}
	return sum
}
