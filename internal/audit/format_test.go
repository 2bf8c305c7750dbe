package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/firstaid/internal/i18n"
	"github.com/pavelanni/firstaid/internal/model"
)

var ts = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func langCtx(t *testing.T, lang string) context.Context {
	t.Helper()
	require.NoError(t, i18n.Init("en"))
	return i18n.WithLocalizer(context.Background(), i18n.NewLocalizer(lang))
}

func TestFormatEventTypes(t *testing.T) {
	ctx := langCtx(t, "en")

	tests := []struct {
		name  string
		ev    model.AuditEvent
		icon  string
		color string
		text  string
	}{
		{
			name:  "module complete",
			ev:    model.AuditEvent{Type: model.EventModuleComplete, Details: map[string]any{"moduleName": "Burns"}},
			icon:  "✅",
			color: ColorSuccess,
			text:  "Completed module: Burns",
		},
		{
			name:  "module complete without name",
			ev:    model.AuditEvent{Type: model.EventModuleComplete},
			icon:  "✅",
			color: ColorSuccess,
			text:  "Completed module: Module",
		},
		{
			name:  "exam start",
			ev:    model.AuditEvent{Type: model.EventExamStart, Details: map[string]any{}},
			icon:  "📝",
			color: ColorInfo,
			text:  "Started the final exam",
		},
		{
			name:  "exam passed",
			ev:    model.AuditEvent{Type: model.EventExamComplete, Details: map[string]any{"score": float64(9), "passed": true}},
			icon:  "🎉",
			color: ColorSuccess,
			text:  "Finished the exam: 9/10",
		},
		{
			name:  "exam failed",
			ev:    model.AuditEvent{Type: model.EventExamComplete, Details: map[string]any{"score": 4, "passed": false}},
			icon:  "📋",
			color: ColorNeutral,
			text:  "Finished the exam: 4/10",
		},
		{
			name:  "exam passed flag as number",
			ev:    model.AuditEvent{Type: model.EventExamComplete, Details: map[string]any{"score": float64(8), "passed": float64(1)}},
			icon:  "🎉",
			color: ColorSuccess,
			text:  "Finished the exam: 8/10",
		},
		{
			name:  "exam passed flag as string",
			ev:    model.AuditEvent{Type: model.EventExamComplete, Details: map[string]any{"score": "8", "passed": "true"}},
			icon:  "🎉",
			color: ColorSuccess,
			text:  "Finished the exam: 8/10",
		},
		{
			name:  "exam failed flag as zero",
			ev:    model.AuditEvent{Type: model.EventExamComplete, Details: map[string]any{"score": float64(3), "passed": float64(0)}},
			icon:  "📋",
			color: ColorNeutral,
			text:  "Finished the exam: 3/10",
		},
		{
			name:  "level up",
			ev:    model.AuditEvent{Type: model.EventLevelUp, Details: map[string]any{"newLevel": float64(4)}},
			icon:  "⭐",
			color: ColorLevel,
			text:  "Reached level 4",
		},
		{
			name:  "login",
			ev:    model.AuditEvent{Type: model.EventLogin},
			icon:  "🔑",
			color: ColorMuted,
			text:  "Logged in",
		},
		{
			name:  "unknown type",
			ev:    model.AuditEvent{Type: "custom_x", Details: map[string]any{"anything": 1}},
			icon:  "📌",
			color: ColorDefault,
			text:  "custom_x",
		},
		{
			name:  "empty type",
			ev:    model.AuditEvent{},
			icon:  "📌",
			color: ColorDefault,
			text:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(ctx, tt.ev)
			assert.Equal(t, tt.icon, got.Icon)
			assert.Equal(t, tt.color, got.ColorClass)
			assert.Equal(t, tt.text, got.Text)
		})
	}
}

func TestFormatLevelUpContainsLevel(t *testing.T) {
	got := Format(context.Background(), model.AuditEvent{
		Type:    model.EventLevelUp,
		Details: map[string]any{"newLevel": 4},
	})
	assert.Contains(t, got.Text, "4")
}

func TestFormatTime(t *testing.T) {
	ev := model.AuditEvent{Type: model.EventLogin, Timestamp: ts}

	en := Format(langCtx(t, "en"), ev)
	assert.Equal(t, "Mar 1, 2025 09:30", en.Time)

	nl := Format(langCtx(t, "nl"), ev)
	assert.Equal(t, "01-03-2025 09:30", nl.Time)
	assert.Equal(t, "Ingelogd", nl.Text)

	cet := time.FixedZone("CET", 60*60)
	local := Formatter{Location: cet}.Format(langCtx(t, "en"), ev)
	assert.Equal(t, "Mar 1, 2025 10:30", local.Time)

	assert.Empty(t, Format(context.Background(), model.AuditEvent{Type: model.EventLogin}).Time)
}

func TestFormatDutchTemplates(t *testing.T) {
	ctx := langCtx(t, "nl")
	got := Format(ctx, model.AuditEvent{Type: model.EventModuleComplete, Details: map[string]any{"moduleName": "Reanimatie"}})
	assert.True(t, strings.HasSuffix(got.Text, "Reanimatie"), "got %q", got.Text)
}
