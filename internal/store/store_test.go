package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/firstaid/internal/model"
)

var attemptTime = time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestStudent(t *testing.T, s *Store, id, class string, xp int) model.Student {
	t.Helper()
	st := model.Student{
		UserID: id,
		Name:   "Student " + id,
		Role:   class,
		Progress: &model.Progress{
			Modules: map[string]bool{"burns": true},
			XP:      xp,
			Level:   2,
			ExamAttempts: model.NewExamAttempts(model.Attempt{
				Answers:   json.RawMessage(`{"0":"112","1":{"selected":"left","correct":false}}`),
				Score:     7,
				Passed:    true,
				Timestamp: attemptTime,
			}),
		},
		LastUpdate: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertStudent(st))
	return st
}

func TestStudentCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty DB should return zero count and empty list.
	count, err := s.StudentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
	list, err := s.ListStudents()
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	insertTestStudent(t, s, "u2", "EHBO-1", 120)
	insertTestStudent(t, s, "u1", "", 40)

	got, err := s.GetStudent("u2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "EHBO-1", got.ClassName())
	assert.Equal(t, 120, got.XP())
	assert.Equal(t, 2, got.Level())
	assert.True(t, got.LastUpdate.Equal(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)), "last update round-trips, got %v", got.LastUpdate)

	attempts := got.Progress.ExamAttempts
	assert.False(t, attempts.Legacy())
	require.Len(t, attempts.Attempts, 1)
	assert.Equal(t, 7.0, attempts.Attempts[0].Score)
	assert.True(t, attempts.Attempts[0].Passed)
	assert.True(t, attempts.Attempts[0].Timestamp.Equal(attemptTime), "attempt time round-trips, got %v", attempts.Attempts[0].Timestamp)

	// Ordered by user id.
	list, err = s.ListStudents()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u1", list[0].UserID)
	assert.Equal(t, "u2", list[1].UserID)
	assert.Equal(t, model.DefaultClass, list[0].ClassName())

	// Upsert replaces.
	insertTestStudent(t, s, "u1", "EHBO-2", 300)
	got, err = s.GetStudent("u1")
	require.NoError(t, err)
	assert.Equal(t, 300, got.XP())
	assert.Equal(t, "EHBO-2", got.Role)
	count, err = s.StudentCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Not found.
	missing, err := s.GetStudent("nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	// Missing id is rejected.
	assert.Error(t, s.UpsertStudent(model.Student{Name: "anon"}))
}

func TestStudentWithoutProgress(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertStudent(model.Student{UserID: "new"}))

	got, err := s.GetStudent("new")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Progress)
	assert.True(t, got.LastUpdate.IsZero())
	assert.Equal(t, model.MinLevel, got.Level())
}

func TestLegacyExamAttemptsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	var st model.Student
	raw := `{"userId":"old","name":"Old","progress":{"xp":50,"level":1,"examAttempts":3}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	require.NoError(t, s.UpsertStudent(st))

	got, err := s.GetStudent("old")
	require.NoError(t, err)
	assert.True(t, got.Progress.ExamAttempts.Legacy(), "legacy exam attempts survive storage")
	assert.Empty(t, got.Progress.ExamAttempts.Attempts)
}

func TestQuestionBank(t *testing.T) {
	s := newTestStore(t)

	bank, err := s.ListQuestionBank()
	require.NoError(t, err)
	assert.Empty(t, bank)

	entries := []model.QuestionBankEntry{
		{Question: "Emergency number?", Answer: "112", Category: "basics"},
		{Question: "Compressions per minute?", Answer: 110, Category: "cpr"},
		{Question: "Cool a burn?", Answer: true, Category: "burns"},
	}
	require.NoError(t, s.ReplaceQuestionBank(entries))

	bank, err = s.ListQuestionBank()
	require.NoError(t, err)
	require.Len(t, bank, 3)
	assert.Equal(t, "Emergency number?", bank[0].Question)
	assert.Equal(t, "112", bank[0].Answer)
	// Numbers come back as JSON numbers.
	assert.Equal(t, float64(110), bank[1].Answer)
	assert.Equal(t, true, bank[2].Answer)

	categories, err := s.ListCategories()
	require.NoError(t, err)
	assert.Equal(t, []string{"basics", "burns", "cpr"}, categories)

	// Replace drops the previous bank.
	require.NoError(t, s.ReplaceQuestionBank(entries[:1]))
	count, err := s.QuestionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	insert := func(id, scope, user string, at time.Time, typ model.EventType) {
		t.Helper()
		err := s.InsertAuditEvent(ctx, model.AuditEvent{
			ID:        id,
			ScopeID:   scope,
			UserID:    user,
			Timestamp: at,
			Type:      typ,
			Details:   map[string]any{"moduleName": "CPR"},
			Version:   model.AuditVersion,
		})
		require.NoError(t, err, "InsertAuditEvent %s", id)
	}

	insert("e1", "app", "u1", base, model.EventLogin)
	insert("e2", "app", "u1", base.Add(2*time.Hour), model.EventModuleComplete)
	insert("e3", "app", "u1", base.Add(time.Hour), model.EventExamStart)
	insert("e4", "app", "u2", base.Add(3*time.Hour), model.EventLogin)
	insert("e5", "other", "u1", base.Add(4*time.Hour), model.EventLogin)
	// Sub-second ordering and non-UTC input.
	cet := time.FixedZone("CET", 3600)
	insert("e6", "app", "u1", base.Add(2*time.Hour+500*time.Millisecond).In(cet), model.EventLevelUp)

	events, err := s.ListAuditEvents(ctx, "app", "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e6", "e2", "e3", "e1"}, eventIDs(events))
	assert.Equal(t, model.EventModuleComplete, events[1].Type)
	assert.Equal(t, "CPR", events[1].Details["moduleName"])
	assert.True(t, events[1].Timestamp.Equal(base.Add(2*time.Hour)), "timestamp round-trips, got %v", events[1].Timestamp)
	assert.Equal(t, model.AuditVersion, events[0].Version)
	assert.Equal(t, "app", events[0].ScopeID)
	assert.Equal(t, "u1", events[0].UserID)

	limited, err := s.ListAuditEvents(ctx, "app", "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e6", "e2"}, eventIDs(limited))

	none, err := s.ListAuditEvents(ctx, "app", "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	count, err := s.CountAuditEvents(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// Ids are unique.
	err = s.InsertAuditEvent(ctx, model.AuditEvent{ID: "e1", ScopeID: "app", UserID: "u1", Timestamp: base})
	assert.Error(t, err, "duplicate id")
}

func eventIDs(events []model.AuditEvent) []string {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
}

func TestAuditEventsCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ListAuditEvents(ctx, "app", "u1", 10)
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser(model.User{
		Username:     "teacher1",
		DisplayName:  "Teacher One",
		PasswordHash: "hash",
		Role:         model.UserRoleTeacher,
		Active:       true,
	})
	require.NoError(t, err)

	u, err := s.GetUserByUsername("teacher1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, model.UserRoleTeacher, u.Role)
	assert.True(t, u.Active)

	found, err := s.ToggleUserActive(id)
	require.NoError(t, err)
	assert.True(t, found)
	u, err = s.GetUserByID(id)
	require.NoError(t, err)
	assert.False(t, u.Active, "inactive after toggle")

	found, err = s.ToggleUserActive(9999)
	require.NoError(t, err)
	assert.False(t, found, "missing user is reported")

	// Students have no dashboard accounts.
	_, err = s.CreateUser(model.User{Username: "pupil", PasswordHash: "x", Role: model.UserRoleStudent})
	assert.Error(t, err)

	missing, err := s.GetUserByUsername("nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	// Duplicate usernames fail.
	_, err = s.CreateUser(model.User{Username: "teacher1", PasswordHash: "x", Role: model.UserRoleAdmin})
	assert.Error(t, err)

	users, err := s.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
	count, err := s.UserCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "hash", Role: model.UserRoleAdmin, Active: true})
	require.NoError(t, err)

	token, err := s.CreateAuthSession(id)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	u, err := s.UserForSession(token)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "admin", u.Username)

	missing, err := s.UserForSession("unknown")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.DeleteAuthSession(token))
	u, err = s.UserForSession(token)
	require.NoError(t, err)
	assert.Nil(t, u, "session is gone after delete")

	_, err = s.CleanupExpiredSessions()
	assert.NoError(t, err)
}

func TestDeactivationRevokesSessions(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateUser(model.User{Username: "teacher", PasswordHash: "hash", Role: model.UserRoleTeacher, Active: true})
	require.NoError(t, err)
	token, err := s.CreateAuthSession(id)
	require.NoError(t, err)

	_, err = s.ToggleUserActive(id)
	require.NoError(t, err)
	u, err := s.UserForSession(token)
	require.NoError(t, err)
	assert.Nil(t, u, "deactivated user loses the session")

	// Reactivating does not bring the old session back.
	_, err = s.ToggleUserActive(id)
	require.NoError(t, err)
	u, err = s.UserForSession(token)
	require.NoError(t, err)
	assert.Nil(t, u, "revoked session stays revoked")
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	const path = "/some/students.json"

	// Missing file returns empty string.
	hash, err := s.GetImportedFileHash(path)
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, s.SetImportedFileHash(path, "abc123"))
	hash, err = s.GetImportedFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	// Update existing.
	require.NoError(t, s.SetImportedFileHash(path, "def456"))
	hash, err = s.GetImportedFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "def456", hash)

	// Hashes are namespaced away from plain metadata.
	value, err := s.GetMetadata(path)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestDataset(t *testing.T) {
	s := newTestStore(t)

	ds := Dataset{
		Students: []model.Student{{UserID: "a"}, {UserID: "b", Role: "EHBO-1"}},
		Bank:     []model.QuestionBankEntry{{Question: "Q0", Answer: "x"}},
	}
	require.NoError(t, s.ImportDataset(ds))

	// An empty bank keeps the stored one.
	require.NoError(t, s.ImportDataset(Dataset{Students: []model.Student{{UserID: "c"}}}))

	got, err := s.LoadDataset()
	require.NoError(t, err)
	assert.Len(t, got.Students, 3)
	require.Len(t, got.Bank, 1)
	assert.Equal(t, "Q0", got.Bank[0].Question)
}
