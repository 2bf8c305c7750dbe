package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// DefaultClass is the grouping used for students without a role.
const DefaultClass = "unassigned"

// MinLevel and MaxLevel bound the learner levels shown on the dashboard.
const (
	MinLevel = 1
	MaxLevel = 5
)

// Student is one learner's record as kept by the session layer.
type Student struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Role       string    `json:"role,omitempty"`
	Progress   *Progress `json:"progress,omitempty"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Progress holds module completion, score and exam history.
type Progress struct {
	Modules      map[string]bool `json:"modules,omitempty"`
	XP           int             `json:"xp"`
	Level        int             `json:"level"`
	ExamPassed   bool            `json:"examenPassed"`
	ExamAttempts ExamAttempts    `json:"examAttempts"`
}

// ClassName returns the student's class grouping.
func (s Student) ClassName() string {
	if s.Role == "" {
		return DefaultClass
	}
	return s.Role
}

// XP returns the student's experience points, zero for new learners.
func (s Student) XP() int {
	if s.Progress == nil || s.Progress.XP < 0 {
		return 0
	}
	return s.Progress.XP
}

// Level returns the student's level. New learners start at MinLevel.
func (s Student) Level() int {
	if s.Progress == nil || s.Progress.Level == 0 {
		return MinLevel
	}
	return s.Progress.Level
}

// PassedExam reports whether the student passed the final exam.
func (s Student) PassedExam() bool {
	return s.Progress != nil && s.Progress.ExamPassed
}

// UnmarshalJSON accepts lastUpdate as an ISO-8601 string or epoch milliseconds.
func (s *Student) UnmarshalJSON(data []byte) error {
	type plain Student
	aux := struct {
		*plain
		LastUpdate json.RawMessage `json:"lastUpdate"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.LastUpdate = parseTimestamp(aux.LastUpdate)
	return nil
}

func parseTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// ExamAttempts is the exam history of a student. Older records store a plain
// attempt counter instead of a list; those decode as legacy with no attempts.
type ExamAttempts struct {
	Attempts []Attempt
	list     bool
	legacy   json.RawMessage
}

// NewExamAttempts returns a list-encoded exam history.
func NewExamAttempts(attempts ...Attempt) ExamAttempts {
	return ExamAttempts{Attempts: attempts, list: true}
}

// Legacy reports whether the history was not stored as a list.
func (e ExamAttempts) Legacy() bool {
	return !e.list
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ExamAttempts) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var attempts []Attempt
		if err := json.Unmarshal(trimmed, &attempts); err != nil {
			return err
		}
		*e = ExamAttempts{Attempts: attempts, list: true}
		return nil
	}
	*e = ExamAttempts{legacy: append(json.RawMessage(nil), trimmed...)}
	return nil
}

// MarshalJSON implements json.Marshaler. Legacy values are written back unchanged.
func (e ExamAttempts) MarshalJSON() ([]byte, error) {
	if !e.list {
		if len(e.legacy) == 0 {
			return []byte("null"), nil
		}
		return e.legacy, nil
	}
	if e.Attempts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.Attempts)
}

// Attempt is one pass through the final exam. Answers are kept in their stored
// encoding: a list ordered by question position, or an object keyed by the
// question index. Each value is either the selected option or a
// {"selected": ..., "correct": ...} record.
type Attempt struct {
	Answers   json.RawMessage `json:"answers,omitempty"`
	Score     float64         `json:"score,omitempty"`
	Passed    bool            `json:"passed,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// UnmarshalJSON decodes what it can; a malformed attempt yields no answers.
// Score and passed are read as loosely as the learning app writes them, and
// the timestamp accepts the same encodings as lastUpdate.
func (a *Attempt) UnmarshalJSON(data []byte) error {
	var fields struct {
		Answers   json.RawMessage `json:"answers"`
		Score     any             `json:"score"`
		Passed    any             `json:"passed"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		*a = Attempt{}
		return nil
	}
	score, _ := Scalar(fields.Score).(float64)
	*a = Attempt{
		Answers:   fields.Answers,
		Score:     score,
		Passed:    Truthy(fields.Passed),
		Timestamp: parseTimestamp(fields.Timestamp),
	}
	return nil
}
