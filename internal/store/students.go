package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/firstaid/internal/model"
)

// UpsertStudent inserts or replaces a student record.
func (s *Store) UpsertStudent(st model.Student) error {
	if st.UserID == "" {
		return fmt.Errorf("student without user id")
	}
	progress, err := json.Marshal(st.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress of %s: %w", st.UserID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO students (user_id, name, role, progress, last_update)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   name = excluded.name,
		   role = excluded.role,
		   progress = excluded.progress,
		   last_update = excluded.last_update`,
		st.UserID, st.Name, st.Role, string(progress), nullTime(st.LastUpdate),
	)
	return err
}

// GetStudent returns a student by user id, or nil if not found.
func (s *Store) GetStudent(userID string) (*model.Student, error) {
	row := s.db.QueryRow(
		`SELECT user_id, name, role, progress, last_update FROM students WHERE user_id = ?`, userID,
	)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStudents returns all students ordered by user id.
func (s *Store) ListStudents() ([]model.Student, error) {
	rows, err := s.db.Query(
		`SELECT user_id, name, role, progress, last_update FROM students ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	students := []model.Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// StudentCount returns the number of stored students.
func (s *Store) StudentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (model.Student, error) {
	var (
		st       model.Student
		progress string
		last     sql.NullTime
	)
	if err := sc.Scan(&st.UserID, &st.Name, &st.Role, &progress, &last); err != nil {
		return st, err
	}
	if err := json.Unmarshal([]byte(progress), &st.Progress); err != nil {
		return st, fmt.Errorf("decode progress of %s: %w", st.UserID, err)
	}
	if last.Valid {
		st.LastUpdate = last.Time.UTC()
	}
	return st, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
