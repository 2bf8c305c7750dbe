package store

import (
	"encoding/json"
	"fmt"

	"github.com/pavelanni/firstaid/internal/model"
)

// ReplaceQuestionBank stores the question bank, replacing the previous one.
// Question positions are the slice indices, which exam answers refer to.
func (s *Store) ReplaceQuestionBank(entries []model.QuestionBankEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM questions`); err != nil {
		return err
	}
	for i, q := range entries {
		answer, err := json.Marshal(q.Answer)
		if err != nil {
			return fmt.Errorf("marshal answer of question %d: %w", i, err)
		}
		_, err = tx.Exec(
			`INSERT INTO questions (position, question, answer, category) VALUES (?, ?, ?, ?)`,
			i, q.Question, string(answer), q.Category,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListQuestionBank returns the question bank in position order.
func (s *Store) ListQuestionBank() ([]model.QuestionBankEntry, error) {
	rows, err := s.db.Query(`SELECT question, answer, category FROM questions ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bank := []model.QuestionBankEntry{}
	for rows.Next() {
		var (
			q      model.QuestionBankEntry
			answer string
		)
		if err := rows.Scan(&q.Question, &answer, &q.Category); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answer), &q.Answer); err != nil {
			return nil, fmt.Errorf("decode answer of %q: %w", q.Question, err)
		}
		bank = append(bank, q)
	}
	return bank, rows.Err()
}

// QuestionCount returns the number of questions in the bank.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ListCategories returns the distinct question categories, sorted.
func (s *Store) ListCategories() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT category FROM questions WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
