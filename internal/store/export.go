package store

import (
	"fmt"

	"github.com/pavelanni/firstaid/internal/model"
)

// Dataset is everything the analytics layer reads in one pass.
type Dataset struct {
	Students []model.Student
	Bank     []model.QuestionBankEntry
}

// LoadDataset reads all students and the question bank.
func (s *Store) LoadDataset() (Dataset, error) {
	students, err := s.ListStudents()
	if err != nil {
		return Dataset{}, fmt.Errorf("list students: %w", err)
	}
	bank, err := s.ListQuestionBank()
	if err != nil {
		return Dataset{}, fmt.Errorf("list question bank: %w", err)
	}
	return Dataset{Students: students, Bank: bank}, nil
}

// ImportDataset stores students and, when non-empty, replaces the question bank.
func (s *Store) ImportDataset(ds Dataset) error {
	for _, st := range ds.Students {
		if err := s.UpsertStudent(st); err != nil {
			return fmt.Errorf("upsert student %s: %w", st.UserID, err)
		}
	}
	if len(ds.Bank) > 0 {
		if err := s.ReplaceQuestionBank(ds.Bank); err != nil {
			return fmt.Errorf("replace question bank: %w", err)
		}
	}
	return nil
}
