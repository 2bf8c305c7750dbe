// Package analytics computes teacher-facing statistics from student records.
// All functions are pure: callers supply the data and the evaluation instant.
package analytics

import (
	"math"
	"sort"

	"github.com/pavelanni/firstaid/internal/model"
)

type questionAccumulator struct {
	stat  model.QuestionErrorStat
	order []string // wrong-answer keys in first-seen order
}

// GenerateErrorHeatmap aggregates per-question error statistics over every
// exam attempt of every student. Questions nobody attempted are omitted.
// Students with a legacy attempt counter contribute nothing, and answers whose
// index is unparseable or outside the bank are skipped.
func GenerateErrorHeatmap(students []model.Student, bank []model.QuestionBankEntry) []model.QuestionErrorStat {
	if len(students) == 0 || len(bank) == 0 {
		return []model.QuestionErrorStat{}
	}

	acc := make([]questionAccumulator, len(bank))
	for i, q := range bank {
		acc[i].stat = model.QuestionErrorStat{
			QuestionIndex:      i,
			Question:           q.Question,
			Category:           q.Category,
			CommonWrongAnswers: map[string]int{},
		}
	}

	for _, s := range students {
		if s.Progress == nil || s.Progress.ExamAttempts.Legacy() {
			continue
		}
		for _, attempt := range s.Progress.ExamAttempts.Attempts {
			for _, p := range normalizeAnswers(attempt.Answers) {
				idx, ok := questionIndex(p.key, len(bank))
				if !ok {
					continue
				}
				acc[idx].record(evaluate(p.value, bank[idx].Answer))
			}
		}
	}

	stats := make([]model.QuestionErrorStat, 0, len(bank))
	for i := range acc {
		if acc[i].stat.TotalAttempts == 0 {
			continue
		}
		stats = append(stats, acc[i].finish())
	}
	return stats
}

func (a *questionAccumulator) record(o outcome) {
	a.stat.TotalAttempts++
	if o.correct {
		return
	}
	a.stat.WrongAnswers++
	if !o.hasSelected {
		return
	}
	key := optionKey(o.selected)
	if _, seen := a.stat.CommonWrongAnswers[key]; !seen {
		a.order = append(a.order, key)
	}
	a.stat.CommonWrongAnswers[key]++
}

func (a *questionAccumulator) finish() model.QuestionErrorStat {
	st := a.stat
	st.ErrorRate = percent(st.WrongAnswers, st.TotalAttempts)

	best, bestCount := "", 0
	for _, key := range a.order {
		if n := st.CommonWrongAnswers[key]; n > bestCount {
			best, bestCount = key, n
		}
	}
	if bestCount > 0 {
		st.MostCommonWrongAnswer = &best
		st.MostCommonWrongAnswerCount = bestCount
	}
	return st
}

// percent is part/total as a rounded percentage, half rounding up.
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(total)*100 + 0.5))
}

// SortByErrorRate orders stats by descending error rate, keeping bank order on ties.
func SortByErrorRate(stats []model.QuestionErrorStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ErrorRate > stats[j].ErrorRate
	})
}

// FilterByCategory returns the stats of one question category.
// An empty category returns all stats.
func FilterByCategory(stats []model.QuestionErrorStat, category string) []model.QuestionErrorStat {
	if category == "" {
		return stats
	}
	out := make([]model.QuestionErrorStat, 0, len(stats))
	for _, st := range stats {
		if st.Category == category {
			out = append(out, st)
		}
	}
	return out
}

// HeatmapSummary totals a heatmap for the dashboard header.
type HeatmapSummary struct {
	Questions        int `json:"questions"`
	TotalAttempts    int `json:"totalAttempts"`
	WrongAnswers     int `json:"wrongAnswers"`
	AverageErrorRate int `json:"averageErrorRate"`
}

// Summarize totals the given stats. The average error rate is weighted by attempts.
func Summarize(stats []model.QuestionErrorStat) HeatmapSummary {
	var sum HeatmapSummary
	for _, st := range stats {
		sum.Questions++
		sum.TotalAttempts += st.TotalAttempts
		sum.WrongAnswers += st.WrongAnswers
	}
	sum.AverageErrorRate = percent(sum.WrongAnswers, sum.TotalAttempts)
	return sum
}
