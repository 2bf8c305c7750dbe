package analytics

import (
	"sort"
	"time"

	"github.com/pavelanni/firstaid/internal/model"
)

const (
	// InactivityThreshold is how long a student may go without activity
	// before being flagged as at risk.
	InactivityThreshold = 7 * 24 * time.Hour
	// MaxAtRisk caps the at-risk list.
	MaxAtRisk = 5
	// TopOverall is the number of overall top performers.
	TopOverall = 3
)

// LevelDistribution counts students per level. Levels[0] holds level 1.
type LevelDistribution struct {
	Levels [model.MaxLevel]int `json:"levels"`
	Total  int                 `json:"total"`
}

// Count returns the number of students at the given level.
func (d LevelDistribution) Count(level int) int {
	if level < model.MinLevel || level > model.MaxLevel {
		return 0
	}
	return d.Levels[level-model.MinLevel]
}

// DistributeLevels buckets students by level. Students outside the known
// level range are counted in Total only.
func DistributeLevels(students []model.Student) LevelDistribution {
	var d LevelDistribution
	for _, s := range students {
		d.Total++
		if lvl := s.Level(); lvl >= model.MinLevel && lvl <= model.MaxLevel {
			d.Levels[lvl-model.MinLevel]++
		}
	}
	return d
}

// ClassStat is the average XP of one class grouping.
type ClassStat struct {
	Class     string  `json:"class"`
	Students  int     `json:"students"`
	TotalXP   int     `json:"totalXp"`
	AverageXP float64 `json:"averageXp"`
}

// ClassPerformance groups students by class and sorts the groups by
// descending average XP. Groups with equal averages keep first-seen order.
func ClassPerformance(students []model.Student) []ClassStat {
	index := make(map[string]int)
	classes := []ClassStat{}
	for _, s := range students {
		name := s.ClassName()
		i, ok := index[name]
		if !ok {
			i = len(classes)
			index[name] = i
			classes = append(classes, ClassStat{Class: name})
		}
		classes[i].Students++
		classes[i].TotalXP += s.XP()
	}
	for i := range classes {
		classes[i].AverageXP = float64(classes[i].TotalXP) / float64(classes[i].Students)
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].AverageXP > classes[j].AverageXP
	})
	return classes
}

// AtRisk returns up to MaxAtRisk students, in input order, whose last
// activity is more than InactivityThreshold before now. Students with no
// recorded activity are not flagged.
func AtRisk(students []model.Student, now time.Time) []model.Student {
	out := []model.Student{}
	for _, s := range students {
		if len(out) == MaxAtRisk {
			break
		}
		if s.LastUpdate.IsZero() {
			continue
		}
		if now.Sub(s.LastUpdate) > InactivityThreshold {
			out = append(out, s)
		}
	}
	return out
}

// TopPerformers lists the best students overall and the best of each class.
type TopPerformers struct {
	Overall []model.Student          `json:"overall"`
	ByClass map[string]model.Student `json:"byClass"`
}

// RankPerformers sorts students by descending XP, keeping input order on ties.
func RankPerformers(students []model.Student) TopPerformers {
	ranked := make([]model.Student, len(students))
	copy(ranked, students)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].XP() > ranked[j].XP()
	})

	top := TopPerformers{
		Overall: ranked[:min(TopOverall, len(ranked))],
		ByClass: make(map[string]model.Student),
	}
	for _, s := range ranked {
		if _, ok := top.ByClass[s.ClassName()]; !ok {
			top.ByClass[s.ClassName()] = s
		}
	}
	return top
}

// ExamStats totals the recorded final exam attempts. Legacy histories carry
// no attempts and are not counted.
type ExamStats struct {
	Attempts     int        `json:"attempts"`
	Passed       int        `json:"passed"`
	PassRate     int        `json:"passRate"`
	AverageScore float64    `json:"averageScore"`
	BestScore    float64    `json:"bestScore"`
	LastAttempt  *time.Time `json:"lastAttempt,omitempty"`
}

// SummarizeExams computes exam statistics over all attempts of all students.
func SummarizeExams(students []model.Student) ExamStats {
	var st ExamStats
	var total float64
	for _, s := range students {
		if s.Progress == nil {
			continue
		}
		for _, a := range s.Progress.ExamAttempts.Attempts {
			st.Attempts++
			total += a.Score
			st.BestScore = max(st.BestScore, a.Score)
			if a.Passed {
				st.Passed++
			}
			if !a.Timestamp.IsZero() && (st.LastAttempt == nil || a.Timestamp.After(*st.LastAttempt)) {
				ts := a.Timestamp
				st.LastAttempt = &ts
			}
		}
	}
	if st.Attempts > 0 {
		st.AverageScore = total / float64(st.Attempts)
		st.PassRate = percent(st.Passed, st.Attempts)
	}
	return st
}
