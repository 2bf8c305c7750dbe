package analytics

import (
	"time"

	"github.com/pavelanni/firstaid/internal/model"
)

// Dashboard bundles everything the teacher analytics view shows.
type Dashboard struct {
	GeneratedAt    time.Time                 `json:"generatedAt"`
	Students       int                       `json:"students"`
	PassedExam     int                       `json:"passedExam"`
	AverageXP      float64                   `json:"averageXp"`
	Levels         LevelDistribution         `json:"levels"`
	Classes        []ClassStat               `json:"classes"`
	AtRisk         []model.Student           `json:"atRisk"`
	TopPerformers  TopPerformers             `json:"topPerformers"`
	Exams          ExamStats                 `json:"exams"`
	Heatmap        []model.QuestionErrorStat `json:"heatmap"`
	HeatmapSummary HeatmapSummary            `json:"heatmapSummary"`
}

// BuildDashboard computes the dashboard for the given students as of now.
// The heatmap is sorted by descending error rate.
func BuildDashboard(students []model.Student, bank []model.QuestionBankEntry, now time.Time) Dashboard {
	heatmap := GenerateErrorHeatmap(students, bank)
	SortByErrorRate(heatmap)

	d := Dashboard{
		GeneratedAt:    now,
		Students:       len(students),
		Levels:         DistributeLevels(students),
		Classes:        ClassPerformance(students),
		AtRisk:         AtRisk(students, now),
		TopPerformers:  RankPerformers(students),
		Exams:          SummarizeExams(students),
		Heatmap:        heatmap,
		HeatmapSummary: Summarize(heatmap),
	}

	var totalXP int
	for _, s := range students {
		totalXP += s.XP()
		if s.PassedExam() {
			d.PassedExam++
		}
	}
	if len(students) > 0 {
		d.AverageXP = float64(totalXP) / float64(len(students))
	}
	return d
}
