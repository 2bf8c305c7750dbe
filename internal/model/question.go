package model

// QuestionBankEntry is one final-exam question. Answer holds the canonical
// option value exactly as the content files encode it.
type QuestionBankEntry struct {
	Question string `json:"question"`
	Answer   any    `json:"answer"`
	Category string `json:"category,omitempty"`
}

// QuestionErrorStat aggregates how often a question was answered wrong.
// It is rebuilt on every aggregation and never persisted.
type QuestionErrorStat struct {
	QuestionIndex              int            `json:"questionIndex"`
	Question                   string         `json:"question"`
	Category                   string         `json:"category,omitempty"`
	TotalAttempts              int            `json:"totalAttempts"`
	WrongAnswers               int            `json:"wrongAnswers"`
	ErrorRate                  int            `json:"errorRate"`
	CommonWrongAnswers         map[string]int `json:"commonWrongAnswers"`
	MostCommonWrongAnswer      *string        `json:"mostCommonWrongAnswer,omitempty"`
	MostCommonWrongAnswerCount int            `json:"mostCommonWrongAnswerCount,omitempty"`
}
