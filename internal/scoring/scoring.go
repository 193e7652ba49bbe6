// Package scoring holds the grading rules: objective answer matching and the
// CA/exam result bands.
package scoring

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-portal/internal/model"
)

var (
	ErrCAOutOfRange   = fmt.Errorf("ca score must be between 0 and %d", model.MaxCAScore)
	ErrExamOutOfRange = fmt.Errorf("exam score must be between 0 and %d", model.MaxExamScore)
)

// Remark bands a total score.
func Remark(total int) model.Remark {
	switch {
	case total >= 75:
		return model.RemarkExcellent
	case total >= 60:
		return model.RemarkGood
	case total >= 45:
		return model.RemarkPass
	default:
		return model.RemarkPoor
	}
}

// Validate checks the CA and exam components against their bounds.
func Validate(ca, exam int) error {
	if ca < 0 || ca > model.MaxCAScore {
		return ErrCAOutOfRange
	}
	if exam < 0 || exam > model.MaxExamScore {
		return ErrExamOutOfRange
	}
	return nil
}

// Total adds the two components.
func Total(ca, exam int) int {
	return ca + exam
}

// Compute validates the components and returns the total and its remark.
func Compute(ca, exam int) (int, model.Remark, error) {
	if err := Validate(ca, exam); err != nil {
		return 0, "", err
	}
	total := Total(ca, exam)
	return total, Remark(total), nil
}

// Grade is the outcome of marking objective answers.
type Grade struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// GradeObjectives counts answers that exactly equal the question's correct
// option. Unanswered questions count as wrong.
func GradeObjectives(questions []model.ObjectiveQuestion, answers map[uuid.UUID]string) Grade {
	g := Grade{Total: len(questions)}
	for _, q := range questions {
		if ans, ok := answers[q.ID]; ok && ans == q.Correct {
			g.Correct++
		}
	}
	if g.Total > 0 {
		g.Percentage = float64(g.Correct) * 100 / float64(g.Total)
	}
	return g
}
