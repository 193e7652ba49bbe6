package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the record handed downstream when a student finishes an attempt.
type Submission struct {
	ID                    uuid.UUID            `json:"id"`
	ExamID                uuid.UUID            `json:"exam_id"`
	StudentID             int                  `json:"student_id"`
	Subject               string               `json:"subject"`
	Class                 ClassLevel           `json:"class"`
	QuestionOrder         []uuid.UUID          `json:"question_order"`
	ObjectiveAnswers      map[uuid.UUID]string `json:"objective_answers"`
	TheoryAnswers         map[uuid.UUID]string `json:"theory_answers"`
	Correct               int                  `json:"correct"`
	ObjectiveTotal        int                  `json:"objective_total"`
	ObjectiveScore        float64              `json:"objective_score"`
	TimeExpired           bool                 `json:"time_expired"`
	StartedAt             time.Time            `json:"started_at"`
	ObjectivesSubmittedAt time.Time            `json:"objectives_submitted_at"`
	FinishedAt            time.Time            `json:"finished_at"`
	// FailedWrites counts persistence failures while queued. Not stored.
	FailedWrites          int                  `json:"failed_writes,omitempty"`
}
