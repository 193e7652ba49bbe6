package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "Draft"
	ExamStatusPublished ExamStatus = "Published"
)

// Valid reports whether s is a known exam status.
func (s ExamStatus) Valid() bool {
	switch s {
	case ExamStatusDraft, ExamStatusPublished:
		return true
	default:
		return false
	}
}

// Exam represents an exam in the exam bank.
type Exam struct {
	ID                 uuid.UUID           `json:"id"`
	Subject            string              `json:"subject"`
	Class              ClassLevel          `json:"class"`
	Status             ExamStatus          `json:"status"`
	DurationMinutes    int                 `json:"duration_minutes"`
	AuthorID           int                 `json:"author_id"`
	ObjectiveQuestions []ObjectiveQuestion `json:"objective_questions"`
	TheoryQuestions    []TheoryQuestion    `json:"theory_questions"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// DurationSeconds returns the exam duration in whole seconds.
func (e *Exam) DurationSeconds() int {
	return e.DurationMinutes * 60
}

// Validate checks the exam-level invariants and every objective question.
func (e *Exam) Validate() error {
	if e.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if !e.Class.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidClass, e.Class)
	}
	for i := range e.ObjectiveQuestions {
		if err := e.ObjectiveQuestions[i].Validate(); err != nil {
			return fmt.Errorf("objective question %d: %w", i+1, err)
		}
	}
	for i := range e.TheoryQuestions {
		if e.TheoryQuestions[i].Prompt == "" {
			return fmt.Errorf("theory question %d: %w", i+1, ErrEmptyPrompt)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hold a snapshot that later edits do not touch.
func (e Exam) Clone() Exam {
	out := e
	if e.ObjectiveQuestions != nil {
		out.ObjectiveQuestions = make([]ObjectiveQuestion, len(e.ObjectiveQuestions))
		for i, q := range e.ObjectiveQuestions {
			q.Options = append([]string(nil), q.Options...)
			out.ObjectiveQuestions[i] = q
		}
	}
	if e.TheoryQuestions != nil {
		out.TheoryQuestions = append([]TheoryQuestion(nil), e.TheoryQuestions...)
	}
	return out
}

// Summary strips the questions from an exam for list views.
func (e Exam) Summary() ExamSummary {
	return ExamSummary{
		ID:              e.ID,
		Subject:         e.Subject,
		Class:           e.Class,
		Status:          e.Status,
		DurationMinutes: e.DurationMinutes,
		ObjectiveCount:  len(e.ObjectiveQuestions),
		TheoryCount:     len(e.TheoryQuestions),
	}
}

// ExamSummary is the question-free projection of an exam.
type ExamSummary struct {
	ID              uuid.UUID  `json:"id"`
	Subject         string     `json:"subject"`
	Class           ClassLevel `json:"class"`
	Status          ExamStatus `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	ObjectiveCount  int        `json:"objective_count"`
	TheoryCount     int        `json:"theory_count"`
}

// CreateExamRequest is the payload for creating a new draft exam.
type CreateExamRequest struct {
	Subject            string                     `json:"subject" binding:"required,min=2,max=100"`
	Class              ClassLevel                 `json:"class" binding:"required,class_level"`
	DurationMinutes    int                        `json:"duration_minutes" binding:"required,min=1,max=480"`
	ObjectiveQuestions []AddObjectiveQuestionItem `json:"objective_questions" binding:"dive"`
	TheoryQuestions    []AddTheoryQuestionItem    `json:"theory_questions" binding:"dive"`
}
