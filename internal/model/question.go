package model

import "github.com/google/uuid"

// ObjectiveOptionCount is the number of options every objective question carries.
const ObjectiveOptionCount = 4

// ObjectiveQuestion is a multiple-choice question with exactly one correct option.
type ObjectiveQuestion struct {
	ID      uuid.UUID `json:"id"`
	Prompt  string    `json:"prompt"`
	Options []string  `json:"options"`
	Correct string    `json:"correct"`
}

// Validate checks the option count and that the correct answer is one of the options.
// Matching is case-sensitive, the same equality used when grading.
func (q *ObjectiveQuestion) Validate() error {
	if q.Prompt == "" {
		return ErrEmptyPrompt
	}
	if len(q.Options) != ObjectiveOptionCount {
		return ErrOptionCount
	}
	if !q.HasOption(q.Correct) {
		return ErrCorrectNotInOptions
	}
	return nil
}

// HasOption reports whether option is exactly one of the question's options.
func (q *ObjectiveQuestion) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// TheoryQuestion is a free-text question graded manually.
type TheoryQuestion struct {
	ID     uuid.UUID `json:"id"`
	Prompt string    `json:"prompt"`
}

// AddObjectiveQuestionItem is one objective question in a create-exam payload.
type AddObjectiveQuestionItem struct {
	Prompt  string   `json:"prompt" binding:"required,min=1,max=2000"`
	Options []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	Correct string   `json:"correct" binding:"required,max=500"`
}

// AddTheoryQuestionItem is one theory question in a create-exam payload.
type AddTheoryQuestionItem struct {
	Prompt string `json:"prompt" binding:"required,min=1,max=4000"`
}
