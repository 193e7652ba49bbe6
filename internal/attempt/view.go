package attempt

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-portal/internal/countdown"
	"github.com/stemsi/exstem-portal/internal/model"
)

// QuestionView is an objective question as shown to the student. It never
// carries the correct option.
type QuestionView struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	Selected string    `json:"selected,omitempty"`
}

// TheoryView is a theory question with the student's current text.
type TheoryView struct {
	ID     uuid.UUID `json:"id"`
	Prompt string    `json:"prompt"`
	Answer string    `json:"answer,omitempty"`
}

// Snapshot is a read-only projection of an attempt for clients.
type Snapshot struct {
	AttemptID     uuid.UUID        `json:"attempt_id"`
	ExamID        uuid.UUID        `json:"exam_id"`
	Subject       string           `json:"subject"`
	Class         model.ClassLevel `json:"class"`
	Phase         Phase            `json:"phase"`
	Index         int              `json:"index"`
	Total         int              `json:"total"`
	Answered      int              `json:"answered"`
	Question      *QuestionView    `json:"question,omitempty"`
	Theory        []TheoryView     `json:"theory,omitempty"`
	SecondsLeft   int              `json:"seconds_left"`
	TimeRemaining string           `json:"time_remaining"`
	// Progress is the fraction of exam time left, 0 to 1.
	Progress    float64   `json:"progress"`
	TimeExpired bool      `json:"time_expired"`
	StartedAt   time.Time `json:"started_at"`
}

// ID returns the attempt's identifier.
func (a *Attempt) ID() uuid.UUID { return a.id }

// ExamID returns the exam being attempted.
func (a *Attempt) ExamID() uuid.UUID { return a.exam.ID }

// StudentID returns the student sitting the attempt.
func (a *Attempt) StudentID() int { return a.studentID }

// Phase returns the current phase.
func (a *Attempt) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// CurrentIndex returns the zero-based position in the shuffled objective list.
func (a *Attempt) CurrentIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index
}

// CurrentQuestion returns the objective question at the current index, or nil
// when the exam has none.
func (a *Attempt) CurrentQuestion() *QuestionView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentQuestionLocked()
}

// QuestionOrder returns the shuffled objective question IDs.
func (a *Attempt) QuestionOrder() []uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uuid.UUID, len(a.order))
	for i, q := range a.order {
		out[i] = q.ID
	}
	return out
}

// ObjectiveAnswers returns a copy of the objective answers.
func (a *Attempt) ObjectiveAnswers() map[uuid.UUID]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.objectiveAnswers)
}

// TheoryAnswers returns a copy of the theory answers.
func (a *Attempt) TheoryAnswers() map[uuid.UUID]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.theoryAnswers)
}

// SecondsLeft returns the remaining objective time.
func (a *Attempt) SecondsLeft() int {
	return a.timer.SecondsLeft()
}

// FormattedTimeRemaining returns the remaining objective time as MM:SS.
func (a *Attempt) FormattedTimeRemaining() string {
	return a.timer.Formatted()
}

// Progress returns secondsLeft as a fraction of the exam duration, for the
// time bar.
func (a *Attempt) Progress(secondsLeft int) float64 {
	return progress(secondsLeft, a.timer.Total())
}

func progress(left, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(left) / float64(total)
}

// Snapshot captures the attempt for display.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	left := a.timer.SecondsLeft()
	s := Snapshot{
		AttemptID:     a.id,
		ExamID:        a.exam.ID,
		Subject:       a.exam.Subject,
		Class:         a.exam.Class,
		Phase:         a.phase,
		Index:         a.index,
		Total:         len(a.order),
		Answered:      len(a.objectiveAnswers),
		SecondsLeft:   left,
		TimeRemaining: countdown.Format(left),
		TimeExpired:   a.expired,
		StartedAt:     a.startedAt,
		Progress:      progress(left, a.timer.Total()),
	}

	switch a.phase {
	case PhaseObjectives:
		s.Question = a.currentQuestionLocked()
	case PhaseTheory:
		s.Theory = make([]TheoryView, len(a.exam.TheoryQuestions))
		for i, q := range a.exam.TheoryQuestions {
			s.Theory[i] = TheoryView{ID: q.ID, Prompt: q.Prompt, Answer: a.theoryAnswers[q.ID]}
		}
	case PhaseCheckpoint, PhaseFinished, PhaseAbandoned:
	}
	return s
}

func (a *Attempt) currentQuestionLocked() *QuestionView {
	if len(a.order) == 0 {
		return nil
	}
	q := a.order[a.index]
	return &QuestionView{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  append([]string(nil), q.Options...),
		Selected: a.objectiveAnswers[q.ID],
	}
}
