// Package attempt implements one student's run through a live exam.
//
// An Attempt moves through a fixed sequence of phases:
//
//	objectives -> checkpoint -> theory -> finished
//
// The objectives phase is timed. It ends when the student submits or when the
// countdown reaches zero; both paths go through the same phase-guarded
// routine, so a timer expiry racing a click submits once. The checkpoint
// freezes objective answers, and the theory phase is untimed until the final
// submit. Abandon tears an attempt down from any phase.
package attempt

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-portal/internal/countdown"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/notify"
	"github.com/stemsi/exstem-portal/internal/scoring"
	"github.com/stemsi/exstem-portal/internal/shuffle"
)

// Phase is the attempt's position in its lifecycle.
type Phase string

const (
	PhaseObjectives Phase = "objectives"
	PhaseCheckpoint Phase = "checkpoint"
	PhaseTheory     Phase = "theory"
	PhaseFinished   Phase = "finished"
	PhaseAbandoned  Phase = "abandoned"
)

// Terminal reports whether no further operation is accepted in p.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseFinished, PhaseAbandoned:
		return true
	case PhaseObjectives, PhaseCheckpoint, PhaseTheory:
		return false
	default:
		return false
	}
}

var (
	ErrInvalidPhase    = errors.New("operation not allowed in the current phase")
	ErrUnknownQuestion = errors.New("question is not part of this exam")
	ErrInvalidOption   = errors.New("answer is not one of the question's options")
	ErrInvalidExam     = errors.New("exam cannot be attempted")
)

// RouteDashboard is where a student is sent after the attempt ends.
const RouteDashboard = "/student/dashboard"

// Navigator asks the host to move the student to another screen.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

var noNavigation Navigator = NavigatorFunc(func(string) {})

// Hooks are the per-client collaborators attached to a running attempt.
// Nil fields fall back to the attempt's configured defaults.
type Hooks struct {
	Notifier  notify.Notifier
	Navigator Navigator
	OnPhase   func(Phase)
	OnTick    func(secondsLeft int)
}

// Attempt is the state machine for a single attempt. All methods are safe
// for concurrent use; the countdown's expiry and user actions are serialized
// by one mutex.
type Attempt struct {
	mu sync.Mutex

	id        uuid.UUID
	exam      model.Exam
	studentID int
	order     []model.ObjectiveQuestion
	theory    map[uuid.UUID]struct{}

	objectiveAnswers map[uuid.UUID]string
	theoryAnswers    map[uuid.UUID]string
	index            int
	phase            Phase
	expired          bool
	// submitting is set while FinalSubmit waits on the finish hook.
	submitting       bool

	startedAt             time.Time
	objectivesSubmittedAt time.Time
	finishedAt            time.Time

	timer     *countdown.Timer
	timerOpts []countdown.Option

	defaults Hooks
	attached Hooks
	attachID uint64

	onFinish func(model.Submission) error
	src      shuffle.Source
	now      func() time.Time
	log      zerolog.Logger
}

// Start validates the exam, shuffles its objective questions once, and
// starts the countdown.
func Start(exam model.Exam, studentID int, opts ...Option) (*Attempt, error) {
	if err := exam.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExam, err)
	}

	a := &Attempt{
		id:               uuid.New(),
		exam:             exam.Clone(),
		studentID:        studentID,
		theory:           make(map[uuid.UUID]struct{}, len(exam.TheoryQuestions)),
		objectiveAnswers: make(map[uuid.UUID]string),
		theoryAnswers:    make(map[uuid.UUID]string),
		phase:            PhaseObjectives,
		defaults: Hooks{
			Notifier:  notify.Discard,
			Navigator: noNavigation,
		},
		src: shuffle.Default(),
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, q := range a.exam.TheoryQuestions {
		a.theory[q.ID] = struct{}{}
	}
	a.order = shuffle.Shuffle(a.exam.ObjectiveQuestions, a.src)
	a.startedAt = a.now()
	a.log = a.log.With().
		Str("attempt_id", a.id.String()).
		Str("exam_id", a.exam.ID.String()).
		Int("student_id", studentID).
		Logger()

	timerOpts := append([]countdown.Option{countdown.WithTickObserver(a.tick)}, a.timerOpts...)
	a.timer = countdown.New(a.exam.DurationSeconds(), a.expire, timerOpts...)
	a.timer.Start()

	a.log.Info().
		Int("objective_count", len(a.order)).
		Int("theory_count", len(a.exam.TheoryQuestions)).
		Int("duration_seconds", a.exam.DurationSeconds()).
		Msg("Attempt started")
	return a, nil
}

// Attach binds a client's hooks to the attempt. The returned detach restores
// the defaults unless another client attached in the meantime.
func (a *Attempt) Attach(h Hooks) (detach func()) {
	a.mu.Lock()
	a.attachID++
	id := a.attachID
	a.attached = h
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.attachID == id {
			a.attached = Hooks{}
		}
	}
}

// SelectObjectiveAnswer records or overwrites the answer for an objective question.
func (a *Attempt) SelectObjectiveAnswer(questionID uuid.UUID, option string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseObjectives {
		return ErrInvalidPhase
	}
	q := a.questionLocked(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	if !q.HasOption(option) {
		return ErrInvalidOption
	}
	a.objectiveAnswers[questionID] = option
	return nil
}

// NavigateNext moves to the next objective question. It stays put on the last one.
func (a *Attempt) NavigateNext() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseObjectives {
		return ErrInvalidPhase
	}
	if a.index < len(a.order)-1 {
		a.index++
	}
	return nil
}

// NavigateBack moves to the previous objective question. It stays put on the first one.
func (a *Attempt) NavigateBack() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseObjectives {
		return ErrInvalidPhase
	}
	if a.index > 0 {
		a.index--
	}
	return nil
}

// SubmitObjectives locks the objective answers, pauses the countdown and moves
// to the checkpoint. It reports false when the objectives were already submitted.
func (a *Attempt) SubmitObjectives() bool {
	return a.submitObjectives(false)
}

// expire is the countdown's completion callback.
func (a *Attempt) expire() {
	a.submitObjectives(true)
}

func (a *Attempt) submitObjectives(expired bool) bool {
	a.mu.Lock()
	if a.phase != PhaseObjectives {
		a.mu.Unlock()
		return false
	}
	a.timer.Pause()
	a.phase = PhaseCheckpoint
	a.expired = expired
	a.objectivesSubmittedAt = a.now()
	answered := len(a.objectiveAnswers)
	hooks := a.hooksLocked()
	a.mu.Unlock()

	a.log.Info().
		Bool("time_expired", expired).
		Int("answered", answered).
		Int("seconds_left", a.timer.SecondsLeft()).
		Str("phase", string(PhaseCheckpoint)).
		Msg("Objectives submitted")

	if expired {
		hooks.Notifier.Notify("Time Up", "Your objective answers have been submitted automatically.", notify.KindError)
	} else {
		hooks.Notifier.Notify("Objectives Submitted!", "Your objective answers are locked in.", notify.KindSuccess)
	}
	if hooks.OnPhase != nil {
		hooks.OnPhase(PhaseCheckpoint)
	}
	return true
}

// ProceedToTheory leaves the checkpoint for the untimed theory phase.
func (a *Attempt) ProceedToTheory() error {
	a.mu.Lock()
	if a.phase != PhaseCheckpoint {
		a.mu.Unlock()
		return ErrInvalidPhase
	}
	a.phase = PhaseTheory
	hooks := a.hooksLocked()
	a.mu.Unlock()

	a.log.Info().Str("phase", string(PhaseTheory)).Msg("Proceeded to theory")
	if hooks.OnPhase != nil {
		hooks.OnPhase(PhaseTheory)
	}
	return nil
}

// RecordTheoryAnswer stores or overwrites the free text for a theory question.
func (a *Attempt) RecordTheoryAnswer(questionID uuid.UUID, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseTheory || a.submitting {
		return ErrInvalidPhase
	}
	if _, ok := a.theory[questionID]; !ok {
		return ErrUnknownQuestion
	}
	a.theoryAnswers[questionID] = text
	return nil
}

// FinalSubmit hands the graded submission to the finish hook and, once the
// hook accepts it, ends the attempt and sends the student to the dashboard.
// If the hook fails the attempt stays in the theory phase with every answer
// intact, so the student can submit again.
func (a *Attempt) FinalSubmit() (model.Submission, error) {
	a.mu.Lock()
	if a.phase != PhaseTheory || a.submitting {
		a.mu.Unlock()
		return model.Submission{}, ErrInvalidPhase
	}
	a.submitting = true
	a.finishedAt = a.now()
	sub := a.submissionLocked()
	onFinish := a.onFinish
	a.mu.Unlock()

	if onFinish != nil {
		if err := onFinish(sub); err != nil {
			a.mu.Lock()
			a.submitting = false
			a.finishedAt = time.Time{}
			hooks := a.hooksLocked()
			a.mu.Unlock()

			a.log.Error().Err(err).Msg("Failed to hand off submission")
			hooks.Notifier.Notify("Submission Failed", "Your answers are still here. Please try submitting again.", notify.KindError)
			return model.Submission{}, fmt.Errorf("hand off submission: %w", err)
		}
	}

	a.mu.Lock()
	a.submitting = false
	a.timer.Stop()
	a.phase = PhaseFinished
	hooks := a.hooksLocked()
	a.mu.Unlock()

	a.log.Info().
		Int("correct", sub.Correct).
		Int("objective_total", sub.ObjectiveTotal).
		Str("phase", string(PhaseFinished)).
		Msg("Attempt finished")

	hooks.Notifier.Notify("Exam Submitted!", "Your teacher will grade your theory answers shortly.", notify.KindSuccess)
	if hooks.OnPhase != nil {
		hooks.OnPhase(PhaseFinished)
	}
	hooks.Navigator.Navigate(RouteDashboard)
	return sub, nil
}

// Abandon tears the attempt down. The countdown is stopped so a pending tick
// cannot fire against it. It reports false if the attempt had already ended.
func (a *Attempt) Abandon() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.timer.Stop()
	if a.phase.Terminal() {
		return false
	}
	a.log.Info().Str("from_phase", string(a.phase)).Msg("Attempt abandoned")
	a.phase = PhaseAbandoned
	a.finishedAt = a.now()
	return true
}

func (a *Attempt) tick(secondsLeft int) {
	a.mu.Lock()
	hooks := a.hooksLocked()
	a.mu.Unlock()
	if hooks.OnTick != nil {
		hooks.OnTick(secondsLeft)
	}
}

// hooksLocked merges the attached hooks over the defaults.
func (a *Attempt) hooksLocked() Hooks {
	h := a.defaults
	if a.attached.Notifier != nil {
		h.Notifier = a.attached.Notifier
	}
	if a.attached.Navigator != nil {
		h.Navigator = a.attached.Navigator
	}
	if a.attached.OnPhase != nil {
		h.OnPhase = a.attached.OnPhase
	}
	if a.attached.OnTick != nil {
		h.OnTick = a.attached.OnTick
	}
	return h
}

func (a *Attempt) questionLocked(id uuid.UUID) *model.ObjectiveQuestion {
	for i := range a.order {
		if a.order[i].ID == id {
			return &a.order[i]
		}
	}
	return nil
}

func (a *Attempt) submissionLocked() model.Submission {
	grade := scoring.GradeObjectives(a.order, a.objectiveAnswers)
	order := make([]uuid.UUID, len(a.order))
	for i, q := range a.order {
		order[i] = q.ID
	}
	return model.Submission{
		ID:                    a.id,
		ExamID:                a.exam.ID,
		StudentID:             a.studentID,
		Subject:               a.exam.Subject,
		Class:                 a.exam.Class,
		QuestionOrder:         order,
		ObjectiveAnswers:      maps.Clone(a.objectiveAnswers),
		TheoryAnswers:         maps.Clone(a.theoryAnswers),
		Correct:               grade.Correct,
		ObjectiveTotal:        grade.Total,
		ObjectiveScore:        grade.Percentage,
		TimeExpired:           a.expired,
		StartedAt:             a.startedAt,
		ObjectivesSubmittedAt: a.objectivesSubmittedAt,
		FinishedAt:            a.finishedAt,
	}
}
