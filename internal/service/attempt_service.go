package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/countdown"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/notify"
)

// Attempt errors
var (
	ErrNoActiveAttempt   = errors.New("no exam in progress")
	ErrAttemptInProgress = errors.New("another exam is already in progress")
	ErrExamNotLive       = errors.New("exam is not live for this class")
	ErrExempted          = errors.New("student is exempted from this exam")
)

// finishTimeout bounds the hand-off work done when an attempt ends.
const finishTimeout = 5 * time.Second

// SubmissionSink receives finished attempts for persistence.
type SubmissionSink interface {
	Enqueue(ctx context.Context, sub model.Submission) error
}

// SessionEnder logs a student out.
type SessionEnder interface {
	ResetStudentSession(ctx context.Context, studentID int) error
}

// StudentRef identifies the student starting an attempt.
type StudentRef struct {
	ID    int
	Class model.ClassLevel
}

// AttemptService owns the in-memory attempts, one per student.
type AttemptService struct {
	mu       sync.Mutex
	attempts map[int]*attempt.Attempt

	registry      live.Registry
	exams         ExamStore
	policy        live.ExemptionPolicy
	sink          SubmissionSink
	sessions      SessionEnder
	notifier      notify.Notifier
	timerInterval time.Duration
	log           zerolog.Logger
}

// AttemptServiceConfig carries the AttemptService collaborators.
type AttemptServiceConfig struct {
	Registry      live.Registry
	Exams         ExamStore
	Policy        live.ExemptionPolicy
	Sink          SubmissionSink
	Sessions      SessionEnder
	TimerInterval time.Duration
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(cfg AttemptServiceConfig, log zerolog.Logger) *AttemptService {
	policy := cfg.Policy
	if policy == nil {
		policy = live.IgnoreExemptions
	}
	interval := cfg.TimerInterval
	if interval <= 0 {
		interval = countdown.DefaultInterval
	}
	l := log.With().Str("component", "attempt_service").Logger()
	return &AttemptService{
		attempts:      make(map[int]*attempt.Attempt),
		registry:      cfg.Registry,
		exams:         cfg.Exams,
		policy:        policy,
		sink:          cfg.Sink,
		sessions:      cfg.Sessions,
		notifier:      notify.NewLogNotifier(l),
		timerInterval: interval,
		log:           l,
	}
}

// Start begins an attempt at a live exam, or returns the student's running
// attempt at the same exam. resumed reports which happened.
func (s *AttemptService) Start(ctx context.Context, student StudentRef, examID uuid.UUID) (a *attempt.Attempt, resumed bool, err error) {
	if a, ok := s.running(student.ID); ok {
		if a.ExamID() == examID {
			return a, true, nil
		}
		return nil, false, ErrAttemptInProgress
	}

	entry, ok, err := s.registry.Get(ctx, examID)
	if err != nil {
		return nil, false, fmt.Errorf("look up live exam: %w", err)
	}
	if !ok {
		if _, err := s.exams.GetByID(ctx, examID); err != nil {
			return nil, false, err
		}
		return nil, false, ErrExamNotLive
	}
	if entry.Exam.Class != student.Class {
		return nil, false, ErrExamNotLive
	}
	if !s.policy.AllowAttempt(entry, student.ID) {
		return nil, false, ErrExempted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: a concurrent request may have started one meanwhile.
	if existing, ok := s.attempts[student.ID]; ok && !existing.Phase().Terminal() {
		if existing.ExamID() == examID {
			return existing, true, nil
		}
		return nil, false, ErrAttemptInProgress
	}

	studentID := student.ID
	a, err = attempt.Start(entry.Exam, studentID,
		attempt.WithNotifier(s.notifier),
		attempt.WithTimerOptions(countdown.WithInterval(s.timerInterval)),
		attempt.WithOnFinish(func(sub model.Submission) error {
			return s.finish(studentID, sub)
		}),
		attempt.WithLogger(s.log),
	)
	if err != nil {
		return nil, false, err
	}
	s.attempts[studentID] = a
	return a, false, nil
}

// Current returns the student's running attempt.
func (s *AttemptService) Current(studentID int) (*attempt.Attempt, error) {
	if a, ok := s.running(studentID); ok {
		return a, nil
	}
	return nil, ErrNoActiveAttempt
}

// Abandon tears down the student's attempt, if any.
func (s *AttemptService) Abandon(studentID int) bool {
	s.mu.Lock()
	a, ok := s.attempts[studentID]
	delete(s.attempts, studentID)
	s.mu.Unlock()

	if !ok {
		return false
	}
	return a.Abandon()
}

// AbandonAll tears down every attempt. Used on shutdown.
func (s *AttemptService) AbandonAll() int {
	s.mu.Lock()
	all := s.attempts
	s.attempts = make(map[int]*attempt.Attempt)
	s.mu.Unlock()

	n := 0
	for _, a := range all {
		if a.Abandon() {
			n++
		}
	}
	return n
}

// Active returns the number of running attempts.
func (s *AttemptService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func (s *AttemptService) running(studentID int) (*attempt.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[studentID]
	if !ok || a.Phase().Terminal() {
		return nil, false
	}
	return a, true
}

// finish hands a submission downstream, then drops the attempt and logs the
// student out. A failed hand-off keeps the attempt so it can be resubmitted.
func (s *AttemptService) finish(studentID int, sub model.Submission) error {
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()

	if err := s.sink.Enqueue(ctx, sub); err != nil {
		s.log.Error().Err(err).
			Str("attempt_id", sub.ID.String()).
			Str("exam_id", sub.ExamID.String()).
			Int("student_id", studentID).
			Interface("submission", sub).
			Msg("Failed to enqueue submission")
		return err
	}

	s.mu.Lock()
	if a, ok := s.attempts[studentID]; ok && a.ID() == sub.ID {
		delete(s.attempts, studentID)
	}
	s.mu.Unlock()

	if s.sessions != nil {
		if err := s.sessions.ResetStudentSession(ctx, studentID); err != nil {
			s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to end student session after submit")
		}
	}
	return nil
}
