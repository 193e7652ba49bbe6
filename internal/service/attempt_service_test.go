package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
)

type attemptFixture struct {
	svc      *AttemptService
	registry *live.MemoryRegistry
	sink     *fakeSink
	sessions *fakeSessions
	exam     model.Exam
}

func newAttemptFixture(t *testing.T, policy live.ExemptionPolicy, exempted ...int) *attemptFixture {
	t.Helper()
	exam := publishedExam(model.ClassSS1, "Mathematics")
	registry := live.NewMemoryRegistry()
	if _, err := registry.GoLive(context.Background(), exam, exempted, 1); err != nil {
		t.Fatalf("go live: %v", err)
	}

	f := &attemptFixture{
		registry: registry,
		sink:     &fakeSink{},
		sessions: &fakeSessions{},
		exam:     exam,
	}
	f.svc = NewAttemptService(AttemptServiceConfig{
		Registry:      registry,
		Exams:         newFakeExamStore(exam),
		Policy:        policy,
		Sink:          f.sink,
		Sessions:      f.sessions,
		TimerInterval: time.Hour,
	}, zerolog.Nop())
	t.Cleanup(func() { f.svc.AbandonAll() })
	return f
}

func TestStartAttemptRejectsUnknownExam(t *testing.T) {
	f := newAttemptFixture(t, nil)

	_, _, err := f.svc.Start(context.Background(), StudentRef{ID: 7, Class: model.ClassSS1}, uuid.New())
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestStartAttemptRequiresLiveExamForClass(t *testing.T) {
	f := newAttemptFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.svc.Start(ctx, StudentRef{ID: 7, Class: model.ClassJSS3}, f.exam.ID)
	if !errors.Is(err, ErrExamNotLive) {
		t.Fatalf("expected ErrExamNotLive for other class, got %v", err)
	}

	if _, err := f.registry.StopLive(ctx, f.exam.ID); err != nil {
		t.Fatalf("stop live: %v", err)
	}
	_, _, err = f.svc.Start(ctx, StudentRef{ID: 7, Class: model.ClassSS1}, f.exam.ID)
	if !errors.Is(err, ErrExamNotLive) {
		t.Fatalf("expected ErrExamNotLive after stop, got %v", err)
	}
}

func TestStartAttemptResumesSameExam(t *testing.T) {
	f := newAttemptFixture(t, nil)
	ctx := context.Background()
	student := StudentRef{ID: 7, Class: model.ClassSS1}

	first, resumed, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil || resumed {
		t.Fatalf("start: resumed=%v err=%v", resumed, err)
	}
	second, resumed, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil || !resumed {
		t.Fatalf("resume: resumed=%v err=%v", resumed, err)
	}
	if first != second {
		t.Fatalf("expected the running attempt to be returned")
	}
	if f.svc.Active() != 1 {
		t.Fatalf("expected one active attempt, got %d", f.svc.Active())
	}
}

func TestStartAttemptRejectsSecondExam(t *testing.T) {
	f := newAttemptFixture(t, nil)
	ctx := context.Background()
	student := StudentRef{ID: 7, Class: model.ClassSS1}

	other := publishedExam(model.ClassSS1, "English")
	if _, err := f.registry.GoLive(ctx, other, nil, 1); err != nil {
		t.Fatalf("go live: %v", err)
	}

	if _, _, err := f.svc.Start(ctx, student, f.exam.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := f.svc.Start(ctx, student, other.ID); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("expected ErrAttemptInProgress, got %v", err)
	}
}

func TestExemptedStudentCanStartByDefault(t *testing.T) {
	f := newAttemptFixture(t, nil, 7)

	if _, _, err := f.svc.Start(context.Background(), StudentRef{ID: 7, Class: model.ClassSS1}, f.exam.ID); err != nil {
		t.Fatalf("exempted student should still start by default: %v", err)
	}
}

func TestEnforcedExemptionBlocksStudent(t *testing.T) {
	f := newAttemptFixture(t, live.EnforceExemptions, 7)
	ctx := context.Background()

	if _, _, err := f.svc.Start(ctx, StudentRef{ID: 7, Class: model.ClassSS1}, f.exam.ID); !errors.Is(err, ErrExempted) {
		t.Fatalf("expected ErrExempted, got %v", err)
	}
	if _, _, err := f.svc.Start(ctx, StudentRef{ID: 8, Class: model.ClassSS1}, f.exam.ID); err != nil {
		t.Fatalf("non-exempted student: %v", err)
	}
}

func TestFinalSubmitHandsOffAndEndsSession(t *testing.T) {
	f := newAttemptFixture(t, nil)
	student := StudentRef{ID: 7, Class: model.ClassSS1}

	a, _, err := f.svc.Start(context.Background(), student, f.exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	q := a.CurrentQuestion()
	if err := a.SelectObjectiveAnswer(q.ID, q.Options[0]); err != nil {
		t.Fatalf("select: %v", err)
	}
	a.SubmitObjectives()
	if err := a.ProceedToTheory(); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	sub, err := a.FinalSubmit()
	if err != nil {
		t.Fatalf("final submit: %v", err)
	}

	if f.sink.count() != 1 || f.sink.subs[0].ID != sub.ID {
		t.Fatalf("expected submission to be enqueued once")
	}
	if len(f.sessions.reset) != 1 || f.sessions.reset[0] != student.ID {
		t.Fatalf("expected student session reset, got %v", f.sessions.reset)
	}
	if _, err := f.svc.Current(student.ID); !errors.Is(err, ErrNoActiveAttempt) {
		t.Fatalf("expected no active attempt after submit, got %v", err)
	}
}

func TestFinalSubmitSurfacesSinkFailure(t *testing.T) {
	f := newAttemptFixture(t, nil)
	f.sink.err = errors.New("redis down")

	a, _, err := f.svc.Start(context.Background(), StudentRef{ID: 7, Class: model.ClassSS1}, f.exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	a.SubmitObjectives()
	_ = a.ProceedToTheory()

	if _, err := a.FinalSubmit(); err == nil {
		t.Fatalf("expected hand-off error")
	}
	if len(f.sessions.reset) != 0 {
		t.Fatalf("session must survive a failed hand-off")
	}
}

func TestFinalSubmitRetriesAfterSinkRecovers(t *testing.T) {
	f := newAttemptFixture(t, nil)
	student := StudentRef{ID: 7, Class: model.ClassSS1}

	a, _, err := f.svc.Start(context.Background(), student, f.exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	q := a.CurrentQuestion()
	if err := a.SelectObjectiveAnswer(q.ID, q.Options[0]); err != nil {
		t.Fatalf("select: %v", err)
	}
	a.SubmitObjectives()
	_ = a.ProceedToTheory()

	f.sink.mu.Lock()
	f.sink.err = errors.New("redis down")
	f.sink.mu.Unlock()
	if _, err := a.FinalSubmit(); err == nil {
		t.Fatalf("expected hand-off error")
	}
	if a.Phase() != attempt.PhaseTheory {
		t.Fatalf("expected attempt to stay in theory, got %s", a.Phase())
	}
	current, err := f.svc.Current(student.ID)
	if err != nil || current != a {
		t.Fatalf("expected attempt to stay resumable, got %v", err)
	}

	f.sink.mu.Lock()
	f.sink.err = nil
	f.sink.mu.Unlock()
	sub, err := a.FinalSubmit()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.sink.count() != 1 || f.sink.subs[0].ObjectiveAnswers[q.ID] != q.Options[0] {
		t.Fatalf("expected the retried submission to carry the answers")
	}
	if sub.FinishedAt.IsZero() || a.Phase() != attempt.PhaseFinished {
		t.Fatalf("expected finished attempt after retry, phase %s", a.Phase())
	}
	if _, err := f.svc.Current(student.ID); !errors.Is(err, ErrNoActiveAttempt) {
		t.Fatalf("expected attempt to be released, got %v", err)
	}
}

func TestAbandonStopsAttempt(t *testing.T) {
	f := newAttemptFixture(t, nil)
	student := StudentRef{ID: 7, Class: model.ClassSS1}

	a, _, err := f.svc.Start(context.Background(), student, f.exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !f.svc.Abandon(student.ID) {
		t.Fatalf("expected abandon to report a running attempt")
	}
	if a.Phase() != attempt.PhaseAbandoned {
		t.Fatalf("expected abandoned phase, got %s", a.Phase())
	}
	if f.svc.Abandon(student.ID) {
		t.Fatalf("second abandon must be a no-op")
	}

	if _, resumed, err := f.svc.Start(context.Background(), student, f.exam.ID); err != nil || resumed {
		t.Fatalf("expected a fresh attempt after abandon: resumed=%v err=%v", resumed, err)
	}
}

func TestStopLiveDoesNotEndRunningAttempt(t *testing.T) {
	f := newAttemptFixture(t, nil)
	ctx := context.Background()
	student := StudentRef{ID: 7, Class: model.ClassSS1}

	if _, _, err := f.svc.Start(ctx, student, f.exam.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.registry.StopLive(ctx, f.exam.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	a, err := f.svc.Current(student.ID)
	if err != nil {
		t.Fatalf("attempt should keep running: %v", err)
	}
	if a.Phase() != attempt.PhaseObjectives {
		t.Fatalf("unexpected phase %s", a.Phase())
	}
}
