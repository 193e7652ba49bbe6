package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-portal/internal/model"
)

type fakeExamStore struct {
	exams map[uuid.UUID]model.Exam
}

func newFakeExamStore(exams ...model.Exam) *fakeExamStore {
	s := &fakeExamStore{exams: make(map[uuid.UUID]model.Exam)}
	for _, e := range exams {
		s.exams[e.ID] = e
	}
	return s
}

func (s *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := s.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	c := e.Clone()
	return &c, nil
}

func (s *fakeExamStore) ListByClass(_ context.Context, class model.ClassLevel) ([]model.Exam, error) {
	out := []model.Exam{}
	for _, e := range s.exams {
		if e.Class == class {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (s *fakeExamStore) ListPublished(_ context.Context) ([]model.ExamSummary, error) {
	out := []model.ExamSummary{}
	for _, e := range s.exams {
		if e.Status == model.ExamStatusPublished {
			out = append(out, e.Summary())
		}
	}
	return out, nil
}

type fakeSink struct {
	mu   sync.Mutex
	subs []model.Submission
	err  error
}

func (s *fakeSink) Enqueue(_ context.Context, sub model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type fakeSessions struct {
	mu    sync.Mutex
	reset []int
}

func (s *fakeSessions) ResetStudentSession(_ context.Context, studentID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset = append(s.reset, studentID)
	return nil
}

func publishedExam(class model.ClassLevel, subject string) model.Exam {
	return model.Exam{
		ID:              uuid.New(),
		Subject:         subject,
		Class:           class,
		Status:          model.ExamStatusPublished,
		DurationMinutes: 5,
		ObjectiveQuestions: []model.ObjectiveQuestion{
			{ID: uuid.New(), Prompt: "2 + 2", Options: []string{"3", "4", "5", "6"}, Correct: "4"},
			{ID: uuid.New(), Prompt: "Capital of Nigeria", Options: []string{"Lagos", "Abuja", "Kano", "Ibadan"}, Correct: "Abuja"},
		},
		TheoryQuestions: []model.TheoryQuestion{
			{ID: uuid.New(), Prompt: "Explain photosynthesis."},
		},
	}
}
