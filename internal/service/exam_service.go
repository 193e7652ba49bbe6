package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/response"
)

// Domain Errors
var (
	ErrExamNotFound = errors.New("exam not found")
	ErrExamNotDraft = errors.New("exam status is not Draft")
)

// ExamStore is the read-only view of the exam bank used by the live and
// attempt flows.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListByClass(ctx context.Context, class model.ClassLevel) ([]model.Exam, error)
	ListPublished(ctx context.Context) ([]model.ExamSummary, error)
}

// ExamService handles exam bank business logic.
type ExamService struct {
	examRepo *repository.ExamRepository
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam with its questions.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	return exam, err
}

// ListByClass retrieves every exam of a class with its questions.
func (s *ExamService) ListByClass(ctx context.Context, class model.ClassLevel) ([]model.Exam, error) {
	exams, err := s.examRepo.ListByClass(ctx, class)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// ListPublished returns every published exam without its questions.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.ExamSummary, error) {
	exams, err := s.examRepo.ListSummaries(ctx, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.ExamSummary{}
	}
	return exams, nil
}

// List retrieves exam summaries with optional class and status filters.
func (s *ExamService) List(ctx context.Context, class model.ClassLevel, status model.ExamStatus, page, perPage int) ([]model.ExamSummary, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)

	exams, total, err := s.examRepo.ListPaginated(ctx, class, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.ExamSummary{}
	}
	return exams, response.NewPagination(page, perPage, total), nil
}

// Create builds a Draft exam from the request and stores it with its questions.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest, authorID int) (*model.Exam, error) {
	exam := NewDraftExam(req, authorID)
	if err := exam.Validate(); err != nil {
		return nil, err
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("class", string(exam.Class)).
		Int("author_id", authorID).
		Msg("Exam created")
	return exam, nil
}

// Publish moves an exam from Draft to Published.
func (s *ExamService) Publish(ctx context.Context, id uuid.UUID) error {
	changed, err := s.examRepo.UpdateStatusFrom(ctx, id, model.ExamStatusDraft, model.ExamStatusPublished)
	if err != nil {
		return fmt.Errorf("publish exam: %w", err)
	}
	if !changed {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrExamNotDraft
	}

	s.log.Info().Str("exam_id", id.String()).Msg("Exam published")
	return nil
}

// NewDraftExam maps a create request onto a Draft exam.
func NewDraftExam(req model.CreateExamRequest, authorID int) *model.Exam {
	exam := &model.Exam{
		Subject:            req.Subject,
		Class:              req.Class,
		Status:             model.ExamStatusDraft,
		DurationMinutes:    req.DurationMinutes,
		AuthorID:           authorID,
		ObjectiveQuestions: make([]model.ObjectiveQuestion, len(req.ObjectiveQuestions)),
		TheoryQuestions:    make([]model.TheoryQuestion, len(req.TheoryQuestions)),
	}
	for i, q := range req.ObjectiveQuestions {
		exam.ObjectiveQuestions[i] = model.ObjectiveQuestion{
			ID:      uuid.New(),
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
			Correct: q.Correct,
		}
	}
	for i, q := range req.TheoryQuestions {
		exam.TheoryQuestions[i] = model.TheoryQuestion{ID: uuid.New(), Prompt: q.Prompt}
	}
	return exam
}
