package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/scoring"
)

// ResultService handles score entry and result views.
type ResultService struct {
	resultRepo *repository.ResultRepository
	log        zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, log zerolog.Logger) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		log:        log.With().Str("component", "result_service").Logger(),
	}
}

// BuildResult validates the score components and derives total and remark.
func BuildResult(req model.UpsertResultRequest) (*model.Result, error) {
	if req.CA == nil || req.Exam == nil {
		return nil, scoring.ErrCAOutOfRange
	}
	total, remark, err := scoring.Compute(*req.CA, *req.Exam)
	if err != nil {
		return nil, err
	}
	return &model.Result{
		StudentID: req.StudentID,
		Subject:   req.Subject,
		Class:     req.Class,
		Term:      req.Term,
		CA:        *req.CA,
		Exam:      *req.Exam,
		Total:     total,
		Remark:    remark,
	}, nil
}

// Upsert enters or corrects a score record.
func (s *ResultService) Upsert(ctx context.Context, req model.UpsertResultRequest) (*model.Result, error) {
	res, err := BuildResult(req)
	if err != nil {
		return nil, err
	}
	if err := s.resultRepo.Upsert(ctx, res); err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}

	s.log.Info().
		Int("student_id", res.StudentID).
		Str("subject", res.Subject).
		Str("term", string(res.Term)).
		Int("total", res.Total).
		Msg("Result saved")
	return res, nil
}

// List retrieves score records matching the filter.
func (s *ResultService) List(ctx context.Context, f model.ResultFilter, page, perPage int) ([]model.Result, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)

	results, total, err := s.resultRepo.ListPaginated(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, response.NewPagination(page, perPage, total), nil
}
