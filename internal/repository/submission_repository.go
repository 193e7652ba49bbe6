package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-portal/internal/model"
)

var submissionColumns = []string{
	"id", "exam_id", "student_id", "question_order", "objective_answers", "theory_answers",
	"correct", "objective_total", "objective_score", "time_expired",
	"started_at", "objectives_submitted_at", "finished_at",
}

// SubmissionRepository stores finished attempts.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// BulkInsert writes a batch with COPY. Any conflicting row fails the whole batch.
func (r *SubmissionRepository) BulkInsert(ctx context.Context, subs []model.Submission) error {
	rows := make([][]interface{}, len(subs))
	for i, s := range subs {
		rows[i] = submissionRow(s)
	}

	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"submissions"}, submissionColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy submissions: %w", err)
	}
	if int(n) != len(subs) {
		return fmt.Errorf("copy submissions: wrote %d of %d rows", n, len(subs))
	}
	return nil
}

// Insert writes one submission. A submission already stored is left untouched.
func (r *SubmissionRepository) Insert(ctx context.Context, s model.Submission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (id, exam_id, student_id, question_order, objective_answers, theory_answers,
		                          correct, objective_total, objective_score, time_expired,
		                          started_at, objectives_submitted_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO NOTHING`,
		submissionRow(s)...,
	)
	return err
}

func submissionRow(s model.Submission) []interface{} {
	objective := s.ObjectiveAnswers
	if objective == nil {
		objective = map[uuid.UUID]string{}
	}
	theory := s.TheoryAnswers
	if theory == nil {
		theory = map[uuid.UUID]string{}
	}
	return []interface{}{
		s.ID, s.ExamID, s.StudentID, s.QuestionOrder, objective, theory,
		s.Correct, s.ObjectiveTotal, s.ObjectiveScore, s.TimeExpired,
		s.StartedAt, s.ObjectivesSubmittedAt, s.FinishedAt,
	}
}
