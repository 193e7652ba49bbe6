package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-portal/internal/model"
)

const examColumns = `id, subject, class, status, duration_minutes, COALESCE(author_id, 0), created_at, updated_at`

// ExamRepository handles exam bank data access. Questions live in their own
// tables and are loaded alongside the exam.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Subject, &e.Class, &e.Status, &e.DurationMinutes, &e.AuthorID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam with its objective and theory questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, err
	}
	if err := r.loadQuestions(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListPaginated retrieves exams (without questions) with optional class and
// status filters. Empty filters mean "any".
func (r *ExamRepository) ListPaginated(ctx context.Context, class model.ClassLevel, status model.ExamStatus, limit, offset int) ([]model.ExamSummary, int, error) {
	where := ""
	var args []interface{}
	if class != "" {
		args = append(args, class)
		where += ` AND e.class = $` + strconv.Itoa(len(args))
	}
	if status != "" {
		args = append(args, status)
		where += ` AND e.status = $` + strconv.Itoa(len(args))
	}

	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams e WHERE TRUE`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data with question counts
	query := `SELECT e.id, e.subject, e.class, e.status, e.duration_minutes,
	                 (SELECT COUNT(*) FROM objective_questions o WHERE o.exam_id = e.id),
	                 (SELECT COUNT(*) FROM theory_questions t WHERE t.exam_id = e.id)
	          FROM exams e WHERE TRUE` + where +
		` ORDER BY e.created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.ExamSummary
	for rows.Next() {
		var s model.ExamSummary
		if err := rows.Scan(&s.ID, &s.Subject, &s.Class, &s.Status, &s.DurationMinutes, &s.ObjectiveCount, &s.TheoryCount); err != nil {
			return nil, 0, err
		}
		exams = append(exams, s)
	}
	return exams, total, rows.Err()
}

// ListByClass returns every exam of a class with its questions.
func (r *ExamRepository) ListByClass(ctx context.Context, class model.ClassLevel) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE class = $1 ORDER BY created_at DESC`, class)
	if err != nil {
		return nil, err
	}
	exams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Exam, error) {
		var e model.Exam
		err := scanExam(row, &e)
		return e, err
	})
	if err != nil {
		return nil, err
	}

	for i := range exams {
		if err := r.loadQuestions(ctx, &exams[i]); err != nil {
			return nil, err
		}
	}
	return exams, nil
}

// Create inserts an exam and its questions in one transaction. IDs of the
// exam and every question are filled in on success.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO exams (subject, class, status, duration_minutes, author_id)
			 VALUES ($1, $2, $3, $4, NULLIF($5, 0))
			 RETURNING id, created_at, updated_at`,
			e.Subject, e.Class, e.Status, e.DurationMinutes, e.AuthorID,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}

		for i := range e.ObjectiveQuestions {
			if e.ObjectiveQuestions[i].ID == uuid.Nil {
				e.ObjectiveQuestions[i].ID = uuid.New()
			}
		}
		for i := range e.TheoryQuestions {
			if e.TheoryQuestions[i].ID == uuid.Nil {
				e.TheoryQuestions[i].ID = uuid.New()
			}
		}

		if len(e.ObjectiveQuestions) > 0 {
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"objective_questions"},
				[]string{"id", "exam_id", "prompt", "options", "correct", "order_num"},
				pgx.CopyFromSlice(len(e.ObjectiveQuestions), func(i int) ([]interface{}, error) {
					q := e.ObjectiveQuestions[i]
					return []interface{}{q.ID, e.ID, q.Prompt, q.Options, q.Correct, i + 1}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("insert objective questions: %w", err)
			}
		}

		if len(e.TheoryQuestions) > 0 {
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"theory_questions"},
				[]string{"id", "exam_id", "prompt", "order_num"},
				pgx.CopyFromSlice(len(e.TheoryQuestions), func(i int) ([]interface{}, error) {
					q := e.TheoryQuestions[i]
					return []interface{}{q.ID, e.ID, q.Prompt, i + 1}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("insert theory questions: %w", err)
			}
		}
		return nil
	})
}

// UpdateStatusFrom moves an exam to status only when it is currently in from.
// It reports whether a row changed.
func (r *ExamRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to model.ExamStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ExamRepository) loadQuestions(ctx context.Context, e *model.Exam) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, prompt, options, correct FROM objective_questions
		 WHERE exam_id = $1 ORDER BY order_num`, e.ID)
	if err != nil {
		return err
	}
	e.ObjectiveQuestions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ObjectiveQuestion, error) {
		var q model.ObjectiveQuestion
		err := row.Scan(&q.ID, &q.Prompt, &q.Options, &q.Correct)
		return q, err
	})
	if err != nil {
		return fmt.Errorf("load objective questions: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT id, prompt FROM theory_questions
		 WHERE exam_id = $1 ORDER BY order_num`, e.ID)
	if err != nil {
		return err
	}
	e.TheoryQuestions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TheoryQuestion, error) {
		var q model.TheoryQuestion
		err := row.Scan(&q.ID, &q.Prompt)
		return q, err
	})
	if err != nil {
		return fmt.Errorf("load theory questions: %w", err)
	}
	return nil
}

// ListSummaries returns every exam in status, without questions, newest first.
func (r *ExamRepository) ListSummaries(ctx context.Context, status model.ExamStatus) ([]model.ExamSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.subject, e.class, e.status, e.duration_minutes,
		        (SELECT COUNT(*) FROM objective_questions o WHERE o.exam_id = e.id),
		        (SELECT COUNT(*) FROM theory_questions t WHERE t.exam_id = e.id)
		 FROM exams e WHERE e.status = $1
		 ORDER BY e.created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ExamSummary, error) {
		var s model.ExamSummary
		err := row.Scan(&s.ID, &s.Subject, &s.Class, &s.Status, &s.DurationMinutes, &s.ObjectiveCount, &s.TheoryCount)
		return s, err
	})
}
