package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-portal/internal/model"
)

const resultColumns = `id, student_id, subject, class, term, ca, exam, total, remark, created_at, updated_at`

// ResultRepository handles score record data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Upsert inserts a score record or overwrites the one with the same
// (student, subject, class, term).
func (r *ResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO results (student_id, subject, class, term, ca, exam, total, remark)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (student_id, subject, class, term) DO UPDATE
		 SET ca = EXCLUDED.ca, exam = EXCLUDED.exam, total = EXCLUDED.total,
		     remark = EXCLUDED.remark, updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		res.StudentID, res.Subject, res.Class, res.Term, res.CA, res.Exam, res.Total, res.Remark,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
}

// ListPaginated retrieves score records matching the filter.
func (r *ResultRepository) ListPaginated(ctx context.Context, f model.ResultFilter, limit, offset int) ([]model.Result, int, error) {
	where := ` WHERE TRUE`
	var args []interface{}
	if f.StudentID > 0 {
		args = append(args, f.StudentID)
		where += ` AND student_id = $` + strconv.Itoa(len(args))
	}
	if f.Class != "" {
		args = append(args, f.Class)
		where += ` AND class = $` + strconv.Itoa(len(args))
	}
	if f.Term != "" {
		args = append(args, f.Term)
		where += ` AND term = $` + strconv.Itoa(len(args))
	}
	if f.Subject != "" {
		args = append(args, f.Subject)
		where += ` AND subject = $` + strconv.Itoa(len(args))
	}

	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM results`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data
	query := `SELECT ` + resultColumns + ` FROM results` + where +
		` ORDER BY class, subject, student_id LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ID, &res.StudentID, &res.Subject, &res.Class, &res.Term,
			&res.CA, &res.Exam, &res.Total, &res.Remark, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
