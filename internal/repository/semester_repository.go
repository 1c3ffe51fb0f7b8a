package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const semesterColumns = `id, name, academic_year, start_date, end_date, registration_start, registration_end, is_current, created_at, updated_at`

// SemesterRepository manages semester persistence and the current-semester flag.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs the repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// Current returns the semester flagged as current.
func (r *SemesterRepository) Current(ctx context.Context) (*models.Semester, error) {
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, `SELECT `+semesterColumns+` FROM semesters WHERE is_current = TRUE`); err != nil {
		return nil, err
	}
	return &semester, nil
}

// FindByID returns a semester by id.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, `SELECT `+semesterColumns+` FROM semesters WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// SetCurrent marks the semester as current and clears every other flag in the same transaction.
func (r *SemesterRepository) SetCurrent(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Row locks on every semester serialize concurrent flag changes.
	var ids []string
	if err = tx.SelectContext(ctx, &ids, `SELECT id FROM semesters ORDER BY id FOR UPDATE`); err != nil {
		return fmt.Errorf("lock semesters: %w", err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE semesters SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("clear current semester: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE semesters SET is_current = TRUE, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("set current semester: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set current semester rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}
