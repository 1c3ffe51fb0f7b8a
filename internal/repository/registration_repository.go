package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// ErrDuplicateEnrollment signals that the single-active-enrollment index rejected an insert.
var ErrDuplicateEnrollment = errors.New("duplicate active enrollment")

// ErrUnknownStudent is returned by Snapshot when the offering exists but the student does not.
var ErrUnknownStudent = errors.New("student not found")

const uniqueViolation = "23505"

const offeringDetailColumns = `o.id, o.course_id, o.semester_id, o.instructor_id, o.section_number, o.max_capacity,
        o.enrolled_count, o.schedule_days, o.schedule_time, o.classroom, o.status,
        c.code AS course_code, c.name AS course_name, c.prerequisite_course_id, p.code AS prerequisite_code
        FROM course_offerings o
        JOIN courses c ON c.id = o.course_id
        LEFT JOIN courses p ON p.id = c.prerequisite_course_id
        WHERE o.id = $1`

// RegistrationTx is one read-committed transaction of the enrollment engine.
type RegistrationTx interface {
	LockOffering(ctx context.Context, offeringID string) (*models.OfferingDetail, error)
	LockStudent(ctx context.Context, studentID string) error
	LoadSnapshot(ctx context.Context, studentID string, offering models.OfferingDetail) (*models.EligibilitySnapshot, error)
	InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	IncrementEnrolled(ctx context.Context, offeringID string) (bool, error)
	DecrementEnrolled(ctx context.Context, offeringID string) (bool, error)
	EnrollmentOffering(ctx context.Context, enrollmentID string) (string, error)
	LockEnrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error)
	UpdateEnrollmentStatus(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, grade *models.Grade) error
	Commit() error
	Rollback() error
}

// RegistrationRepository is the storage gateway for enrollment transactions.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Begin opens a read-committed transaction.
func (r *RegistrationRepository) Begin(ctx context.Context) (RegistrationTx, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin registration tx: %w", err)
	}
	return &registrationTx{tx: tx}, nil
}

// Snapshot reads the eligibility inputs without taking locks.
func (r *RegistrationRepository) Snapshot(ctx context.Context, studentID, offeringID string) (*models.EligibilitySnapshot, error) {
	var offering models.OfferingDetail
	if err := sqlx.GetContext(ctx, r.db, &offering, "SELECT "+offeringDetailColumns, offeringID); err != nil {
		return nil, err
	}
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, studentID); err != nil {
		return nil, fmt.Errorf("check student: %w", err)
	}
	if !exists {
		return nil, ErrUnknownStudent
	}
	return loadSnapshot(ctx, r.db, studentID, offering)
}

type registrationTx struct {
	tx *sqlx.Tx
}

func (t *registrationTx) LockOffering(ctx context.Context, offeringID string) (*models.OfferingDetail, error) {
	var offering models.OfferingDetail
	query := "SELECT " + offeringDetailColumns + " FOR UPDATE OF o"
	if err := t.tx.GetContext(ctx, &offering, query, offeringID); err != nil {
		return nil, err
	}
	return &offering, nil
}

func (t *registrationTx) LockStudent(ctx context.Context, studentID string) error {
	var id string
	if err := t.tx.GetContext(ctx, &id, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, studentID); err != nil {
		return err
	}
	return nil
}

func (t *registrationTx) LoadSnapshot(ctx context.Context, studentID string, offering models.OfferingDetail) (*models.EligibilitySnapshot, error) {
	return loadSnapshot(ctx, t.tx, studentID, offering)
}

func (t *registrationTx) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, student_id, offering_id, status, grade, enrolled_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := t.tx.ExecContext(ctx, query, enrollment.ID, enrollment.StudentID, enrollment.OfferingID, enrollment.Status, enrollment.Grade, enrollment.EnrolledAt, enrollment.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (t *registrationTx) IncrementEnrolled(ctx context.Context, offeringID string) (bool, error) {
	const query = `UPDATE course_offerings SET enrolled_count = enrolled_count + 1 WHERE id = $1 AND enrolled_count < max_capacity`
	return t.adjust(ctx, query, offeringID)
}

func (t *registrationTx) DecrementEnrolled(ctx context.Context, offeringID string) (bool, error) {
	const query = `UPDATE course_offerings SET enrolled_count = enrolled_count - 1 WHERE id = $1 AND enrolled_count > 0`
	return t.adjust(ctx, query, offeringID)
}

func (t *registrationTx) adjust(ctx context.Context, query, offeringID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, query, offeringID)
	if err != nil {
		return false, fmt.Errorf("adjust enrolled count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adjust enrolled count rows: %w", err)
	}
	return affected == 1, nil
}

func (t *registrationTx) EnrollmentOffering(ctx context.Context, enrollmentID string) (string, error) {
	var offeringID string
	if err := t.tx.GetContext(ctx, &offeringID, `SELECT offering_id FROM enrollments WHERE id = $1`, enrollmentID); err != nil {
		return "", err
	}
	return offeringID, nil
}

func (t *registrationTx) LockEnrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, offering_id, status, grade, enrolled_at, updated_at FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, enrollmentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *registrationTx) UpdateEnrollmentStatus(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, grade *models.Grade) error {
	const query = `UPDATE enrollments SET status = $2, grade = COALESCE($3, grade), updated_at = $4 WHERE id = $1`
	res, err := t.tx.ExecContext(ctx, query, enrollmentID, status, grade, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (t *registrationTx) Commit() error {
	return t.tx.Commit()
}

func (t *registrationTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func loadSnapshot(ctx context.Context, exec sqlx.QueryerContext, studentID string, offering models.OfferingDetail) (*models.EligibilitySnapshot, error) {
	snapshot := &models.EligibilitySnapshot{Offering: offering}

	if err := sqlx.SelectContext(ctx, exec, &snapshot.ExistingStatuses,
		`SELECT status FROM enrollments WHERE student_id = $1 AND offering_id = $2`, studentID, offering.ID); err != nil {
		return nil, fmt.Errorf("load existing enrollments: %w", err)
	}

	const scheduleQuery = `SELECT e.id AS enrollment_id, o.id AS offering_id, c.code AS course_code, o.schedule_days, o.schedule_time
        FROM enrollments e
        JOIN course_offerings o ON o.id = e.offering_id
        JOIN courses c ON c.id = o.course_id
        JOIN semesters s ON s.id = o.semester_id
        WHERE e.student_id = $1 AND e.status = $2 AND s.is_current = TRUE
        ORDER BY e.enrolled_at`
	if err := sqlx.SelectContext(ctx, exec, &snapshot.CurrentSchedule, scheduleQuery, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("load current schedule: %w", err)
	}

	const completedQuery = `SELECT c.id AS course_id, c.code AS course_code, e.grade
        FROM enrollments e
        JOIN course_offerings o ON o.id = e.offering_id
        JOIN courses c ON c.id = o.course_id
        WHERE e.student_id = $1 AND e.status = $2`
	if err := sqlx.SelectContext(ctx, exec, &snapshot.Completed, completedQuery, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("load completed courses: %w", err)
	}

	return snapshot, nil
}
