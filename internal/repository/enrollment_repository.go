package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// EnrollmentRepository handles read access to enrollment history.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByStudent returns a student's enrollments with course and semester info, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN course_offerings o ON o.id = e.offering_id
JOIN courses c ON c.id = o.course_id
JOIN semesters s ON s.id = o.semester_id`
	conditions := []string{"e.student_id = $1"}
	args := []interface{}{studentID}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CurrentOnly {
		conditions = append(conditions, "s.is_current = TRUE")
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.offering_id, e.status, e.grade, e.enrolled_at, e.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits, o.section_number, o.schedule_days, o.schedule_time, o.classroom,
        s.name AS semester_name, s.academic_year, s.is_current
        %s ORDER BY s.start_date DESC, c.code ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list student enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return enrollments, total, nil
}
