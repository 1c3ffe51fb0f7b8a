package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const studentColumns = `id, student_number, first_name, last_name, email, phone, address, status, department_id, gpa, current_semester, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ApplyPatch writes the non-nil patch fields in one fixed statement and returns the updated row.
func (r *StudentRepository) ApplyPatch(ctx context.Context, id string, patch models.StudentPatch) (*models.Student, error) {
	const query = `UPDATE students SET
        first_name = COALESCE($2, first_name),
        last_name = COALESCE($3, last_name),
        phone = COALESCE($4, phone),
        address = COALESCE($5, address),
        status = COALESCE($6, status),
        gpa = COALESCE($7, gpa),
        current_semester = COALESCE($8, current_semester),
        updated_at = $9
        WHERE id = $1
        RETURNING ` + studentColumns

	var student models.Student
	err := r.db.GetContext(ctx, &student, query,
		id,
		patch.FirstName,
		patch.LastName,
		patch.Phone,
		patch.Address,
		patch.Status,
		patch.GPA,
		patch.CurrentSemester,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}
