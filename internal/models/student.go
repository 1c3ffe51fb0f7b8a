package models

import "time"

// StudentStatus marks whether a student is currently active.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Student represents a learner registered in the institution.
type Student struct {
	ID              string        `db:"id" json:"id"`
	StudentNumber   string        `db:"student_number" json:"student_number"`
	FirstName       string        `db:"first_name" json:"first_name"`
	LastName        string        `db:"last_name" json:"last_name"`
	Email           string        `db:"email" json:"email"`
	Phone           *string       `db:"phone" json:"phone,omitempty"`
	Address         *string       `db:"address" json:"address,omitempty"`
	Status          StudentStatus `db:"status" json:"status"`
	DepartmentID    *string       `db:"department_id" json:"department_id,omitempty"`
	GPA             float64       `db:"gpa" json:"gpa"`
	CurrentSemester int           `db:"current_semester" json:"current_semester"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentPatch lists the student fields an administrator may change. Nil fields are left untouched.
type StudentPatch struct {
	FirstName       *string        `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName        *string        `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone           *string        `json:"phone" validate:"omitempty,max=32"`
	Address         *string        `json:"address" validate:"omitempty,max=255"`
	Status          *StudentStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	GPA             *float64       `json:"gpa" validate:"omitempty,gte=0,lte=4"`
	CurrentSemester *int           `json:"current_semester" validate:"omitempty,gte=1,lte=16"`
}

// IsEmpty reports whether the patch changes nothing.
func (p StudentPatch) IsEmpty() bool {
	return p.FirstName == nil &&
		p.LastName == nil &&
		p.Phone == nil &&
		p.Address == nil &&
		p.Status == nil &&
		p.GPA == nil &&
		p.CurrentSemester == nil
}
