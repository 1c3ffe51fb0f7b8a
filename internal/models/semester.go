package models

import "time"

// Semester models an academic semester. At most one is current.
type Semester struct {
	ID                string     `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	AcademicYear      string     `db:"academic_year" json:"academic_year"`
	StartDate         time.Time  `db:"start_date" json:"start_date"`
	EndDate           time.Time  `db:"end_date" json:"end_date"`
	RegistrationStart *time.Time `db:"registration_start" json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `db:"registration_end" json:"registration_end,omitempty"`
	IsCurrent         bool       `db:"is_current" json:"is_current"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
