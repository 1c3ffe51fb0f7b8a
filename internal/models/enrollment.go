package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Grade is a final letter grade.
type Grade string

// Letter grades. A through D count as passing.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Passing reports whether the grade satisfies a prerequisite.
func (g Grade) Passing() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD:
		return true
	}
	return false
}

// Enrollment captures a student's registration to a course offering.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	OfferingID string           `db:"offering_id" json:"offering_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	Grade      *Grade           `db:"grade" json:"grade,omitempty"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with course and semester info for history views.
type EnrollmentDetail struct {
	Enrollment
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseName    string  `db:"course_name" json:"course_name"`
	Credits       int     `db:"credits" json:"credits"`
	SectionNumber string  `db:"section_number" json:"section_number"`
	ScheduleDays  string  `db:"schedule_days" json:"schedule_days"`
	ScheduleTime  string  `db:"schedule_time" json:"schedule_time"`
	Classroom     *string `db:"classroom" json:"classroom,omitempty"`
	SemesterName  string  `db:"semester_name" json:"semester_name"`
	AcademicYear  string  `db:"academic_year" json:"academic_year"`
	IsCurrent     bool    `db:"is_current" json:"is_current"`
}

// EnrollmentFilter provides filters for listing a student's enrollments.
type EnrollmentFilter struct {
	Status      EnrollmentStatus
	CurrentOnly bool
	Page        int
	PageSize    int
}
