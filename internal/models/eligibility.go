package models

// ReasonCode identifies why a student may not enroll.
type ReasonCode string

// Denial reasons in the order they are evaluated.
const (
	ReasonAlreadyEnrolled    ReasonCode = "ALREADY_ENROLLED"
	ReasonCourseFull         ReasonCode = "COURSE_FULL"
	ReasonTimeConflict       ReasonCode = "TIME_CONFLICT"
	ReasonPrerequisiteNotMet ReasonCode = "PREREQUISITE_NOT_MET"
)

// ScheduledEnrollment is an ENROLLED row of the current semester with its meeting slot.
type ScheduledEnrollment struct {
	EnrollmentID string `db:"enrollment_id" json:"enrollment_id"`
	OfferingID   string `db:"offering_id" json:"offering_id"`
	CourseCode   string `db:"course_code" json:"course_code"`
	ScheduleDays string `db:"schedule_days" json:"schedule_days"`
	ScheduleTime string `db:"schedule_time" json:"schedule_time"`
}

// CompletedCourse is one COMPLETED enrollment in the student's history.
type CompletedCourse struct {
	CourseID   string `db:"course_id" json:"course_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	Grade      *Grade `db:"grade" json:"grade,omitempty"`
}

// EligibilitySnapshot is everything the evaluator looks at for one (student, offering) pair.
type EligibilitySnapshot struct {
	Offering         OfferingDetail
	ExistingStatuses []EnrollmentStatus
	CurrentSchedule  []ScheduledEnrollment
	Completed        []CompletedCourse
}

// DenialReason explains one failed check.
type DenialReason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

// EligibilityDecision is the evaluator output. Reasons are ordered by priority.
type EligibilityDecision struct {
	Eligible bool           `json:"eligible"`
	Reasons  []DenialReason `json:"reasons"`
}
