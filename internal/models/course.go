package models

// OfferingStatus describes whether a section accepts registrations.
type OfferingStatus string

const (
	OfferingStatusOpen      OfferingStatus = "OPEN"
	OfferingStatusClosed    OfferingStatus = "CLOSED"
	OfferingStatusCancelled OfferingStatus = "CANCELLED"
)

// CourseOffering is one section of a course in a semester.
type CourseOffering struct {
	ID            string         `db:"id" json:"id"`
	CourseID      string         `db:"course_id" json:"course_id"`
	SemesterID    string         `db:"semester_id" json:"semester_id"`
	InstructorID  *string        `db:"instructor_id" json:"instructor_id,omitempty"`
	SectionNumber string         `db:"section_number" json:"section_number"`
	MaxCapacity   int            `db:"max_capacity" json:"max_capacity"`
	EnrolledCount int            `db:"enrolled_count" json:"enrolled_count"`
	ScheduleDays  string         `db:"schedule_days" json:"schedule_days"`
	ScheduleTime  string         `db:"schedule_time" json:"schedule_time"`
	Classroom     *string        `db:"classroom" json:"classroom,omitempty"`
	Status        OfferingStatus `db:"status" json:"status"`
}

// OfferingDetail joins an offering with the course fields the eligibility checks need.
type OfferingDetail struct {
	CourseOffering
	CourseCode           string  `db:"course_code" json:"course_code"`
	CourseName           string  `db:"course_name" json:"course_name"`
	PrerequisiteCourseID *string `db:"prerequisite_course_id" json:"prerequisite_course_id,omitempty"`
	PrerequisiteCode     *string `db:"prerequisite_code" json:"prerequisite_code,omitempty"`
}
