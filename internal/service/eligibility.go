package service

import (
	"fmt"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

// EvaluateEligibility runs every admission check against the snapshot and reports all failures in priority order.
func EvaluateEligibility(snapshot models.EligibilitySnapshot) models.EligibilityDecision {
	offering := snapshot.Offering
	reasons := make([]models.DenialReason, 0, 4)

	if holdsSeatOrCredit(snapshot.ExistingStatuses) {
		reasons = append(reasons, models.DenialReason{
			Code:    models.ReasonAlreadyEnrolled,
			Message: "Already enrolled in this course",
		})
	}

	if offering.EnrolledCount >= offering.MaxCapacity {
		reasons = append(reasons, models.DenialReason{
			Code:    models.ReasonCourseFull,
			Message: "Course is full",
		})
	}

	if clash := scheduleClash(offering, snapshot.CurrentSchedule); clash != nil {
		reasons = append(reasons, models.DenialReason{
			Code:    models.ReasonTimeConflict,
			Message: fmt.Sprintf("Time conflict with %s", clash.CourseCode),
		})
	}

	if offering.PrerequisiteCourseID != nil && !passedCourse(*offering.PrerequisiteCourseID, snapshot.Completed) {
		code := *offering.PrerequisiteCourseID
		if offering.PrerequisiteCode != nil {
			code = *offering.PrerequisiteCode
		}
		reasons = append(reasons, models.DenialReason{
			Code:    models.ReasonPrerequisiteNotMet,
			Message: fmt.Sprintf("Prerequisite not met: %s required", code),
		})
	}

	return models.EligibilityDecision{Eligible: len(reasons) == 0, Reasons: reasons}
}

// holdsSeatOrCredit is true when an existing row still counts. Dropped and withdrawn rows do not.
func holdsSeatOrCredit(statuses []models.EnrollmentStatus) bool {
	for _, status := range statuses {
		if status == models.EnrollmentStatusEnrolled || status == models.EnrollmentStatusCompleted {
			return true
		}
	}
	return false
}

// scheduleClash returns the first current enrollment meeting in exactly the same slot.
// An offering missing either its days or its time has no slot and never clashes.
func scheduleClash(offering models.OfferingDetail, schedule []models.ScheduledEnrollment) *models.ScheduledEnrollment {
	if offering.ScheduleDays == "" || offering.ScheduleTime == "" {
		return nil
	}
	for i := range schedule {
		entry := schedule[i]
		if entry.OfferingID == offering.ID {
			continue
		}
		if entry.ScheduleDays == offering.ScheduleDays && entry.ScheduleTime == offering.ScheduleTime {
			return &entry
		}
	}
	return nil
}

func passedCourse(courseID string, completed []models.CompletedCourse) bool {
	for _, course := range completed {
		if course.CourseID == courseID && course.Grade != nil && course.Grade.Passing() {
			return true
		}
	}
	return false
}

// denialError converts the highest-priority reason into the error returned by Enroll.
func denialError(decision models.EligibilityDecision) error {
	if decision.Eligible || len(decision.Reasons) == 0 {
		return nil
	}
	reason := decision.Reasons[0]
	switch reason.Code {
	case models.ReasonAlreadyEnrolled:
		return appErrors.Clone(appErrors.ErrAlreadyEnrolled, reason.Message)
	case models.ReasonCourseFull:
		return appErrors.Clone(appErrors.ErrCourseFull, reason.Message)
	case models.ReasonTimeConflict:
		return appErrors.Clone(appErrors.ErrTimeConflict, reason.Message)
	case models.ReasonPrerequisiteNotMet:
		return appErrors.Clone(appErrors.ErrPrerequisiteNotMet, reason.Message)
	default:
		return appErrors.Clone(appErrors.ErrConflict, reason.Message)
	}
}
