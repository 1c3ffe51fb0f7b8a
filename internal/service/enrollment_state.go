package service

import (
	"fmt"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

var enrollmentTransitions = map[models.EnrollmentStatus][]models.EnrollmentStatus{
	models.EnrollmentStatusEnrolled: {
		models.EnrollmentStatusDropped,
		models.EnrollmentStatusWithdrawn,
		models.EnrollmentStatusCompleted,
	},
}

// transitionEnrollment validates a status change. DROPPED, WITHDRAWN and COMPLETED are terminal.
func transitionEnrollment(from, to models.EnrollmentStatus) error {
	for _, allowed := range enrollmentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot move enrollment from %s to %s", from, to))
}
