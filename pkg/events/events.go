package events

import (
	"context"
	"time"
)

// Type names an enrollment lifecycle event. It doubles as the routing key.
type Type string

// Enrollment lifecycle events.
const (
	EnrollmentEnrolled  Type = "enrollment.enrolled"
	EnrollmentDropped   Type = "enrollment.dropped"
	EnrollmentWithdrawn Type = "enrollment.withdrawn"
	EnrollmentCompleted Type = "enrollment.completed"
)

// Event is the payload published after an enrollment transaction commits.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	OfferingID   string    `json:"offering_id"`
	Status       string    `json:"status"`
	Grade        string    `json:"grade,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
