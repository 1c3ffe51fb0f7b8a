package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/events"
	"github.com/noah-isme/course-registration-api/pkg/middleware/requestid"
)

type registrationGateway interface {
	Begin(ctx context.Context) (repository.RegistrationTx, error)
	Snapshot(ctx context.Context, studentID, offeringID string) (*models.EligibilitySnapshot, error)
}

type enrollmentLister interface {
	ListByStudent(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type eventEmitter interface {
	Emit(evt events.Event)
}

// Operation labels used in logs and metrics.
const (
	opEnroll           = "enroll"
	opDrop             = "drop"
	opWithdraw         = "withdraw"
	opComplete         = "complete"
	opCheckEligibility = "check_eligibility"
)

// EnrollRequest is the payload for enrolling or checking eligibility.
type EnrollRequest struct {
	OfferingID string `json:"offering_id" validate:"required"`
}

// CompleteRequest records the final grade of an enrollment.
type CompleteRequest struct {
	Grade models.Grade `json:"grade" validate:"required,oneof=A B C D F"`
}

// RegistrationServiceConfig tunes the transaction coordinator.
type RegistrationServiceConfig struct {
	TxTimeout time.Duration
}

// RegistrationService coordinates enrollment transactions: lock, re-read, evaluate, write, commit.
type RegistrationService struct {
	gateway     registrationGateway
	enrollments enrollmentLister
	cache       *CacheService
	events      eventEmitter
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         RegistrationServiceConfig
}

// NewRegistrationService constructs the coordinator.
func NewRegistrationService(
	gateway registrationGateway,
	enrollments enrollmentLister,
	cache *CacheService,
	emitter eventEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RegistrationServiceConfig,
) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		gateway:     gateway,
		enrollments: enrollments,
		cache:       cache,
		events:      emitter,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Enroll admits the student to the offering or returns the highest-priority denial.
func (s *RegistrationService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.Enrollment, error) {
	start := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student identity required")
	}

	enrollment, err := s.enroll(ctx, studentID, req.OfferingID)
	s.observe(ctx, opEnroll, err, start, zap.String("student_id", studentID), zap.String("offering_id", req.OfferingID))
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, events.EnrollmentEnrolled, enrollment)
	return enrollment, nil
}

func (s *RegistrationService) enroll(ctx context.Context, studentID, offeringID string) (*models.Enrollment, error) {
	ctx, cancel := s.txContext(ctx)
	defer cancel()

	tx, err := s.gateway.Begin(ctx)
	if err != nil {
		return nil, storageError(err, "failed to start enrollment")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	offering, err := tx.LockOffering(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrOfferingNotFound, "")
		}
		return nil, storageError(err, "failed to lock course offering")
	}

	if err := tx.LockStudent(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, storageError(err, "failed to lock student")
	}

	snapshot, err := tx.LoadSnapshot(ctx, studentID, *offering)
	if err != nil {
		return nil, storageError(err, "failed to load enrollment state")
	}

	if denial := denialError(EvaluateEligibility(*snapshot)); denial != nil {
		return nil, denial
	}

	enrollment := &models.Enrollment{
		StudentID:  studentID,
		OfferingID: offeringID,
		Status:     models.EnrollmentStatusEnrolled,
	}
	if err := tx.InsertEnrollment(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "Already enrolled in this course")
		}
		return nil, storageError(err, "failed to create enrollment")
	}

	incremented, err := tx.IncrementEnrolled(ctx, offeringID)
	if err != nil {
		return nil, storageError(err, "failed to reserve seat")
	}
	if !incremented {
		return nil, appErrors.Clone(appErrors.ErrCourseFull, "Course is full")
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError(err, "failed to commit enrollment")
	}
	committed = true
	return enrollment, nil
}

// Drop moves the student's own ENROLLED enrollment to DROPPED and frees the seat.
func (s *RegistrationService) Drop(ctx context.Context, studentID, enrollmentID string) (*models.Enrollment, error) {
	return s.finish(ctx, opDrop, enrollmentID, studentID, models.EnrollmentStatusDropped, nil)
}

// Withdraw moves the student's own ENROLLED enrollment to WITHDRAWN and frees the seat.
func (s *RegistrationService) Withdraw(ctx context.Context, studentID, enrollmentID string) (*models.Enrollment, error) {
	return s.finish(ctx, opWithdraw, enrollmentID, studentID, models.EnrollmentStatusWithdrawn, nil)
}

// Complete records a final grade and moves the enrollment to COMPLETED.
func (s *RegistrationService) Complete(ctx context.Context, enrollmentID string, req CompleteRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade")
	}
	grade := req.Grade
	return s.finish(ctx, opComplete, enrollmentID, "", models.EnrollmentStatusCompleted, &grade)
}

func (s *RegistrationService) finish(ctx context.Context, op, enrollmentID, ownerID string, next models.EnrollmentStatus, grade *models.Grade) (*models.Enrollment, error) {
	start := time.Now()
	if enrollmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}

	enrollment, err := s.transition(ctx, enrollmentID, ownerID, next, grade)
	s.observe(ctx, op, err, start, zap.String("enrollment_id", enrollmentID), zap.String("student_id", ownerID))
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, eventForStatus(next), enrollment)
	return enrollment, nil
}

func (s *RegistrationService) transition(ctx context.Context, enrollmentID, ownerID string, next models.EnrollmentStatus, grade *models.Grade) (*models.Enrollment, error) {
	ctx, cancel := s.txContext(ctx)
	defer cancel()

	tx, err := s.gateway.Begin(ctx)
	if err != nil {
		return nil, storageError(err, "failed to start enrollment update")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	notFound := appErrors.Clone(appErrors.ErrEnrollmentNotFound, "Enrollment not found")

	offeringID, err := tx.EnrollmentOffering(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, storageError(err, "failed to load enrollment")
	}

	if _, err := tx.LockOffering(ctx, offeringID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrOfferingNotFound, "")
		}
		return nil, storageError(err, "failed to lock course offering")
	}

	enrollment, err := tx.LockEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, storageError(err, "failed to lock enrollment")
	}
	if ownerID != "" && enrollment.StudentID != ownerID {
		return nil, notFound
	}

	if err := transitionEnrollment(enrollment.Status, next); err != nil {
		return nil, err
	}

	if err := tx.UpdateEnrollmentStatus(ctx, enrollmentID, next, grade); err != nil {
		return nil, storageError(err, "failed to update enrollment")
	}

	decremented, err := tx.DecrementEnrolled(ctx, offeringID)
	if err != nil {
		return nil, storageError(err, "failed to release seat")
	}
	if !decremented {
		s.logger.Error("enrolled count already zero while releasing seat",
			zap.String("offering_id", offeringID),
			zap.String("enrollment_id", enrollmentID))
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError(err, "failed to commit enrollment update")
	}
	committed = true

	enrollment.Status = next
	if grade != nil {
		enrollment.Grade = grade
	}
	enrollment.UpdatedAt = time.Now().UTC()
	return enrollment, nil
}

// CheckEligibility previews an enrollment without locking or writing.
func (s *RegistrationService) CheckEligibility(ctx context.Context, studentID string, req EnrollRequest) (*models.EligibilityDecision, error) {
	start := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid eligibility payload")
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student identity required")
	}

	snapshot, err := s.gateway.Snapshot(ctx, studentID, req.OfferingID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			err = appErrors.Clone(appErrors.ErrOfferingNotFound, "")
		case errors.Is(err, repository.ErrUnknownStudent):
			err = appErrors.Clone(appErrors.ErrStudentNotFound, "")
		default:
			err = storageError(err, "failed to load eligibility state")
		}
		s.observe(ctx, opCheckEligibility, err, start, zap.String("student_id", studentID), zap.String("offering_id", req.OfferingID))
		return nil, err
	}

	decision := EvaluateEligibility(*snapshot)
	s.observe(ctx, opCheckEligibility, nil, start, zap.String("student_id", studentID), zap.String("offering_id", req.OfferingID))
	return &decision, nil
}

type cachedEnrollmentPage struct {
	Items []models.EnrollmentDetail `json:"items"`
	Total int                       `json:"total"`
}

// ListStudentEnrollments returns the student's enrollment history.
func (s *RegistrationService) ListStudentEnrollments(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, models.EnrollmentStatusWithdrawn, models.EnrollmentStatusCompleted:
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
		}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}

	cacheable := filter.Status == "" && !filter.CurrentOnly && page == 1 && size == 50
	if cacheable {
		var cached cachedEnrollmentPage
		if s.cache.Get(ctx, studentEnrollmentsKey(studentID), &cached) {
			return cached.Items, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
		}
	}

	items, total, err := s.enrollments.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, nil, storageError(err, "failed to list enrollments")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	if cacheable {
		s.cache.Set(ctx, studentEnrollmentsKey(studentID), cachedEnrollmentPage{Items: items, Total: total}, studentEnrollmentsTTL)
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *RegistrationService) afterCommit(ctx context.Context, eventType events.Type, enrollment *models.Enrollment) {
	s.cache.Invalidate(context.WithoutCancel(ctx), studentEnrollmentsKey(enrollment.StudentID))
	if s.events == nil {
		return
	}
	evt := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		OfferingID:   enrollment.OfferingID,
		Status:       string(enrollment.Status),
		OccurredAt:   time.Now().UTC(),
	}
	if enrollment.Grade != nil {
		evt.Grade = string(*enrollment.Grade)
	}
	s.events.Emit(evt)
}

func (s *RegistrationService) observe(ctx context.Context, op string, err error, start time.Time, fields ...zap.Field) {
	elapsed := time.Since(start)
	if reqID := requestid.FromContext(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	if err == nil {
		s.metrics.RecordRegistration(op, "OK", elapsed)
		s.logger.Debug("registration operation succeeded", append(fields, zap.String("operation", op), zap.Duration("elapsed", elapsed))...)
		return
	}

	appErr := appErrors.FromError(err)
	s.metrics.RecordRegistration(op, appErr.Code, elapsed)
	fields = append(fields, zap.String("operation", op), zap.String("code", appErr.Code), zap.Duration("elapsed", elapsed))
	if appErr.Status >= 500 {
		s.logger.Error("registration operation failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("registration operation denied", append(fields, zap.String("reason", appErr.Message))...)
}

func (s *RegistrationService) txContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.TxTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.TxTimeout)
	}
	return context.WithCancel(ctx)
}

func eventForStatus(status models.EnrollmentStatus) events.Type {
	switch status {
	case models.EnrollmentStatusDropped:
		return events.EnrollmentDropped
	case models.EnrollmentStatusWithdrawn:
		return events.EnrollmentWithdrawn
	case models.EnrollmentStatusCompleted:
		return events.EnrollmentCompleted
	default:
		return events.EnrollmentEnrolled
	}
}

func storageError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, message)
}
