package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/response"
)

type registrationService interface {
	Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, studentID, enrollmentID string) (*models.Enrollment, error)
	Withdraw(ctx context.Context, studentID, enrollmentID string) (*models.Enrollment, error)
	Complete(ctx context.Context, enrollmentID string, req service.CompleteRequest) (*models.Enrollment, error)
	CheckEligibility(ctx context.Context, studentID string, req service.EnrollRequest) (*models.EligibilityDecision, error)
	ListStudentEnrollments(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	registration registrationService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(registration registrationService) *EnrollmentHandler {
	return &EnrollmentHandler{registration: registration}
}

// Enroll godoc
// @Summary Enroll in a course offering
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.registration.Enroll(c.Request.Context(), studentIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// CheckEligibility godoc
// @Summary Preview enrollment eligibility
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Offering to check"
// @Success 200 {object} response.Envelope
// @Router /enrollments/eligibility [post]
func (h *EnrollmentHandler) CheckEligibility(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	decision, err := h.registration.CheckEligibility(c.Request.Context(), studentIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// Drop godoc
// @Summary Drop an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	enrollment, err := h.registration.Drop(c.Request.Context(), studentIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Withdraw godoc
// @Summary Withdraw from an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	enrollment, err := h.registration.Withdraw(c.Request.Context(), studentIDFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListMine godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Param status query string false "Filter by status"
// @Param current query bool false "Only the current semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	filter.CurrentOnly, _ = strconv.ParseBool(c.DefaultQuery("current", "false"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.registration.ListStudentEnrollments(c.Request.Context(), studentIDFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Complete godoc
// @Summary Record a final grade
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.CompleteRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	var req service.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.registration.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
