package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

type semesterRepository interface {
	Current(ctx context.Context) (*models.Semester, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	SetCurrent(ctx context.Context, id string) error
}

// SemesterService exposes the current-semester accessor.
type SemesterService struct {
	repo   semesterRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo semesterRepository, cache *CacheService, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, cache: cache, logger: logger}
}

// Current returns the semester flagged as current, served from cache when possible.
func (s *SemesterService) Current(ctx context.Context) (*models.Semester, error) {
	var cached models.Semester
	if s.cache.Get(ctx, cacheKeyCurrentSemester, &cached) {
		return &cached, nil
	}

	semester, err := s.repo.Current(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSemesterNotFound, "no current semester")
		}
		return nil, storageError(err, "failed to load current semester")
	}

	s.cache.Set(ctx, cacheKeyCurrentSemester, semester, 0)
	return semester, nil
}

// SetCurrent flags the semester as current and clears the flag on every other semester.
func (s *SemesterService) SetCurrent(ctx context.Context, id string) (*models.Semester, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}

	if err := s.repo.SetCurrent(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSemesterNotFound, "")
		}
		return nil, storageError(err, "failed to set current semester")
	}
	detached := context.WithoutCancel(ctx)
	s.cache.Invalidate(detached, cacheKeyCurrentSemester)
	s.cache.InvalidateMatching(detached, studentEnrollmentsPattern)

	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "failed to load semester")
	}

	s.logger.Info("current semester changed", zap.String("semester_id", id))
	return semester, nil
}
