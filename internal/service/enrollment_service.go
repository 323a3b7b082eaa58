package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type enrollmentDirectory interface {
	FindActive(ctx context.Context, key models.EnrollmentKey, teacherID string) ([]string, error)
}

// EnrollmentService resolves loosely keyed class membership to enrollment ids.
type EnrollmentService struct {
	repo   enrollmentDirectory
	logger *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentDirectory, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, logger: logger}
}

// Resolve returns the single active enrollment matching the key. An empty
// teacherID leaves the teacher unconstrained.
func (s *EnrollmentService) Resolve(ctx context.Context, key models.EnrollmentKey, teacherID string) (string, error) {
	key = normalizeKey(key)
	if key.StudentID == "" || key.CourseName == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "student and course are required")
	}
	ids, err := s.repo.FindActive(ctx, key, strings.TrimSpace(teacherID))
	if err != nil {
		return "", storageFailure(err, "failed to resolve enrollment")
	}
	switch len(ids) {
	case 0:
		return "", appErrors.Clone(appErrors.ErrNotEnrolled, "student "+key.StudentID+" is not enrolled in "+key.CourseName)
	case 1:
		return ids[0], nil
	default:
		s.logger.Warn("ambiguous enrollment",
			zap.String("student_id", key.StudentID),
			zap.String("course", key.CourseName),
			zap.Strings("enrollment_ids", ids))
		return "", appErrors.Clone(appErrors.ErrAmbiguousEnrollment, "specify program and section for "+key.CourseName)
	}
}

// FindAll returns every active enrollment the student holds for the course,
// including cross-listed sections. A non-empty teacherID keeps only that
// teacher's classes. An empty result is not an error.
func (s *EnrollmentService) FindAll(ctx context.Context, studentID, courseName, teacherID string) ([]string, error) {
	key := normalizeKey(models.EnrollmentKey{StudentID: studentID, CourseName: courseName})
	ids, err := s.repo.FindActive(ctx, key, strings.TrimSpace(teacherID))
	if err != nil {
		return nil, storageFailure(err, "failed to list enrollments")
	}
	return ids, nil
}

func normalizeKey(key models.EnrollmentKey) models.EnrollmentKey {
	return models.EnrollmentKey{
		StudentID:  strings.TrimSpace(key.StudentID),
		CourseName: strings.TrimSpace(key.CourseName),
		Program:    strings.TrimSpace(key.Program),
		Section:    strings.TrimSpace(key.Section),
	}
}
