package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type attendanceStore interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

type enrollmentResolver interface {
	Resolve(ctx context.Context, key models.EnrollmentKey, teacherID string) (string, error)
}

type attendanceNotifier interface {
	NotifyStudent(ctx context.Context, studentID, senderUserID, message string, kind models.NotificationType) error
	DisplayName(ctx context.Context, userID string) (string, error)
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context, studentID string)
}

// MarkAttendanceRequest is a teacher's mark for one student on one date.
type MarkAttendanceRequest struct {
	ActingUserID string          `json:"-" validate:"required"`
	ActingRole   models.UserRole `json:"-"`
	TeacherID    string          `json:"teacher_id"`
	StudentID    string          `json:"student_id" validate:"required"`
	CourseName   string          `json:"course_name" validate:"required"`
	Program      string          `json:"program"`
	Section      string          `json:"section"`
	Date         string          `json:"date" validate:"required"`
	Status       string          `json:"status" validate:"required,attendance_status"`
	Reason       string          `json:"reason" validate:"max=500"`
}

// AttendanceService records teacher marks.
type AttendanceService struct {
	resolver  enrollmentResolver
	store     attendanceStore
	notifier  attendanceNotifier
	summaries summaryInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(resolver enrollmentResolver, store attendanceStore, notifier attendanceNotifier, summaries summaryInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	registerAttendanceValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{resolver: resolver, store: store, notifier: notifier, summaries: summaries, metrics: metrics, validator: validate, logger: logger}
}

func (r *MarkAttendanceRequest) normalize() {
	r.TeacherID = strings.TrimSpace(r.TeacherID)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.CourseName = strings.TrimSpace(r.CourseName)
	r.Program = strings.TrimSpace(r.Program)
	r.Section = strings.TrimSpace(r.Section)
	r.Date = strings.TrimSpace(r.Date)
}

func registerAttendanceValidations(v *validator.Validate) {
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseAttendanceStatus(fl.Field().String())
		return err == nil
	})
}

// Mark upserts the record for (enrollment, date) and then notifies the
// student. The notification is best effort and never fails the mark.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	status, _ := models.ParseAttendanceStatus(req.Status)
	reason := strings.TrimSpace(req.Reason)
	if status == models.AttendanceStatusExcused && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required when marking excused")
	}

	key := models.EnrollmentKey{StudentID: req.StudentID, CourseName: req.CourseName, Program: req.Program, Section: req.Section}
	enrollmentID, err := s.resolver.Resolve(ctx, key, req.TeacherID)
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		EnrollmentID:   enrollmentID,
		Date:           date,
		Status:         status,
		ApprovalStatus: models.ApprovalForMark(status),
	}
	if reason != "" {
		record.Reason = &reason
	}
	stored, err := s.store.Upsert(ctx, record)
	if err != nil {
		return nil, storageFailure(err, "failed to record attendance")
	}

	s.metrics.RecordAttendanceMark(status)
	s.summaries.Invalidate(ctx, req.StudentID)
	s.logger.Info("attendance marked",
		zap.String("enrollment_id", enrollmentID),
		zap.String("date", req.Date),
		zap.String("status", string(status)),
		zap.String("acting_user_id", req.ActingUserID))

	s.notifyMarked(ctx, req, status)
	return stored, nil
}

func (s *AttendanceService) notifyMarked(ctx context.Context, req MarkAttendanceRequest, status models.AttendanceStatus) {
	name, err := s.notifier.DisplayName(ctx, req.ActingUserID)
	if err != nil {
		s.logger.Warn("attendance notification skipped", zap.String("student_id", req.StudentID), zap.Error(err))
		return
	}
	message := fmt.Sprintf("%s marked you as %s", name, status.Label())
	if err := s.notifier.NotifyStudent(ctx, req.StudentID, req.ActingUserID, message, models.NotificationTypeAttendance); err != nil {
		s.logger.Warn("attendance notification failed", zap.String("student_id", req.StudentID), zap.Error(err))
	}
}
