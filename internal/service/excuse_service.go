package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type excuseStore interface {
	ApplyDecision(ctx context.Context, params repository.DecisionParams) (*models.AttendanceRecord, error)
	OpenExcuse(ctx context.Context, enrollmentID string, date time.Time, reason string) (*models.AttendanceRecord, error)
	ListPendingForTeacher(ctx context.Context, teacherID string) ([]models.PendingExcuse, error)
}

type excuseEnrollments interface {
	Resolve(ctx context.Context, key models.EnrollmentKey, teacherID string) (string, error)
	FindAll(ctx context.Context, studentID, courseName, teacherID string) ([]string, error)
}

type enrollmentDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type excuseNotifier interface {
	NotifyStudent(ctx context.Context, studentID, senderUserID, message string, kind models.NotificationType) error
	NotifyTeacher(ctx context.Context, teacherID, senderUserID, message string, kind models.NotificationType) error
	DisplayName(ctx context.Context, userID string) (string, error)
}

// SubmitExcuseRequest is a student's excuse for one class date. TeacherID is
// optional and narrows the class when the student has several teachers for
// the course.
type SubmitExcuseRequest struct {
	ActingUserID string `json:"-" validate:"required"`
	StudentID    string `json:"-" validate:"required"`
	TeacherID    string `json:"teacher_id"`
	CourseName   string `json:"course_name" validate:"required"`
	Program      string `json:"program"`
	Section      string `json:"section"`
	Date         string `json:"date" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=500"`
}

// ExcuseDecisionRequest carries a teacher's approve or reject verdict. Reason
// only applies to approvals; an empty reason keeps the submitted one. A
// TEACHER acting role limits the verdict to that teacher's own classes.
type ExcuseDecisionRequest struct {
	ActingUserID string          `json:"-" validate:"required"`
	ActingRole   models.UserRole `json:"-"`
	TeacherID    string          `json:"teacher_id" validate:"required"`
	StudentID    string          `json:"student_id" validate:"required"`
	CourseName   string          `json:"course_name" validate:"required"`
	Date         string          `json:"date" validate:"required"`
	Reason       string          `json:"reason" validate:"max=500"`
}

func (r *SubmitExcuseRequest) normalize() {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.TeacherID = strings.TrimSpace(r.TeacherID)
	r.CourseName = strings.TrimSpace(r.CourseName)
	r.Program = strings.TrimSpace(r.Program)
	r.Section = strings.TrimSpace(r.Section)
	r.Date = strings.TrimSpace(r.Date)
}

func (r *ExcuseDecisionRequest) normalize() {
	r.TeacherID = strings.TrimSpace(r.TeacherID)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.CourseName = strings.TrimSpace(r.CourseName)
	r.Date = strings.TrimSpace(r.Date)
}

// ExcuseService drives excuses from submission through approval or rejection.
type ExcuseService struct {
	enrollments excuseEnrollments
	details     enrollmentDetailReader
	store       excuseStore
	notifier    excuseNotifier
	summaries   summaryInvalidator
	clock       Clock
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewExcuseService constructs ExcuseService.
func NewExcuseService(enrollments excuseEnrollments, details enrollmentDetailReader, store excuseStore, notifier excuseNotifier, summaries summaryInvalidator, clock Clock, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExcuseService {
	if clock == nil {
		clock = SystemClock{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExcuseService{
		enrollments: enrollments,
		details:     details,
		store:       store,
		notifier:    notifier,
		summaries:   summaries,
		clock:       clock,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Submit opens an excuse for review. A date with no record yet is recorded
// as an absence first.
func (s *ExcuseService) Submit(ctx context.Context, req SubmitExcuseRequest) (*models.AttendanceRecord, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid excuse payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	key := models.EnrollmentKey{StudentID: req.StudentID, CourseName: req.CourseName, Program: req.Program, Section: req.Section}
	enrollmentID, err := s.enrollments.Resolve(ctx, key, req.TeacherID)
	if err != nil {
		return nil, err
	}

	record, err := s.store.OpenExcuse(ctx, enrollmentID, date, reason)
	if err != nil {
		return nil, storageFailure(err, "failed to submit excuse")
	}
	s.summaries.Invalidate(ctx, req.StudentID)
	s.logger.Info("excuse submitted", zap.String("enrollment_id", enrollmentID), zap.String("date", date.Format(models.DateLayout)))

	s.notifySubmitted(ctx, req, enrollmentID, date)
	return record, nil
}

// Approve marks the excuse on every matching enrollment as EXCUSED/APPROVED.
func (s *ExcuseService) Approve(ctx context.Context, req ExcuseDecisionRequest) (*models.ExcuseDecisionResult, error) {
	return s.decide(ctx, req, models.ExcuseDecisionApprove)
}

// Reject marks the excuse on every matching enrollment as ABSENT/REJECTED.
func (s *ExcuseService) Reject(ctx context.Context, req ExcuseDecisionRequest) (*models.ExcuseDecisionResult, error) {
	return s.decide(ctx, req, models.ExcuseDecisionReject)
}

// Pending lists the excuses awaiting the teacher's review.
func (s *ExcuseService) Pending(ctx context.Context, teacherID string) ([]models.PendingExcuse, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId is required")
	}
	items, err := s.store.ListPendingForTeacher(ctx, teacherID)
	if err != nil {
		return nil, storageFailure(err, "failed to list pending excuses")
	}
	if items == nil {
		items = []models.PendingExcuse{}
	}
	return items, nil
}

// decide applies the verdict enrollment by enrollment. A failed write is
// logged and recorded on the result; the remaining enrollments still run.
func (s *ExcuseService) decide(ctx context.Context, req ExcuseDecisionRequest, decision models.ExcuseDecision) (*models.ExcuseDecisionResult, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid excuse decision payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	var teacherFilter string
	if req.ActingRole == models.RoleTeacher {
		teacherFilter = req.TeacherID
	}
	enrollmentIDs, err := s.enrollments.FindAll(ctx, req.StudentID, req.CourseName, teacherFilter)
	if err != nil {
		return nil, err
	}

	status, approval := decision.Outcome()
	var reason *string
	if trimmed := strings.TrimSpace(req.Reason); decision == models.ExcuseDecisionApprove && trimmed != "" {
		reason = &trimmed
	}
	approvalDate := today(s.clock)

	result := &models.ExcuseDecisionResult{
		Decision:             decision,
		Date:                 date,
		UpdatedEnrollmentIDs: []string{},
		FailedEnrollmentIDs:  []string{},
	}
	for _, enrollmentID := range enrollmentIDs {
		_, err := s.store.ApplyDecision(ctx, repository.DecisionParams{
			EnrollmentID:   enrollmentID,
			Date:           date,
			Status:         status,
			ApprovalStatus: approval,
			Reason:         reason,
			ApprovedBy:     req.TeacherID,
			ApprovalDate:   approvalDate,
		})
		if err != nil {
			s.logger.Error("excuse decision write failed",
				zap.String("decision", string(decision)),
				zap.String("enrollment_id", enrollmentID),
				zap.String("date", date.Format(models.DateLayout)),
				zap.Error(err))
			result.FailedEnrollmentIDs = append(result.FailedEnrollmentIDs, enrollmentID)
			continue
		}
		result.UpdatedEnrollmentIDs = append(result.UpdatedEnrollmentIDs, enrollmentID)
	}
	result.UpdatedCount = len(result.UpdatedEnrollmentIDs)
	s.metrics.RecordExcuseDecision(result)

	if !result.Success() {
		s.logger.Warn("excuse decision updated nothing",
			zap.String("decision", string(decision)),
			zap.String("student_id", req.StudentID),
			zap.String("course", req.CourseName),
			zap.Int("enrollments", len(enrollmentIDs)))
		return result, nil
	}

	s.summaries.Invalidate(ctx, req.StudentID)
	s.notifyDecision(ctx, req, decision, date)
	return result, nil
}

func (s *ExcuseService) notifyDecision(ctx context.Context, req ExcuseDecisionRequest, decision models.ExcuseDecision, date time.Time) {
	verb, kind := "approved", models.NotificationTypeExcuseApproval
	if decision == models.ExcuseDecisionReject {
		verb, kind = "rejected", models.NotificationTypeExcuseRejection
	}
	message := fmt.Sprintf("Your excuse on %s for %s has been %s.", date.Format(models.DateLayout), req.CourseName, verb)
	if err := s.notifier.NotifyStudent(ctx, req.StudentID, req.ActingUserID, message, kind); err != nil {
		s.logger.Warn("excuse decision notification failed", zap.String("student_id", req.StudentID), zap.Error(err))
	}
}

func (s *ExcuseService) notifySubmitted(ctx context.Context, req SubmitExcuseRequest, enrollmentID string, date time.Time) {
	teacherID := req.TeacherID
	if teacherID == "" {
		detail, err := s.details.FindDetailByID(ctx, enrollmentID)
		if err != nil {
			s.logger.Warn("excuse notification skipped", zap.String("enrollment_id", enrollmentID), zap.Error(err))
			return
		}
		teacherID = detail.TeacherID
	}
	name, err := s.notifier.DisplayName(ctx, req.ActingUserID)
	if err != nil {
		s.logger.Warn("excuse notification skipped", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		return
	}
	message := fmt.Sprintf("%s submitted an excuse for %s in %s.", name, date.Format(models.DateLayout), req.CourseName)
	if err := s.notifier.NotifyTeacher(ctx, teacherID, req.ActingUserID, message, models.NotificationTypeExcuseRequest); err != nil {
		s.logger.Warn("excuse request notification failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
