package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/jobs"
)

const notificationJobType = "notification.deliver"

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, recipientUserID string, id int64) error
}

type userDirectory interface {
	FindStudent(ctx context.Context, studentID string) (*models.DirectoryEntry, error)
	FindTeacher(ctx context.Context, teacherID string) (*models.DirectoryEntry, error)
	FindByUserID(ctx context.Context, userID string) (*models.DirectoryEntry, error)
}

// NotifyRequest describes a notification to persist.
type NotifyRequest struct {
	RecipientUserID string                  `validate:"required"`
	SenderUserID    string                  `validate:"required"`
	Message         string                  `validate:"required,max=1000"`
	Type            models.NotificationType `validate:"required"`
}

// NotificationService composes and persists notifications. Delivery is
// synchronous unless a queue is attached with EnableAsync.
type NotificationService struct {
	repo      notificationRepository
	users     userDirectory
	clock     Clock
	metrics   *MetricsService
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, users userDirectory, clock Clock, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if clock == nil {
		clock = SystemClock{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, users: users, clock: clock, metrics: metrics, validator: validate, logger: logger}
}

// EnableAsync starts a worker pool that persists notifications off the request path.
func (s *NotificationService) EnableAsync(ctx context.Context, cfg jobs.QueueConfig) {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	s.queue.Start(ctx)
}

// Close drains queued notifications.
func (s *NotificationService) Close() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Notify persists a notification with is_read=false and the current time.
// Errors carry NOTIFICATION_ERROR.
func (s *NotificationService) Notify(ctx context.Context, req NotifyRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return notificationFailure(err, "invalid notification")
	}
	if !req.Type.Valid() {
		return notificationFailure(fmt.Errorf("unknown notification type %q", req.Type), "invalid notification")
	}
	n := models.Notification{
		RecipientUserID: req.RecipientUserID,
		SenderUserID:    req.SenderUserID,
		Message:         req.Message,
		Type:            req.Type,
		DateSent:        s.clock.Now(),
	}

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{Type: notificationJobType, Payload: n})
		if err == nil {
			s.metrics.RecordNotification(n.Type, NotificationOutcomeQueued)
			return nil
		}
		s.logger.Warn("notification queue unavailable, delivering inline", zap.Error(err))
	}
	return s.persist(ctx, &n)
}

// NotifyStudent resolves the student's user account and notifies it.
func (s *NotificationService) NotifyStudent(ctx context.Context, studentID, senderUserID, message string, kind models.NotificationType) error {
	entry, err := s.users.FindStudent(ctx, studentID)
	if err != nil {
		return notificationFailure(err, "failed to resolve student recipient")
	}
	return s.Notify(ctx, NotifyRequest{RecipientUserID: entry.UserID, SenderUserID: senderUserID, Message: message, Type: kind})
}

// NotifyTeacher resolves the teacher's user account and notifies it.
func (s *NotificationService) NotifyTeacher(ctx context.Context, teacherID, senderUserID, message string, kind models.NotificationType) error {
	entry, err := s.users.FindTeacher(ctx, teacherID)
	if err != nil {
		return notificationFailure(err, "failed to resolve teacher recipient")
	}
	return s.Notify(ctx, NotifyRequest{RecipientUserID: entry.UserID, SenderUserID: senderUserID, Message: message, Type: kind})
}

// DisplayName renders "<Role> <First> <Last>" for a user account.
func (s *NotificationService) DisplayName(ctx context.Context, userID string) (string, error) {
	entry, err := s.users.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return "", storageFailure(err, "failed to load user")
	}
	return entry.DisplayName(), nil
}

// ListForRecipient returns the recipient's notification pane.
func (s *NotificationService) ListForRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if filter.RecipientUserID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "recipient is required")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageFailure(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// MarkRead flags a notification owned by the recipient as read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientUserID string, id int64) error {
	if err := s.repo.MarkRead(ctx, recipientUserID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return storageFailure(err, "failed to update notification")
	}
	return nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.persist(ctx, &n)
}

func (s *NotificationService) persist(ctx context.Context, n *models.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.RecordNotification(n.Type, NotificationOutcomeFailed)
		return notificationFailure(err, "failed to store notification")
	}
	s.metrics.RecordNotification(n.Type, NotificationOutcomeSent)
	return nil
}

func notificationFailure(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrNotificationError.Code, appErrors.ErrNotificationError.Status, message)
}
