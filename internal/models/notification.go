package models

import "time"

// NotificationType classifies notifications produced by the attendance core.
type NotificationType string

const (
	NotificationTypeAttendance      NotificationType = "ATTENDANCE"
	NotificationTypeExcuseRequest   NotificationType = "EXCUSE_REQUEST"
	NotificationTypeExcuseApproval  NotificationType = "EXCUSE_APPROVAL"
	NotificationTypeExcuseRejection NotificationType = "EXCUSE_REJECTION"
)

// Valid returns true when the type is a supported value.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeAttendance, NotificationTypeExcuseRequest, NotificationTypeExcuseApproval, NotificationTypeExcuseRejection:
		return true
	default:
		return false
	}
}

// Notification is an immutable message delivered to a user.
type Notification struct {
	ID              int64            `db:"id" json:"id"`
	RecipientUserID string           `db:"recipient_user_id" json:"recipient_user_id"`
	SenderUserID    string           `db:"sender_user_id" json:"sender_user_id"`
	Message         string           `db:"message" json:"message"`
	Type            NotificationType `db:"notification_type" json:"type"`
	DateSent        time.Time        `db:"date_sent" json:"date_sent"`
	IsRead          bool             `db:"is_read" json:"is_read"`
}

// NotificationFilter scopes a recipient's notification listing.
type NotificationFilter struct {
	RecipientUserID string
	UnreadOnly      bool
	Page            int
	PageSize        int
}
