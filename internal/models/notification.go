package models

import "time"

// NotificationType names the event behind a notification.
type NotificationType string

const (
	NotificationNewSwapRequest       NotificationType = "NewSwapRequest"
	NotificationSwapRequestAccepted  NotificationType = "SwapRequestAccepted"
	NotificationSwapRequestRejected  NotificationType = "SwapRequestRejected"
	NotificationSwapRequestCancelled NotificationType = "SwapRequestCancelled"
)

// NotificationTypeForStatus maps a swap transition to its notification type.
func NotificationTypeForStatus(s SwapStatus) NotificationType {
	switch s {
	case SwapStatusAccepted:
		return NotificationSwapRequestAccepted
	case SwapStatusRejected:
		return NotificationSwapRequestRejected
	default:
		return NotificationSwapRequestCancelled
	}
}

// Notification is an ephemeral feed entry. It is not stored in the
// relational database.
type Notification struct {
	ID              string           `json:"notificationId"`
	UserID          uint             `json:"userId"`
	Type            NotificationType `json:"type"`
	Message         string           `json:"message"`
	IsRead          bool             `json:"isRead"`
	CreatedAt       time.Time        `json:"createdAt"`
	RelatedEntityID uint             `json:"relatedEntityId,omitempty"`
}
