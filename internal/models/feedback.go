package models

import "time"

// MaxFeedbackComment bounds the comment length in characters.
const MaxFeedbackComment = 300

// Feedback is an immutable rating left by one party of an accepted swap.
type Feedback struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SwapID     uint      `gorm:"not null;uniqueIndex:idx_feedback_swap_from" json:"swapId"`
	FromUserID uint      `gorm:"not null;uniqueIndex:idx_feedback_swap_from;index" json:"fromUserId"`
	ToUserID   uint      `gorm:"not null;index" json:"toUserId"`
	Rating     int       `gorm:"not null" json:"rating"`
	Comment    string    `gorm:"type:varchar(300)" json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for GORM
func (Feedback) TableName() string {
	return "feedback"
}

// FeedbackView annotates an entry with its direction relative to the reader.
type FeedbackView struct {
	Feedback
	Direction string `json:"direction"`
}
