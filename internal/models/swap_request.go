package models

import "time"

// SwapStatus represents the lifecycle state of a swap request.
type SwapStatus string

const (
	// SwapStatusPending is the initial state of every request.
	SwapStatusPending SwapStatus = "pending"
	// SwapStatusAccepted means the recipient agreed to the swap.
	SwapStatusAccepted SwapStatus = "accepted"
	// SwapStatusRejected means the recipient declined the swap.
	SwapStatusRejected SwapStatus = "rejected"
	// SwapStatusCancelled means the requester withdrew the swap.
	SwapStatusCancelled SwapStatus = "cancelled"
)

// ParseSwapStatus validates a client-supplied status value.
func ParseSwapStatus(s string) (SwapStatus, bool) {
	switch st := SwapStatus(s); st {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed from s.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusAccepted || s == SwapStatusRejected || s == SwapStatusCancelled
}

// SwapRequest is a proposal from one user to exchange skills with another.
type SwapRequest struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	FromUserID         uint       `gorm:"not null;index" json:"fromUserId"`
	ToUserID           uint       `gorm:"not null;index" json:"toUserId"`
	OfferedSkillName   string     `gorm:"type:varchar(100);not null" json:"offeredSkillName"`
	RequestedSkillName string     `gorm:"type:varchar(100);not null" json:"requestedSkillName"`
	Status             SwapStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (SwapRequest) TableName() string {
	return "swap_requests"
}

// CounterpartyOf returns the other party of the swap relative to userID.
func (r *SwapRequest) CounterpartyOf(userID uint) uint {
	if r.FromUserID == userID {
		return r.ToUserID
	}
	return r.FromUserID
}

// Involves reports whether userID is either party of the swap.
func (r *SwapRequest) Involves(userID uint) bool {
	return r.FromUserID == userID || r.ToUserID == userID
}

// SwapRequestView is a swap request enriched for listing.
type SwapRequestView struct {
	SwapRequest
	FromUserName     string `json:"fromUserName"`
	ToUserName       string `json:"toUserName"`
	CounterpartyName string `json:"counterpartyName"`
	Direction        string `json:"direction"`
}
