package models

import "time"

// Notification types emitted by lifecycle transitions and messaging.
const (
	NotifyNewResponse         = "NEW_RESPONSE"
	NotifyOfferAccepted       = "OFFER_ACCEPTED"
	NotifyOfferRejected       = "OFFER_REJECTED"
	NotifyResponseNotSelected = "RESPONSE_NOT_SELECTED"
	NotifyTaskCompleted       = "TASK_COMPLETED"
	NotifyTaskCancelled       = "TASK_CANCELLED"
	NotifyNewMessage          = "NEW_MESSAGE"
	NotifyNewReview           = "NEW_REVIEW"
)

// Notification is a pure observer of lifecycle state: rows are created as a
// side effect of transitions and never feed back into them.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:30;not null" json:"type"`
	Title     string    `gorm:"size:150;not null" json:"title"`
	Message   string    `gorm:"size:1000" json:"message"`
	Link      string    `gorm:"size:255" json:"link"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
