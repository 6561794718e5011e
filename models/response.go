package models

import "time"

// Response statuses. A response leaves PENDING exactly once: REJECTED by the
// owner, ACCEPTED when the owner assigns its author, or NOT_SELECTED when a
// sibling response is accepted.
const (
	ResponsePending     = "PENDING"
	ResponseAccepted    = "ACCEPTED"
	ResponseRejected    = "REJECTED"
	ResponseNotSelected = "NOT_SELECTED"
)

type Response struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;uniqueIndex:idx_responses_task_user" json:"task_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_responses_task_user;index" json:"user_id"`
	Price     *float64  `gorm:"type:decimal(15,2)" json:"price,omitempty"`
	Message   string    `gorm:"size:2000;not null" json:"message"`
	Status    string    `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Response) TableName() string {
	return "responses"
}
