package models

import "time"

// Review: at most one per task (unique index on task_id), creatable only by
// the task owner once the task is COMPLETED.
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TaskID     uint      `gorm:"not null;uniqueIndex" json:"task_id"`
	ReviewerID uint      `gorm:"not null;index" json:"reviewer_id"`
	ReviewedID uint      `gorm:"not null;index" json:"reviewed_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	Comment    *string   `gorm:"size:2000" json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
