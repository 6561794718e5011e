package models

import "time"

// Task statuses. CANCELLED is reachable only from OPEN; COMPLETED only from
// IN_PROGRESS. assigned_user_id is null exactly while the task is OPEN or
// CANCELLED.
const (
	TaskOpen       = "OPEN"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
)

const (
	BudgetFixed      = "fixed"
	BudgetNegotiable = "negotiable"
)

type Task struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"size:150;not null" json:"title"`
	Description    string     `gorm:"size:5000;not null" json:"description"`
	Category       string     `gorm:"size:50;not null;index" json:"category"`
	Subcategory    *string    `gorm:"size:50" json:"subcategory,omitempty"`
	BudgetType     string     `gorm:"size:20;not null;default:'negotiable'" json:"budget_type"`
	BudgetAmount   *float64   `gorm:"type:decimal(15,2)" json:"budget_amount,omitempty"`
	City           string     `gorm:"size:100;not null;index" json:"city"`
	Address        *string    `gorm:"size:255" json:"address,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Urgent         bool       `gorm:"default:false" json:"urgent"`
	Status         string     `gorm:"size:20;not null;default:'OPEN';index" json:"status"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	AssignedUserID *uint      `gorm:"index" json:"assigned_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskEvent is the append-only transition log. One row per lifecycle
// transition, written in the same transaction as the status change, so the
// history endpoint never has to infer events from updated_at.
type TaskEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      uint      `gorm:"not null;index" json:"task_id"`
	ActorID     uint      `gorm:"not null" json:"actor_id"`
	Status      string    `gorm:"size:20;not null" json:"status"`
	Description string    `gorm:"size:255;not null" json:"description"`
	CreatedAt   time.Time `json:"timestamp"`
}

func (TaskEvent) TableName() string {
	return "task_events"
}
