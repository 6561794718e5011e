package models

import "time"

const (
	PlanBasic    = "basic"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// PlanDuration is the period one purchase buys. Renewal stacks this onto an
// active window's end date.
var PlanDuration = map[string]time.Duration{
	PlanBasic:    30 * 24 * time.Hour,
	PlanStandard: 30 * 24 * time.Hour,
	PlanPremium:  30 * 24 * time.Hour,
}

// PlanPrice in somoni. Payment is simulated, no gateway call.
var PlanPrice = map[string]float64{
	PlanBasic:    49,
	PlanStandard: 99,
	PlanPremium:  199,
}

// PlanDailyQuota is the per-day response quota a plan grants a provider.
// 0 means unlimited. Providers without an active window get FreeDailyQuota.
var PlanDailyQuota = map[string]int{
	PlanBasic:    3,
	PlanStandard: 10,
	PlanPremium:  0,
}

const FreeDailyQuota = 1

// Subscription is a single mutable window per provider. IsActive is the
// "not cancelled" flag; entitlement additionally requires now < EndDate.
type Subscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Plan      string    `gorm:"size:20;not null" json:"plan"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ActiveAt reports whether the window grants entitlement at t. Cancellation
// flips IsActive but access persists until EndDate, so both are required.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.IsActive && t.Before(s.EndDate)
}

// Payment records a simulated subscription purchase.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	OrderID   string    `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	Plan      string    `gorm:"size:20;not null" json:"plan"`
	Amount    float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status    string    `gorm:"size:20;not null;default:'SIMULATED'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
