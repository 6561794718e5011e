package models

import "time"

const (
	RoleCustomer = "CUSTOMER"
	RoleProvider = "PROVIDER"
	RoleAdmin    = "ADMIN"
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Email         string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Phone         string    `gorm:"size:20;uniqueIndex;not null" json:"phone"`
	Password      string    `gorm:"size:255;not null" json:"-"`
	Role          string    `gorm:"size:20;not null;default:'CUSTOMER'" json:"role"`
	City          *string   `gorm:"size:100" json:"city,omitempty"`
	About         *string   `gorm:"size:1000" json:"about,omitempty"`
	PhoneVerified bool      `gorm:"default:false" json:"phone_verified"`
	Blocked       bool      `gorm:"default:false" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
