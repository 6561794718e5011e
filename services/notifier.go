package services

import (
	"log"

	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/models"
)

// Notifier is the capability the lifecycle engine uses to emit notification
// rows. Emission is best-effort and fire-and-forget: it runs after the
// transition has committed and a failure never rolls the transition back.
type Notifier interface {
	Notify(userID uint, typ, title, message, link string)
}

// DBNotifier writes Notification rows through gorm.
type DBNotifier struct {
	db *gorm.DB
}

func NewDBNotifier(db *gorm.DB) *DBNotifier {
	return &DBNotifier{db: db}
}

func (n *DBNotifier) Notify(userID uint, typ, title, message, link string) {
	row := models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := n.db.Create(&row).Error; err != nil {
		log.Printf("[notify] create failed: user=%d type=%s err=%v", userID, typ, err)
	}
}

// NopNotifier discards notifications. Used in tests that only care about
// lifecycle state.
type NopNotifier struct{}

func (NopNotifier) Notify(userID uint, typ, title, message, link string) {}
