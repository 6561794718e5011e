package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/models"
)

// Subscriptions manages the single entitlement window per provider.
type Subscriptions struct {
	db *gorm.DB
}

func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// Current returns the provider's window, or a not-found domain error when the
// provider never purchased one.
func (s *Subscriptions) Current(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Подписка не оформлена")
		}
		return nil, err
	}
	return &sub, nil
}

// Purchase creates or renews the window. Payment is simulated: a Payment row
// with a generated order id is written in the same transaction.
//
// Renewal stacks: when the existing window is still active the new period is
// added onto its end date; otherwise a fresh window starts now. The plan
// label is overwritten immediately even though remaining time carries over.
func (s *Subscriptions) Purchase(userID uint, plan string) (*models.Subscription, *models.Payment, error) {
	duration, ok := models.PlanDuration[plan]
	if !ok {
		return nil, nil, Validation("Неизвестный тарифный план")
	}

	now := time.Now()
	var sub models.Subscription
	payment := models.Payment{
		UserID:  userID,
		OrderID: uuid.NewString(),
		Plan:    plan,
		Amount:  models.PlanPrice[plan],
		Status:  "SIMULATED",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		err := tx.Where("user_id = ?", userID).First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = models.Subscription{
				UserID:    userID,
				Plan:      plan,
				StartDate: now,
				EndDate:   now.Add(duration),
				IsActive:  true,
			}
			return tx.Create(&sub).Error
		case err != nil:
			return err
		}

		if sub.ActiveAt(now) {
			sub.EndDate = sub.EndDate.Add(duration)
		} else {
			sub.StartDate = now
			sub.EndDate = now.Add(duration)
		}
		sub.Plan = plan
		sub.IsActive = true
		return tx.Save(&sub).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &sub, &payment, nil
}

// Cancel soft-cancels: IsActive goes false, the row and its end date stay, so
// access persists until the window runs out.
func (s *Subscriptions) Cancel(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Подписка не оформлена")
		}
		return nil, err
	}
	if !sub.IsActive {
		return nil, InvalidState("Подписка уже отменена")
	}
	if err := s.db.Model(&sub).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	sub.IsActive = false
	return &sub, nil
}
