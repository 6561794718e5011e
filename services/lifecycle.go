package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/models"
)

// Lifecycle governs the legal states and transitions of a Task and its
// Responses. Every transition runs inside one transaction and guards its
// status write with a conditional UPDATE on the expected current status, so
// two racing callers cannot both pass the precondition: the loser's update
// affects zero rows and fails with an invalid-state error.
type Lifecycle struct {
	db       *gorm.DB
	notifier Notifier
}

func NewLifecycle(db *gorm.DB, notifier Notifier) *Lifecycle {
	return &Lifecycle{db: db, notifier: notifier}
}

type CreateTaskInput struct {
	Title        string
	Description  string
	Category     string
	Subcategory  *string
	BudgetType   string
	BudgetAmount *float64
	City         string
	Address      *string
	DueDate      *time.Time
	Urgent       bool
}

// CreateTask creates a new OPEN task and writes the first history event.
func (l *Lifecycle) CreateTask(callerID uint, in CreateTaskInput) (*models.Task, error) {
	if in.BudgetType == models.BudgetFixed {
		if in.BudgetAmount == nil || *in.BudgetAmount <= 0 {
			return nil, Validation("Для фиксированного бюджета укажите сумму")
		}
	} else {
		// amount is meaningful only for fixed budgets
		in.BudgetAmount = nil
	}

	task := models.Task{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Subcategory:  in.Subcategory,
		BudgetType:   in.BudgetType,
		BudgetAmount: in.BudgetAmount,
		City:         in.City,
		Address:      in.Address,
		DueDate:      in.DueDate,
		Urgent:       in.Urgent,
		Status:       models.TaskOpen,
		UserID:       callerID,
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return tx.Create(&models.TaskEvent{
			TaskID:      task.ID,
			ActorID:     callerID,
			Status:      models.TaskOpen,
			Description: "Задание создано",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateResponse submits a provider's bid on an OPEN task. The subscription
// gate is enforced here, server-side: providers without an active window get
// the free daily quota, active plans raise it.
func (l *Lifecycle) CreateResponse(callerID, taskID uint, price *float64, message string) (*models.Response, error) {
	resp := models.Response{
		TaskID:  taskID,
		UserID:  callerID,
		Price:   price,
		Message: message,
		Status:  models.ResponsePending,
	}
	var task models.Task
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Задание не найдено")
			}
			return err
		}
		if task.UserID == callerID {
			return InvalidState("Нельзя откликнуться на собственное задание")
		}
		if task.Status != models.TaskOpen {
			return InvalidState("Откликнуться можно только на открытое задание")
		}

		var existing int64
		if err := tx.Model(&models.Response{}).
			Where("task_id = ? AND user_id = ?", taskID, callerID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return Conflict("Вы уже откликнулись на это задание")
		}

		quota, err := l.dailyQuota(tx, callerID)
		if err != nil {
			return err
		}
		if quota > 0 {
			startOfDay := startOfToday()
			var today int64
			if err := tx.Model(&models.Response{}).
				Where("user_id = ? AND created_at >= ?", callerID, startOfDay).
				Count(&today).Error; err != nil {
				return err
			}
			if today >= int64(quota) {
				return InvalidState("Дневной лимит откликов исчерпан. Оформите подписку, чтобы откликаться чаще")
			}
		}

		if err := tx.Create(&resp).Error; err != nil {
			// racing duplicate that slipped past the count check
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("Вы уже откликнулись на это задание")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.notifier.Notify(task.UserID, models.NotifyNewResponse,
		"Новый отклик",
		fmt.Sprintf("На ваше задание «%s» поступил новый отклик", task.Title),
		taskLink(task.ID))
	return &resp, nil
}

// AcceptResponse assigns the named provider to an OPEN task. Requires an
// existing PENDING response from that provider; marks it ACCEPTED and retires
// sibling PENDING responses to NOT_SELECTED, all in one transaction.
func (l *Lifecycle) AcceptResponse(callerID, taskID, providerID uint) (*models.Task, error) {
	var task models.Task
	var notSelected []uint
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Задание не найдено")
			}
			return err
		}
		if task.UserID != callerID {
			return Forbidden("Только автор задания может выбрать исполнителя")
		}

		var accepted models.Response
		if err := tx.Where("task_id = ? AND user_id = ? AND status = ?",
			taskID, providerID, models.ResponsePending).First(&accepted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return InvalidState("У этого исполнителя нет активного отклика на задание")
			}
			return err
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskOpen).
			Updates(map[string]interface{}{
				"status":           models.TaskInProgress,
				"assigned_user_id": providerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidState("Выбрать исполнителя можно только для открытого задания")
		}

		if err := tx.Model(&accepted).Update("status", models.ResponseAccepted).Error; err != nil {
			return err
		}

		var siblings []models.Response
		if err := tx.Where("task_id = ? AND status = ? AND id <> ?",
			taskID, models.ResponsePending, accepted.ID).Find(&siblings).Error; err != nil {
			return err
		}
		for _, s := range siblings {
			notSelected = append(notSelected, s.UserID)
		}
		if len(siblings) > 0 {
			if err := tx.Model(&models.Response{}).
				Where("task_id = ? AND status = ? AND id <> ?", taskID, models.ResponsePending, accepted.ID).
				Update("status", models.ResponseNotSelected).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.TaskEvent{
			TaskID:      taskID,
			ActorID:     callerID,
			Status:      models.TaskInProgress,
			Description: "Исполнитель назначен",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	l.notifier.Notify(providerID, models.NotifyOfferAccepted,
		"Ваш отклик принят",
		fmt.Sprintf("Вы назначены исполнителем задания «%s»", task.Title),
		taskLink(task.ID))
	for _, uid := range notSelected {
		l.notifier.Notify(uid, models.NotifyResponseNotSelected,
			"Исполнитель выбран",
			fmt.Sprintf("По заданию «%s» выбран другой исполнитель", task.Title),
			taskLink(task.ID))
	}

	return l.reload(taskID)
}

// RejectResponse flips a PENDING response to REJECTED. Owner only.
func (l *Lifecycle) RejectResponse(callerID, responseID uint) (*models.Response, error) {
	var resp models.Response
	var task models.Task
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&resp, responseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Отклик не найден")
			}
			return err
		}
		if err := tx.First(&task, resp.TaskID).Error; err != nil {
			return err
		}
		if task.UserID != callerID {
			return Forbidden("Только автор задания может отклонить отклик")
		}

		res := tx.Model(&models.Response{}).
			Where("id = ? AND status = ?", responseID, models.ResponsePending).
			Update("status", models.ResponseRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidState("Отклонить можно только ожидающий отклик")
		}
		resp.Status = models.ResponseRejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.notifier.Notify(resp.UserID, models.NotifyOfferRejected,
		"Отклик отклонён",
		fmt.Sprintf("Ваш отклик на задание «%s» отклонён", task.Title),
		taskLink(task.ID))
	return &resp, nil
}

// CompleteTask transitions IN_PROGRESS -> COMPLETED. Owner only.
func (l *Lifecycle) CompleteTask(callerID, taskID uint) (*models.Task, error) {
	var task models.Task
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Задание не найдено")
			}
			return err
		}
		if task.UserID != callerID {
			return Forbidden("Только автор задания может завершить его")
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskInProgress).
			Update("status", models.TaskCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidState("Завершить можно только задание в работе")
		}

		return tx.Create(&models.TaskEvent{
			TaskID:      taskID,
			ActorID:     callerID,
			Status:      models.TaskCompleted,
			Description: "Задание завершено",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if task.AssignedUserID != nil {
		l.notifier.Notify(*task.AssignedUserID, models.NotifyTaskCompleted,
			"Задание завершено",
			fmt.Sprintf("Задание «%s» отмечено как выполненное", task.Title),
			taskLink(task.ID))
	}
	return l.reload(taskID)
}

// CancelTask transitions OPEN -> CANCELLED. Owner only; assigned_user_id
// stays null.
func (l *Lifecycle) CancelTask(callerID, taskID uint) (*models.Task, error) {
	return l.cancel(callerID, taskID, false)
}

// ForceCancelTask is the admin variant of CancelTask: same OPEN-only
// precondition, no ownership check.
func (l *Lifecycle) ForceCancelTask(actorID, taskID uint) (*models.Task, error) {
	return l.cancel(actorID, taskID, true)
}

func (l *Lifecycle) cancel(actorID, taskID uint, force bool) (*models.Task, error) {
	var task models.Task
	var pending []models.Response
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Задание не найдено")
			}
			return err
		}
		if !force && task.UserID != actorID {
			return Forbidden("Только автор задания может отменить его")
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, models.TaskOpen).
			Update("status", models.TaskCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidState("Отменить можно только открытое задание")
		}

		if err := tx.Where("task_id = ? AND status = ?", taskID, models.ResponsePending).
			Find(&pending).Error; err != nil {
			return err
		}

		return tx.Create(&models.TaskEvent{
			TaskID:      taskID,
			ActorID:     actorID,
			Status:      models.TaskCancelled,
			Description: "Задание отменено",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		l.notifier.Notify(p.UserID, models.NotifyTaskCancelled,
			"Задание отменено",
			fmt.Sprintf("Задание «%s», на которое вы откликались, отменено", task.Title),
			taskLink(task.ID))
	}
	return l.reload(taskID)
}

// SubmitReview creates the single review for a COMPLETED task. Reviewer is
// the owner, reviewed is the assigned provider.
func (l *Lifecycle) SubmitReview(callerID, taskID uint, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, Validation("Оценка должна быть от 1 до 5")
	}
	var review models.Review
	var task models.Task
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Задание не найдено")
			}
			return err
		}
		if task.UserID != callerID {
			return Forbidden("Оставить отзыв может только автор задания")
		}
		if task.Status != models.TaskCompleted {
			return InvalidState("Отзыв можно оставить только по завершённому заданию")
		}
		if task.AssignedUserID == nil {
			return InvalidState("У задания нет назначенного исполнителя")
		}

		var count int64
		if err := tx.Model(&models.Review{}).Where("task_id = ?", taskID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return InvalidState("Отзыв по этому заданию уже существует")
		}

		review = models.Review{
			TaskID:     taskID,
			ReviewerID: callerID,
			ReviewedID: *task.AssignedUserID,
			Rating:     rating,
			Comment:    comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			// a racing reviewer can pass the count check and lose on the
			// unique index
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return InvalidState("Отзыв по этому заданию уже существует")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.notifier.Notify(review.ReviewedID, models.NotifyNewReview,
		"Новый отзыв",
		fmt.Sprintf("По заданию «%s» оставлен отзыв с оценкой %d", task.Title, rating),
		taskLink(task.ID))
	return &review, nil
}

// TaskHistory returns the persisted transition log, oldest first.
func (l *Lifecycle) TaskHistory(taskID uint) ([]models.TaskEvent, error) {
	var task models.Task
	if err := l.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Задание не найдено")
		}
		return nil, err
	}
	var events []models.TaskEvent
	if err := l.db.Where("task_id = ?", taskID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (l *Lifecycle) dailyQuota(tx *gorm.DB, providerID uint) (int, error) {
	var sub models.Subscription
	err := tx.Where("user_id = ?", providerID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FreeDailyQuota, nil
		}
		return 0, err
	}
	if !sub.ActiveAt(time.Now()) {
		return models.FreeDailyQuota, nil
	}
	return models.PlanDailyQuota[sub.Plan], nil
}

func (l *Lifecycle) reload(taskID uint) (*models.Task, error) {
	var task models.Task
	if err := l.db.First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func taskLink(id uint) string {
	return fmt.Sprintf("/tasks/%d", id)
}
