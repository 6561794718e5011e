package users

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// MessageController handles task-scoped conversations between the owner and
// responders.
type MessageController struct {
	notifier services.Notifier
}

func NewMessageController(notifier services.Notifier) *MessageController {
	return &MessageController{notifier: notifier}
}

type SendMessageRequest struct {
	TaskID      uint   `json:"task_id" validate:"required"`
	RecipientID uint   `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required,min=1,max=2000"`
}

// POST /api/messages: sender and recipient must be the task owner and one of
// its responders (in either direction).
func (c *MessageController) SendHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.RecipientID == p.ID {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Нельзя отправить сообщение самому себе"})
		return
	}
	db := database.DB

	var task models.Task
	if err := db.First(&task, req.TaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Задание не найдено"})
			return
		}
		writeServiceError(w, "message-send", err)
		return
	}

	ownerID := task.UserID
	var providerID uint
	switch p.ID {
	case ownerID:
		providerID = req.RecipientID
	default:
		if req.RecipientID != ownerID {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Переписка возможна только с автором задания"})
			return
		}
		providerID = p.ID
	}

	if !c.isParticipant(db, &task, providerID) {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Переписка доступна только участникам задания"})
		return
	}

	msg := models.Message{
		TaskID:      task.ID,
		SenderID:    p.ID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if err := db.Create(&msg).Error; err != nil {
		writeServiceError(w, "message-send", err)
		return
	}

	c.notifier.Notify(req.RecipientID, models.NotifyNewMessage,
		"Новое сообщение",
		fmt.Sprintf("Новое сообщение по заданию «%s»", task.Title),
		fmt.Sprintf("/tasks/%d", task.ID))

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Сообщение отправлено",
		Data:    map[string]interface{}{"message": msg},
	})
}

// GET /api/tasks/{id}/messages/{peer}: the conversation between the caller
// and the peer within one task, oldest first. Marks received messages read.
func (c *MessageController) ConversationHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	peerID, ok := pathID(w, r, "peer")
	if !ok {
		return
	}
	db := database.DB

	var msgs []models.Message
	err := db.Where("task_id = ? AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
		taskID, p.ID, peerID, peerID, p.ID).
		Order("id ASC").Find(&msgs).Error
	if err != nil {
		writeServiceError(w, "message-list", err)
		return
	}

	db.Model(&models.Message{}).
		Where("task_id = ? AND sender_id = ? AND recipient_id = ? AND is_read = ?", taskID, peerID, p.ID, false).
		Update("is_read", true)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"messages": msgs},
	})
}

// isParticipant reports whether providerID responded to or is assigned to the
// task.
func (c *MessageController) isParticipant(db *gorm.DB, task *models.Task, providerID uint) bool {
	if task.AssignedUserID != nil && *task.AssignedUserID == providerID {
		return true
	}
	var count int64
	db.Model(&models.Response{}).
		Where("task_id = ? AND user_id = ?", task.ID, providerID).
		Count(&count)
	return count > 0
}
