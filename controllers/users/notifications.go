package users

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// GET /api/notifications: newest first, with the unread count.
func ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	db := database.DB

	var notifications []models.Notification
	if err := db.Where("user_id = ?", p.ID).Order("id DESC").Limit(100).Find(&notifications).Error; err != nil {
		writeServiceError(w, "notification-list", err)
		return
	}
	var unread int64
	db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", p.ID, false).Count(&unread)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"notifications": notifications,
			"unread_count":  unread,
		},
	})
}

// POST /api/notifications/{id}/read: read-state mutation is owner-only.
func MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := database.DB

	res := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, p.ID).
		Update("is_read", true)
	if res.Error != nil {
		writeServiceError(w, "notification-read", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Уведомление не найдено"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully"})
}

// POST /api/notifications/read-all
func MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	db := database.DB
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", p.ID, false).
		Update("is_read", true).Error; err != nil {
		writeServiceError(w, "notification-read-all", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully"})
}
