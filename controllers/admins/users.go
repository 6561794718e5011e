package admins

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

func writeServiceError(w http.ResponseWriter, tag string, err error) {
	if services.IsDomain(err) {
		utils.WriteJSON(w, services.HTTPStatus(err), utils.APIResponse{Success: false, Message: err.Error()})
		return
	}
	log.Printf("[%s] %v", tag, err)
	utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Некорректный идентификатор"})
		return 0, false
	}
	return uint(id), true
}

// GET /api/admin/users: optional role filter.
func UserListHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	q := db.Model(&models.User{})
	if role := r.URL.Query().Get("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("id ASC").Limit(200).Find(&users).Error; err != nil {
		writeServiceError(w, "admin-users", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"users": users},
	})
}

// POST /api/admin/users/{id}/block
func BlockUserHandler(w http.ResponseWriter, r *http.Request) {
	setBlocked(w, r, true, "Пользователь заблокирован")
}

// POST /api/admin/users/{id}/unblock
func UnblockUserHandler(w http.ResponseWriter, r *http.Request) {
	setBlocked(w, r, false, "Пользователь разблокирован")
}

func setBlocked(w http.ResponseWriter, r *http.Request, blocked bool, msg string) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := database.DB
	res := db.Model(&models.User{}).Where("id = ?", id).Update("blocked", blocked)
	if res.Error != nil {
		writeServiceError(w, "admin-block", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Пользователь не найден"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: msg})
}
