package users

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// GET /api/users/info: the caller's own profile with the provider extras.
func InfoHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	db := database.DB

	var user models.User
	if err := db.First(&user, p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
			return
		}
		writeServiceError(w, "user-info", err)
		return
	}

	data := map[string]interface{}{"user": user}

	if user.Role == models.RoleProvider {
		var avg float64
		db.Model(&models.Review{}).
			Where("reviewed_id = ?", user.ID).
			Select("COALESCE(AVG(rating),0)").Scan(&avg)
		data["average_rating"] = avg

		var sub models.Subscription
		if err := db.Where("user_id = ?", user.ID).First(&sub).Error; err == nil {
			data["subscription"] = map[string]interface{}{
				"plan":     sub.Plan,
				"active":   sub.ActiveAt(time.Now()),
				"end_date": sub.EndDate,
			}
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: data})
}

type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	City  *string `json:"city,omitempty" validate:"omitempty,max=100"`
	About *string `json:"about,omitempty" validate:"omitempty,max=1000"`
}

// PUT /api/users/profile
func UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.About != nil {
		updates["about"] = *req.About
	}
	if len(updates) == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Нет полей для обновления"})
		return
	}

	db := database.DB
	if err := db.Model(&models.User{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		writeServiceError(w, "profile-update", err)
		return
	}
	var user models.User
	if err := db.First(&user, p.ID).Error; err != nil {
		writeServiceError(w, "profile-update", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Профиль обновлён",
		Data:    map[string]interface{}{"user": user},
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// POST /api/users/change-password
func ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	db := database.DB

	var user models.User
	if err := db.First(&user, p.ID).Error; err != nil {
		writeServiceError(w, "change-password", err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Текущий пароль неверен"})
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, "change-password", err)
		return
	}
	if err := db.Model(&user).Update("password", string(hashed)).Error; err != nil {
		writeServiceError(w, "change-password", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Пароль изменён"})
}
