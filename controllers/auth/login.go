package auth

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// POST /api/auth/login
func (c *Controller) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if locked, retry := c.guard.Locked(req.Email); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: "Слишком много попыток входа. Попробуйте позже",
			Data:    map[string]interface{}{"retry_after_seconds": int(retry.Seconds())},
		})
		return
	}

	db := database.DB
	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.guard.RecordFailure(req.Email)
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Неверная почта или пароль"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	if user.Blocked {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Аккаунт заблокирован. Обратитесь в поддержку"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.guard.RecordFailure(req.Email)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Неверная почта или пароль"})
		return
	}

	c.guard.Reset(req.Email)

	token, err := utils.GenerateSessionToken(&user)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Не удалось создать сессию"})
		return
	}
	utils.SetSessionCookie(w, token)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Добро пожаловать!",
		Data:    map[string]interface{}{"user": user},
	})
}

// POST /api/auth/logout
func (c *Controller) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	utils.ClearSessionCookie(w)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Вы вышли из аккаунта"})
}
