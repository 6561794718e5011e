package auth

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
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

// Controller holds the auth flow collaborators. SMS/email senders and the
// login guard are injected so tests can swap in fakes.
type Controller struct {
	sms   utils.SMSSender
	mail  utils.MailSender
	guard *middleware.LoginGuard
}

func NewController(sms utils.SMSSender, mail utils.MailSender, guard *middleware.LoginGuard) *Controller {
	return &Controller{sms: sms, mail: mail, guard: guard}
}

type RegisterRequest struct {
	Name                 string  `json:"name" validate:"required,min=2,max=100"`
	Email                string  `json:"email" validate:"required,email,max=120"`
	Phone                string  `json:"phone" validate:"required,min=7,max=20"`
	Password             string  `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirmation string  `json:"password_confirmation" validate:"required,eqfield=Password"`
	Role                 string  `json:"role" validate:"required,oneof=CUSTOMER PROVIDER"`
	City                 *string `json:"city,omitempty" validate:"omitempty,max=100"`
}

// POST /api/auth/register
func (c *Controller) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	db := database.DB

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Эта почта уже зарегистрирована"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking email: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if err := db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Этот номер телефона уже зарегистрирован"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking phone: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
		City:     req.City,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Printf("[register] DB Create user error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Регистрация не удалась, попробуйте ещё раз"})
		return
	}

	code, err := generateCode(6)
	if err != nil {
		log.Printf("[register] generateCode error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	vc := models.VerificationCode{
		UserID:    user.ID,
		Phone:     user.Phone,
		Code:      code,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := db.Create(&vc).Error; err != nil {
		log.Printf("[register] DB Create verification code error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	// SMS failure is a request-level error, not swallowed
	if err := c.sms.Send(user.Phone, "Dastiyor: код подтверждения "+code); err != nil {
		log.Printf("[register] sms send failed: %v", err)
		utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{Success: false, Message: "Не удалось отправить SMS. Попробуйте позже"})
		return
	}

	token, err := utils.GenerateSessionToken(&user)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Не удалось создать сессию"})
		return
	}
	utils.SetSessionCookie(w, token)

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Регистрация прошла успешно. Мы отправили код подтверждения по SMS",
		Data:    map[string]interface{}{"user": user},
	})
}

type VerifyPhoneRequest struct {
	Phone string `json:"phone" validate:"required,min=7,max=20"`
	Code  string `json:"code" validate:"required,len=6"`
}

// POST /api/auth/verify-phone
func (c *Controller) VerifyPhoneHandler(w http.ResponseWriter, r *http.Request) {
	var req VerifyPhoneRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	db := database.DB

	var vc models.VerificationCode
	err := db.Where("phone = ? AND code = ? AND used = ?", strings.TrimSpace(req.Phone), req.Code, false).
		Order("id DESC").First(&vc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Неверный код подтверждения"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if time.Now().After(vc.ExpiresAt) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Код подтверждения истёк"})
		return
	}

	if err := db.Model(&vc).Update("used", true).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if err := db.Model(&models.User{}).Where("id = ?", vc.UserID).Update("phone_verified", true).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Телефон подтверждён"})
}

func generateCode(digits int) (string, error) {
	out := make([]byte, digits)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}
