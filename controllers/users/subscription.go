package users

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// SubscriptionController exposes the provider entitlement window.
type SubscriptionController struct {
	subs *services.Subscriptions
}

func NewSubscriptionController(subs *services.Subscriptions) *SubscriptionController {
	return &SubscriptionController{subs: subs}
}

func requireProvider(w http.ResponseWriter, r *http.Request) (utils.Principal, bool) {
	p, ok := principal(w, r)
	if !ok {
		return utils.Principal{}, false
	}
	if p.Role != models.RoleProvider {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Подписка доступна только исполнителям"})
		return utils.Principal{}, false
	}
	return p, true
}

// GET /api/subscription
func (c *SubscriptionController) GetHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := requireProvider(w, r)
	if !ok {
		return
	}
	sub, err := c.subs.Current(p.ID)
	if err != nil {
		writeServiceError(w, "subscription-get", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"subscription": sub},
	})
}

type PurchaseRequest struct {
	Plan string `json:"plan" validate:"required,oneof=basic standard premium"`
}

// POST /api/subscription: create or renew; payment is simulated.
func (c *SubscriptionController) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := requireProvider(w, r)
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	sub, payment, err := c.subs.Purchase(p.ID, req.Plan)
	if err != nil {
		writeServiceError(w, "subscription-purchase", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Подписка оформлена",
		Data: map[string]interface{}{
			"subscription": sub,
			"payment":      payment,
		},
	})
}

// DELETE /api/subscription: soft cancel; access persists until end date.
func (c *SubscriptionController) CancelHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := requireProvider(w, r)
	if !ok {
		return
	}
	sub, err := c.subs.Cancel(p.ID)
	if err != nil {
		writeServiceError(w, "subscription-cancel", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Подписка отменена, доступ сохранится до конца оплаченного периода",
		Data:    map[string]interface{}{"subscription": sub},
	})
}
