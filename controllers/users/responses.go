package users

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

type CreateResponseRequest struct {
	Price   *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Message string   `json:"message" validate:"required,min=5,max=2000"`
}

// POST /api/tasks/{id}/responses: provider-only.
func (c *TaskController) CreateResponseHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if p.Role != models.RoleProvider {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Откликаться могут только исполнители"})
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CreateResponseRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	resp, err := c.engine.CreateResponse(p.ID, taskID, req.Price, req.Message)
	if err != nil {
		writeServiceError(w, "response-create", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Отклик отправлен",
		Data:    map[string]interface{}{"response": resp},
	})
}

// GET /api/tasks/{id}/responses: the owner sees all responses, a provider
// sees only their own.
func (c *TaskController) ListResponsesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := database.DB

	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Задание не найдено"})
		return
	}

	q := db.Where("task_id = ?", taskID)
	if task.UserID != p.ID {
		q = q.Where("user_id = ?", p.ID)
	}
	var responses []models.Response
	if err := q.Order("id ASC").Find(&responses).Error; err != nil {
		writeServiceError(w, "response-list", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"responses": responses},
	})
}

type RejectResponseRequest struct {
	ResponseID uint `json:"response_id" validate:"required"`
}

// POST /api/responses/reject
func (c *TaskController) RejectResponseHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req RejectResponseRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	resp, err := c.engine.RejectResponse(p.ID, req.ResponseID)
	if err != nil {
		writeServiceError(w, "response-reject", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Отклик отклонён",
		Data:    map[string]interface{}{"response": resp},
	})
}
