package users

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// TaskController exposes the lifecycle engine over HTTP. The engine is
// injected, not reached through a global.
type TaskController struct {
	engine *services.Lifecycle
}

func NewTaskController(engine *services.Lifecycle) *TaskController {
	return &TaskController{engine: engine}
}

type CreateTaskRequest struct {
	Title        string     `json:"title" validate:"required,min=5,max=150"`
	Description  string     `json:"description" validate:"required,min=10,max=5000"`
	Category     string     `json:"category" validate:"required,max=50"`
	Subcategory  *string    `json:"subcategory,omitempty" validate:"omitempty,max=50"`
	BudgetType   string     `json:"budget_type" validate:"required,oneof=fixed negotiable"`
	BudgetAmount *float64   `json:"budget_amount,omitempty" validate:"omitempty,gt=0"`
	City         string     `json:"city" validate:"required,max=100"`
	Address      *string    `json:"address,omitempty" validate:"omitempty,max=255"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Urgent       bool       `json:"urgent"`
}

// POST /api/tasks
func (c *TaskController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	task, err := c.engine.CreateTask(p.ID, services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Subcategory:  req.Subcategory,
		BudgetType:   req.BudgetType,
		BudgetAmount: req.BudgetAmount,
		City:         req.City,
		Address:      req.Address,
		DueDate:      req.DueDate,
		Urgent:       req.Urgent,
	})
	if err != nil {
		writeServiceError(w, "task-create", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Задание опубликовано",
		Data:    map[string]interface{}{"task": task},
	})
}

// GET /api/tasks: open tasks, optional category/city/status filters.
func (c *TaskController) ListHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	q := db.Model(&models.Task{})

	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.TaskOpen
	}
	q = q.Where("status = ?", status)
	if cat := r.URL.Query().Get("category"); cat != "" {
		q = q.Where("category = ?", cat)
	}
	if city := r.URL.Query().Get("city"); city != "" {
		q = q.Where("city = ?", city)
	}

	var tasks []models.Task
	if err := q.Order("id DESC").Limit(100).Find(&tasks).Error; err != nil {
		writeServiceError(w, "task-list", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"tasks": tasks},
	})
}

// GET /api/tasks/{id}: the owner additionally sees the task's responses.
func (c *TaskController) GetHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := database.DB

	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Задание не найдено"})
			return
		}
		writeServiceError(w, "task-get", err)
		return
	}

	data := map[string]interface{}{"task": task}

	if p, ok := utils.GetPrincipal(r); ok && p.ID == task.UserID {
		var responses []models.Response
		if err := db.Where("task_id = ?", task.ID).Order("id ASC").Find(&responses).Error; err != nil {
			writeServiceError(w, "task-get", err)
			return
		}
		data["responses"] = responses
	}
	if task.Status == models.TaskCompleted {
		var review models.Review
		if err := db.Where("task_id = ?", task.ID).First(&review).Error; err == nil {
			data["review"] = review
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: data})
}

type AcceptRequest struct {
	TaskID     uint `json:"task_id" validate:"required"`
	ProviderID uint `json:"provider_id" validate:"required"`
}

// POST /api/tasks/accept
func (c *TaskController) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req AcceptRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := c.engine.AcceptResponse(p.ID, req.TaskID, req.ProviderID)
	if err != nil {
		writeServiceError(w, "task-accept", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Исполнитель назначен",
		Data:    map[string]interface{}{"task": task},
	})
}

type TaskIDRequest struct {
	TaskID uint `json:"task_id" validate:"required"`
}

// POST /api/tasks/complete
func (c *TaskController) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req TaskIDRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := c.engine.CompleteTask(p.ID, req.TaskID)
	if err != nil {
		writeServiceError(w, "task-complete", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Задание завершено",
		Data:    map[string]interface{}{"task": task},
	})
}

// POST /api/tasks/cancel
func (c *TaskController) CancelHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req TaskIDRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := c.engine.CancelTask(p.ID, req.TaskID)
	if err != nil {
		writeServiceError(w, "task-cancel", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Задание отменено",
		Data:    map[string]interface{}{"task": task},
	})
}

// GET /api/tasks/{id}/history
func (c *TaskController) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	events, err := c.engine.TaskHistory(taskID)
	if err != nil {
		writeServiceError(w, "task-history", err)
		return
	}
	history := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		history = append(history, map[string]interface{}{
			"status":      e.Status,
			"timestamp":   e.CreatedAt,
			"description": e.Description,
		})
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"history": history},
	})
}
