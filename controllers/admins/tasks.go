package admins

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// TaskController is the back-office view over the lifecycle engine.
type TaskController struct {
	engine *services.Lifecycle
}

func NewTaskController(engine *services.Lifecycle) *TaskController {
	return &TaskController{engine: engine}
}

// GET /api/admin/tasks: all tasks, optional status filter.
func (c *TaskController) ListHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	q := db.Model(&models.Task{})
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var tasks []models.Task
	if err := q.Order("id DESC").Limit(200).Find(&tasks).Error; err != nil {
		writeServiceError(w, "admin-tasks", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"tasks": tasks},
	})
}

// POST /api/admin/tasks/{id}/cancel: force-cancel an OPEN task (moderation).
func (c *TaskController) CancelHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := utils.GetPrincipal(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := c.engine.ForceCancelTask(p.ID, id)
	if err != nil {
		writeServiceError(w, "admin-task-cancel", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Задание отменено",
		Data:    map[string]interface{}{"task": task},
	})
}
