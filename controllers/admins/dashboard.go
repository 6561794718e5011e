package admins

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// GET /api/admin/dashboard: headline counts for the back office.
func DashboardHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB

	usersByRole := map[string]int64{}
	for _, role := range []string{models.RoleCustomer, models.RoleProvider, models.RoleAdmin} {
		var n int64
		if err := db.Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
			writeServiceError(w, "admin-dashboard", err)
			return
		}
		usersByRole[role] = n
	}

	tasksByStatus := map[string]int64{}
	for _, status := range []string{models.TaskOpen, models.TaskInProgress, models.TaskCompleted, models.TaskCancelled} {
		var n int64
		if err := db.Model(&models.Task{}).Where("status = ?", status).Count(&n).Error; err != nil {
			writeServiceError(w, "admin-dashboard", err)
			return
		}
		tasksByStatus[status] = n
	}

	var responses, reviews, activeSubs int64
	db.Model(&models.Response{}).Count(&responses)
	db.Model(&models.Review{}).Count(&reviews)
	db.Model(&models.Subscription{}).Where("is_active = ?", true).Count(&activeSubs)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"users_by_role":        usersByRole,
			"tasks_by_status":      tasksByStatus,
			"responses_total":      responses,
			"reviews_total":        reviews,
			"active_subscriptions": activeSubs,
		},
	})
}
