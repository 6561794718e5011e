package users

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

type CreateReviewRequest struct {
	TaskID  uint    `json:"task_id" validate:"required"`
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// POST /api/reviews
func (c *TaskController) CreateReviewHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req CreateReviewRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	review, err := c.engine.SubmitReview(p.ID, req.TaskID, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, "review-create", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Отзыв сохранён",
		Data:    map[string]interface{}{"review": review},
	})
}

// GET /api/users/{id}/reviews: reviews of a provider, with the average
// rating.
func ProviderReviewsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := database.DB

	var reviews []models.Review
	if err := db.Where("reviewed_id = ?", userID).Order("id DESC").Find(&reviews).Error; err != nil {
		writeServiceError(w, "review-list", err)
		return
	}

	var avg float64
	db.Model(&models.Review{}).
		Where("reviewed_id = ?", userID).
		Select("COALESCE(AVG(rating),0)").Scan(&avg)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"reviews":        reviews,
			"average_rating": avg,
			"count":          len(reviews),
		},
	})
}
