package admins

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

func setupAdmin(t *testing.T) (*gorm.DB, *services.Lifecycle) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	return db, services.NewLifecycle(db, services.NopNotifier{})
}

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	u := models.User{
		Name:     "Test " + role,
		Email:    fmt.Sprintf("%s-%d@example.com", strings.ToLower(role), time.Now().UnixNano()),
		Phone:    fmt.Sprintf("+9929%09d", time.Now().UnixNano()%1e9),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestBlockUnblockUser(t *testing.T) {
	db, _ := setupAdmin(t)
	target := seedUser(t, db, models.RoleProvider)

	withVar := func(h http.HandlerFunc, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/users/"+id+"/block", nil)
		req = mux.SetURLVars(req, map[string]string{"id": id})
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	rec := withVar(BlockUserHandler, fmt.Sprint(target.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	require.True(t, fresh.Blocked)

	rec = withVar(UnblockUserHandler, fmt.Sprint(target.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, db.First(&fresh, target.ID).Error)
	require.False(t, fresh.Blocked)

	require.Equal(t, http.StatusNotFound, withVar(BlockUserHandler, "99999").Code)
	require.Equal(t, http.StatusBadRequest, withVar(BlockUserHandler, "abc").Code)
}

func TestUserListFilter(t *testing.T) {
	db, _ := setupAdmin(t)
	seedUser(t, db, models.RoleCustomer)
	seedUser(t, db, models.RoleProvider)
	seedUser(t, db, models.RoleProvider)

	rec := httptest.NewRecorder()
	UserListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users?role=PROVIDER", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := envelope(t, rec).Data.(map[string]interface{})
	require.Len(t, data["users"].([]interface{}), 2)
}

func TestAdminForceCancel(t *testing.T) {
	db, engine := setupAdmin(t)
	ctl := NewTaskController(engine)

	owner := seedUser(t, db, models.RoleCustomer)
	admin := seedUser(t, db, models.RoleAdmin)
	task, err := engine.CreateTask(owner.ID, services.CreateTaskInput{
		Title:       "Починить кран",
		Description: "Течёт кран на кухне",
		Category:    "plumbing",
		BudgetType:  models.BudgetNegotiable,
		City:        "Душанбе",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/admin/tasks/%d/cancel", task.ID), nil)
	req = utils.WithPrincipal(req, utils.Principal{ID: admin.ID, Role: models.RoleAdmin})
	req = mux.SetURLVars(req, map[string]string{"id": fmt.Sprint(task.ID)})
	rec := httptest.NewRecorder()
	ctl.CancelHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh models.Task
	require.NoError(t, db.First(&fresh, task.ID).Error)
	require.Equal(t, models.TaskCancelled, fresh.Status)

	// a second cancel hits the terminal-state guard
	rec = httptest.NewRecorder()
	ctl.CancelHandler(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardCounts(t *testing.T) {
	db, engine := setupAdmin(t)
	owner := seedUser(t, db, models.RoleCustomer)
	provider := seedUser(t, db, models.RoleProvider)

	task, err := engine.CreateTask(owner.ID, services.CreateTaskInput{
		Title:       "Починить кран",
		Description: "Течёт кран на кухне",
		Category:    "plumbing",
		BudgetType:  models.BudgetNegotiable,
		City:        "Душанбе",
	})
	require.NoError(t, err)
	_, err = engine.CreateResponse(provider.ID, task.ID, nil, "Готов")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	DashboardHandler(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := envelope(t, rec).Data.(map[string]interface{})
	usersByRole := data["users_by_role"].(map[string]interface{})
	require.Equal(t, float64(1), usersByRole[models.RoleCustomer])
	require.Equal(t, float64(1), usersByRole[models.RoleProvider])

	tasksByStatus := data["tasks_by_status"].(map[string]interface{})
	require.Equal(t, float64(1), tasksByStatus[models.TaskOpen])
	require.Equal(t, float64(1), data["responses_total"])
}
