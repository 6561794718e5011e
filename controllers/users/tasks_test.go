package users

import (
	"bytes"
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

type testEnv struct {
	db     *gorm.DB
	engine *services.Lifecycle
	ctl    *TaskController
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	// list/get handlers read the package-level connection
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	engine := services.NewLifecycle(db, services.NopNotifier{})
	return &testEnv{db: db, engine: engine, ctl: NewTaskController(engine)}
}

func (e *testEnv) user(t *testing.T, role string) *models.User {
	t.Helper()
	u := models.User{
		Name:     "Test " + role,
		Email:    fmt.Sprintf("%s-%d@example.com", strings.ToLower(role), time.Now().UnixNano()),
		Phone:    fmt.Sprintf("+9929%09d", time.Now().UnixNano()%1e9),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, e.db.Create(&u).Error)
	return &u
}

func postJSON(t *testing.T, path string, body interface{}, as *models.User) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req = utils.WithPrincipal(req, utils.Principal{ID: as.ID, Email: as.Email, Role: as.Role})
	}
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateTaskHandler(t *testing.T) {
	env := newEnv(t)
	owner := env.user(t, models.RoleCustomer)

	t.Run("valid payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CreateHandler(rec, postJSON(t, "/api/tasks", map[string]interface{}{
			"title":       "Починить кран на кухне",
			"description": "Течёт кран, нужен сантехник",
			"category":    "plumbing",
			"budget_type": "negotiable",
			"city":        "Душанбе",
		}, owner))
		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeEnvelope(t, rec)
		require.True(t, resp.Success)

		var count int64
		require.NoError(t, env.db.Model(&models.Task{}).Where("user_id = ?", owner.ID).Count(&count).Error)
		require.Equal(t, int64(1), count)
	})

	t.Run("short title fails validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CreateHandler(rec, postJSON(t, "/api/tasks", map[string]interface{}{
			"title":       "Кран",
			"description": "Течёт кран, нужен сантехник",
			"category":    "plumbing",
			"budget_type": "negotiable",
			"city":        "Душанбе",
		}, owner))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.False(t, decodeEnvelope(t, rec).Success)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CreateHandler(rec, postJSON(t, "/api/tasks", map[string]interface{}{
			"title":       "Починить кран на кухне",
			"description": "Течёт кран, нужен сантехник",
			"category":    "plumbing",
			"budget_type": "negotiable",
			"city":        "Душанбе",
			"status":      "COMPLETED",
		}, owner))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("fixed budget without amount", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CreateHandler(rec, postJSON(t, "/api/tasks", map[string]interface{}{
			"title":       "Сборка шкафа на дому",
			"description": "Собрать шкаф из магазина",
			"category":    "assembly",
			"budget_type": "fixed",
			"city":        "Душанбе",
		}, owner))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CreateHandler(rec, postJSON(t, "/api/tasks", map[string]interface{}{}, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListAndGetTaskHandlers(t *testing.T) {
	env := newEnv(t)
	owner := env.user(t, models.RoleCustomer)
	provider := env.user(t, models.RoleProvider)

	task, err := env.engine.CreateTask(owner.ID, services.CreateTaskInput{
		Title:       "Починить кран",
		Description: "Течёт кран на кухне",
		Category:    "plumbing",
		BudgetType:  models.BudgetNegotiable,
		City:        "Душанбе",
	})
	require.NoError(t, err)
	_, err = env.engine.CreateResponse(provider.ID, task.ID, nil, "Готов выполнить")
	require.NoError(t, err)

	t.Run("list defaults to open tasks", func(t *testing.T) {
		cancelled, err := env.engine.CreateTask(owner.ID, services.CreateTaskInput{
			Title:       "Отменённое задание",
			Description: "Будет отменено сразу",
			Category:    "other",
			BudgetType:  models.BudgetNegotiable,
			City:        "Душанбе",
		})
		require.NoError(t, err)
		_, err = env.engine.CancelTask(owner.ID, cancelled.ID)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		env.ctl.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeEnvelope(t, rec)
		data := resp.Data.(map[string]interface{})
		tasks := data["tasks"].([]interface{})
		require.Len(t, tasks, 1)
	})

	t.Run("owner sees responses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
		req = utils.WithPrincipal(req, utils.Principal{ID: owner.ID, Role: owner.Role})
		req = mux.SetURLVars(req, map[string]string{"id": fmt.Sprint(task.ID)})
		rec := httptest.NewRecorder()
		env.ctl.GetHandler(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.Contains(t, data, "responses")
	})

	t.Run("stranger does not see responses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
		req = utils.WithPrincipal(req, utils.Principal{ID: provider.ID, Role: provider.Role})
		req = mux.SetURLVars(req, map[string]string{"id": fmt.Sprint(task.ID)})
		rec := httptest.NewRecorder()
		env.ctl.GetHandler(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.NotContains(t, data, "responses")
	})

	t.Run("missing task", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/99999", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "99999"})
		rec := httptest.NewRecorder()
		env.ctl.GetHandler(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTaskTransitionHandlers(t *testing.T) {
	env := newEnv(t)
	owner := env.user(t, models.RoleCustomer)
	provider := env.user(t, models.RoleProvider)

	task, err := env.engine.CreateTask(owner.ID, services.CreateTaskInput{
		Title:       "Починить кран",
		Description: "Течёт кран на кухне",
		Category:    "plumbing",
		BudgetType:  models.BudgetNegotiable,
		City:        "Душанбе",
	})
	require.NoError(t, err)
	_, err = env.engine.CreateResponse(provider.ID, task.ID, nil, "Готов")
	require.NoError(t, err)

	t.Run("complete before accept fails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CompleteHandler(rec, postJSON(t, "/api/tasks/complete",
			map[string]interface{}{"task_id": task.ID}, owner))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("accept assigns the provider", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.AcceptHandler(rec, postJSON(t, "/api/tasks/accept",
			map[string]interface{}{"task_id": task.ID, "provider_id": provider.ID}, owner))
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, decodeEnvelope(t, rec).Success)
	})

	t.Run("cancel an in-progress task fails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CancelHandler(rec, postJSON(t, "/api/tasks/cancel",
			map[string]interface{}{"task_id": task.ID}, owner))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("complete finishes the task", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.ctl.CompleteHandler(rec, postJSON(t, "/api/tasks/complete",
			map[string]interface{}{"task_id": task.ID}, owner))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("history lists every transition", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/tasks/%d/history", task.ID), nil)
		req = mux.SetURLVars(req, map[string]string{"id": fmt.Sprint(task.ID)})
		rec := httptest.NewRecorder()
		env.ctl.HistoryHandler(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec).Data.(map[string]interface{})
		history := data["history"].([]interface{})
		require.Len(t, history, 3)
		first := history[0].(map[string]interface{})
		require.Equal(t, models.TaskOpen, first["status"])
	})
}
