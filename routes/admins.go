package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/BalwinderCa/dastiyor-sub001/controllers/admins"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
)

// AdminRoutes registers the back office under /api/admin, gated by role.
func AdminRoutes(api *mux.Router, store middleware.Store, taskCtl *admins.TaskController) {
	adminLimiter := middleware.NewUserLimiter(store, 300, time.Minute)

	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(middleware.RequireAdmin(adminLimiter.Middleware(h)))
	}

	api.Handle("/admin/dashboard", admin(admins.DashboardHandler)).Methods(http.MethodGet)
	api.Handle("/admin/users", admin(admins.UserListHandler)).Methods(http.MethodGet)
	api.Handle("/admin/users/{id:[0-9]+}/block", admin(admins.BlockUserHandler)).Methods(http.MethodPost)
	api.Handle("/admin/users/{id:[0-9]+}/unblock", admin(admins.UnblockUserHandler)).Methods(http.MethodPost)
	api.Handle("/admin/tasks", admin(taskCtl.ListHandler)).Methods(http.MethodGet)
	api.Handle("/admin/tasks/{id:[0-9]+}/cancel", admin(taskCtl.CancelHandler)).Methods(http.MethodPost)
}
