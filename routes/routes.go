package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/BalwinderCa/dastiyor-sub001/controllers/admins"
	"github.com/BalwinderCa/dastiyor-sub001/controllers/auth"
	"github.com/BalwinderCa/dastiyor-sub001/controllers/users"
	"github.com/BalwinderCa/dastiyor-sub001/database"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// InitRouter wires the controllers with their injected collaborators and
// registers all routes under /api.
func InitRouter() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"service":   "dastiyor-api",
		})
	})).Methods(http.MethodGet)

	origins := []string{"https://dastiyor.tj", "http://localhost:3000", "http://127.0.0.1:3000"}
	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		for _, p := range strings.Split(originsEnv, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	// shared collaborators
	store := middleware.DefaultStore()
	guard := middleware.NewLoginGuard(utils.RedisClient)
	notifier := services.NewDBNotifier(database.DB)
	engine := services.NewLifecycle(database.DB, notifier)
	subs := services.NewSubscriptions(database.DB)

	authCtl := auth.NewController(utils.NewStubSMS(), utils.NewStubMailer(), guard)
	taskCtl := users.NewTaskController(engine)
	subCtl := users.NewSubscriptionController(subs)
	msgCtl := users.NewMessageController(notifier)
	adminTaskCtl := admins.NewTaskController(engine)

	UsersRoutes(api, store, authCtl, taskCtl, subCtl, msgCtl)
	AdminRoutes(api, store, adminTaskCtl)

	return r
}
