package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/BalwinderCa/dastiyor-sub001/controllers/auth"
	"github.com/BalwinderCa/dastiyor-sub001/controllers/users"
	"github.com/BalwinderCa/dastiyor-sub001/middleware"
)

// UsersRoutes registers the public and customer/provider facing endpoints.
func UsersRoutes(api *mux.Router, store middleware.Store,
	authCtl *auth.Controller, taskCtl *users.TaskController,
	subCtl *users.SubscriptionController, msgCtl *users.MessageController) {

	// auth endpoints are throttled per IP, everything behind a session per user
	authLimiter := middleware.NewIPLimiter(store, 30, 5*time.Minute)
	userLimiter := middleware.NewUserLimiter(store, 120, time.Minute)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(userLimiter.Middleware(h))
	}

	// Auth
	api.Handle("/auth/register", authLimiter.Middleware(http.HandlerFunc(authCtl.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/auth/verify-phone", authLimiter.Middleware(http.HandlerFunc(authCtl.VerifyPhoneHandler))).Methods(http.MethodPost)
	api.Handle("/auth/login", authLimiter.Middleware(http.HandlerFunc(authCtl.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/auth/logout", authed(authCtl.LogoutHandler)).Methods(http.MethodPost)
	api.Handle("/auth/forgot-password", authLimiter.Middleware(http.HandlerFunc(authCtl.ForgotPasswordHandler))).Methods(http.MethodPost)
	api.Handle("/auth/reset-password", authLimiter.Middleware(http.HandlerFunc(authCtl.ResetPasswordHandler))).Methods(http.MethodPost)

	// Tasks and lifecycle
	api.Handle("/tasks", http.HandlerFunc(taskCtl.ListHandler)).Methods(http.MethodGet)
	api.Handle("/tasks", authed(taskCtl.CreateHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/accept", authed(taskCtl.AcceptHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/complete", authed(taskCtl.CompleteHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/cancel", authed(taskCtl.CancelHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}", http.HandlerFunc(taskCtl.GetHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/{id:[0-9]+}/history", http.HandlerFunc(taskCtl.HistoryHandler)).Methods(http.MethodGet)

	// Responses
	api.Handle("/tasks/{id:[0-9]+}/responses", authed(taskCtl.CreateResponseHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}/responses", authed(taskCtl.ListResponsesHandler)).Methods(http.MethodGet)
	api.Handle("/responses/reject", authed(taskCtl.RejectResponseHandler)).Methods(http.MethodPost)

	// Reviews
	api.Handle("/reviews", authed(taskCtl.CreateReviewHandler)).Methods(http.MethodPost)
	api.Handle("/users/{id:[0-9]+}/reviews", http.HandlerFunc(users.ProviderReviewsHandler)).Methods(http.MethodGet)

	// Messaging
	api.Handle("/messages", authed(msgCtl.SendHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}/messages/{peer:[0-9]+}", authed(msgCtl.ConversationHandler)).Methods(http.MethodGet)

	// Notifications
	api.Handle("/notifications", authed(users.ListNotificationsHandler)).Methods(http.MethodGet)
	api.Handle("/notifications/read-all", authed(users.MarkAllNotificationsReadHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/{id:[0-9]+}/read", authed(users.MarkNotificationReadHandler)).Methods(http.MethodPost)

	// Subscription
	api.Handle("/subscription", authed(subCtl.GetHandler)).Methods(http.MethodGet)
	api.Handle("/subscription", authed(subCtl.PurchaseHandler)).Methods(http.MethodPost)
	api.Handle("/subscription", authed(subCtl.CancelHandler)).Methods(http.MethodDelete)

	// Profile
	api.Handle("/users/info", authed(users.InfoHandler)).Methods(http.MethodGet)
	api.Handle("/users/profile", authed(users.UpdateProfileHandler)).Methods(http.MethodPut)
	api.Handle("/users/change-password", authed(users.ChangePasswordHandler)).Methods(http.MethodPost)
}
