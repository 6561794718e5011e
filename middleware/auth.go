package middleware

import (
	"net/http"

	"github.com/BalwinderCa/dastiyor-sub001/models"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// RequireAuth resolves the session token (cookie first, Bearer fallback) into
// a principal and injects it into the request context. Stateless: the token
// is the only source of identity, there is no revocation list.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := utils.TokenFromRequest(r)
		if !ok {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
			return
		}
		p, err := utils.ParseSessionToken(tokenStr)
		if err != nil {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, utils.WithPrincipal(r, p))
	})
}

// RequireAdmin gates the back office. Must run inside RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := utils.GetPrincipal(r)
		if !ok {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
			return
		}
		if p.Role != models.RoleAdmin {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Доступ запрещён"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
