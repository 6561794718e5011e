package users

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/BalwinderCa/dastiyor-sub001/services"
	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// writeServiceError maps a domain error to its HTTP status; anything else is
// logged server-side and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, tag string, err error) {
	if services.IsDomain(err) {
		utils.WriteJSON(w, services.HTTPStatus(err), utils.APIResponse{Success: false, Message: err.Error()})
		return
	}
	log.Printf("[%s] %v", tag, err)
	utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
}

// pathID extracts a numeric {name} path variable; writes the 400 itself.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Некорректный идентификатор"})
		return 0, false
	}
	return uint(id), true
}

// principal reads the authenticated identity set by RequireAuth, answering
// 401 when it is missing.
func principal(w http.ResponseWriter, r *http.Request) (utils.Principal, bool) {
	p, ok := utils.GetPrincipal(r)
	if !ok || p.ID == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return utils.Principal{}, false
	}
	return p, true
}
