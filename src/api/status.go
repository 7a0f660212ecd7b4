package api

import (
	"net/http"

	"sp2any/src/fleet"
)

// StatusHandler serves GET /v1/users/me/status: the caller's current
// per-platform updater status map.
type StatusHandler struct {
	Fleet *fleet.Manager
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	statuses, err := h.Fleet.GetUpdatersStatuses(userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no updaters running for this user")
		return
	}
	writeSuccess(w, http.StatusOK, statuses)
}
