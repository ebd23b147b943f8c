package handlers

import (
	"net/http"
)

type NotificationStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

// WSHandler upgrades authenticated clients to the notification stream.
type WSHandler struct {
	Hub NotificationStream
}

func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.Hub.ServeWS(w, r, userID)
}
