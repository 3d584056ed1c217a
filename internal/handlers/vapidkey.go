package handlers

import "net/http"

// VAPIDKeyResponse carries the application server key clients pass to
// pushManager.subscribe.
type VAPIDKeyResponse struct {
	Key string `json:"key"`
}

// VAPIDPublicKey handles the subscription bootstrap endpoint.
func (h *Handler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidKey == "" {
		h.Error(w, http.StatusServiceUnavailable, "web push is not configured")
		return
	}
	h.JSON(w, http.StatusOK, VAPIDKeyResponse{Key: h.vapidKey})
}
