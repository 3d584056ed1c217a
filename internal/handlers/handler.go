package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/famcash/push-server/internal/push"
	"github.com/famcash/push-server/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	registry   store.Registry
	redis      *store.RedisStore
	dispatcher *push.Dispatcher
	vapidKey   string // base64url public key handed to subscribing clients
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(registry store.Registry, redis *store.RedisStore, dispatcher *push.Dispatcher, vapidKey string) *Handler {
	return &Handler{
		registry:   registry,
		redis:      redis,
		dispatcher: dispatcher,
		vapidKey:   vapidKey,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
