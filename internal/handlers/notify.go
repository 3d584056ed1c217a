package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/famcash/push-server/internal/models"
	"github.com/famcash/push-server/internal/push"
)

// Notify handles a delivery request: fan one notification out to every
// endpoint registered under the family, minus the sender's own device.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	var req models.DeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.dispatcher.Deliver(r.Context(), req)
	if err != nil {
		var ve *push.ValidationError
		if errors.As(err, &ve) {
			h.Error(w, http.StatusBadRequest, ve.Error())
			return
		}
		var re *push.RegistryError
		if errors.As(err, &re) {
			h.Error(w, http.StatusInternalServerError, "failed to load endpoints")
			return
		}
		h.Error(w, http.StatusInternalServerError, "delivery failed")
		return
	}

	h.JSON(w, http.StatusOK, result)
}
