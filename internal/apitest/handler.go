package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// eventHandler translates REST requests to and from the service.
type eventHandler struct {
	svc    *eventService
	viewer func(r *http.Request) (string, bool)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func eventID(r *http.Request) model.ID {
	return model.ID(chi.URLParam(r, "id"))
}

// storeError maps store sentinels onto HTTP statuses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, "you are already subscribed to this event")
	case errors.Is(err, ErrNotSubscribed):
		writeError(w, http.StatusConflict, "you are not subscribed to this event")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// requireViewer writes 401 and returns false when the request carries no
// usable bearer token.
func (h *eventHandler) requireViewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := h.viewer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return email, true
}

// listEvents handles GET /events.
func (h *eventHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.store.List())
}

// getEvent handles GET /events/{id}.
func (h *eventHandler) getEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.store.Get(eventID(r))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// createEvent handles POST /events.
func (h *eventHandler) createEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireViewer(w, r); !ok {
		return
	}
	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.svc.create(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// updateEvent handles PUT /events/{id}.
func (h *eventHandler) updateEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireViewer(w, r); !ok {
		return
	}
	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.svc.update(eventID(r), in)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// deleteEvent handles DELETE /events/{id}.
func (h *eventHandler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireViewer(w, r); !ok {
		return
	}
	if err := h.svc.store.Delete(eventID(r)); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkSubscription handles GET /events/{id}/subscriptions/check.
func (h *eventHandler) checkSubscription(w http.ResponseWriter, r *http.Request) {
	email, ok := h.requireViewer(w, r)
	if !ok {
		return
	}
	subscribed, err := h.svc.isSubscribed(eventID(r), email)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SubscriptionStatus{IsSubscribed: subscribed})
}

// subscribe handles POST /events/{id}/subscriptions.
func (h *eventHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.requireViewer(w, r)
	if !ok {
		return
	}
	if err := h.svc.subscribe(eventID(r), email); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// unsubscribe handles DELETE /events/{id}/subscriptions.
func (h *eventHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.requireViewer(w, r)
	if !ok {
		return
	}
	if err := h.svc.unsubscribe(eventID(r), email); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
