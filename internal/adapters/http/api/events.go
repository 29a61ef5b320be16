package api

import (
	"net/http"

	"github.com/okian/ringside/internal/domain/model"
)

// EventsHandler handles event intake.
type EventsHandler struct {
	deps      Dependencies
	validator *validator
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, v *validator) *EventsHandler {
	return &EventsHandler{deps: deps, validator: v}
}

// HandlePostEvent handles POST /events. Retries of an accepted event answer 200 with is_duplicate set.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	var e model.CombatEvent
	if err := h.validator.decode(r, schemaEvent, &e); err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.SubmitEvent(r.Context(), e)
	if err != nil {
		fail(w, err)
		return
	}
	status := http.StatusCreated
	if res.IsDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

type detectionsRequest struct {
	Detections []model.CombatEvent `json:"detections"`
}

// HandlePostDetections handles POST /detections.
func (h *EventsHandler) HandlePostDetections(w http.ResponseWriter, r *http.Request) {
	var req detectionsRequest
	if err := h.validator.decode(r, schemaDetections, &req); err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.SubmitDetections(r.Context(), req.Detections)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
