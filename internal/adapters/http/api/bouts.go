package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// BoutsHandler serves the audit chain and bout lifecycle.
type BoutsHandler struct {
	deps      Dependencies
	validator *validator
}

// NewBoutsHandler creates a new bouts handler.
func NewBoutsHandler(deps Dependencies, v *validator) *BoutsHandler {
	return &BoutsHandler{deps: deps, validator: v}
}

type auditRequest struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Actor     string          `json:"actor"`
}

type auditEntriesResponse struct {
	BoutID  string `json:"bout_id"`
	Count   int    `json:"count"`
	Entries any    `json:"entries"`
}

// HandleAppendAudit handles POST /bouts/{bout}/audit.
func (h *BoutsHandler) HandleAppendAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := h.validator.decode(r, schemaAudit, &req); err != nil {
		fail(w, err)
		return
	}
	entry, err := h.deps.AppendAudit(r.Context(), r.PathValue("bout"), req.EventType, req.Payload, req.Actor)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleAuditEntries handles GET /bouts/{bout}/audit.
func (h *BoutsHandler) HandleAuditEntries(w http.ResponseWriter, r *http.Request) {
	bout := r.PathValue("bout")
	entries, err := h.deps.AuditEntries(r.Context(), bout)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditEntriesResponse{BoutID: bout, Count: len(entries), Entries: entries})
}

// HandleVerifyAudit handles GET /bouts/{bout}/audit/verify. Tampering is reported in the body,
// unless ?strict=true asks for a 409.
func (h *BoutsHandler) HandleVerifyAudit(w http.ResponseWriter, r *http.Request) {
	verify := h.deps.VerifyAudit
	if strict, _ := strconv.ParseBool(r.URL.Query().Get("strict")); strict {
		verify = h.deps.VerifyAuditStrict
	}
	res, err := verify(r.Context(), r.PathValue("bout"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleClose handles POST /bouts/{bout}/close.
func (h *BoutsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := h.validator.decode(r, schemaActor, &req); err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.CloseBout(r.Context(), r.PathValue("bout"), req.Actor)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
