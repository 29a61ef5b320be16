package api

import (
	"net/http"
)

// RoundsHandler serves per-round operations.
type RoundsHandler struct {
	deps      Dependencies
	validator *validator
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps Dependencies, v *validator) *RoundsHandler {
	return &RoundsHandler{deps: deps, validator: v}
}

type actorRequest struct {
	Actor string `json:"actor"`
}

// HandleOpen handles POST /bouts/{bout}/rounds/{round}/open.
func (h *RoundsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	bout, round, err := roundParams(r)
	if err != nil {
		fail(w, err)
		return
	}
	entry, err := h.deps.OpenRound(r.Context(), bout, round)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleScore handles GET /bouts/{bout}/rounds/{round}/score.
func (h *RoundsHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	bout, round, err := roundParams(r)
	if err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.ComputeRoundScore(r.Context(), bout, round)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleFinalize handles POST /bouts/{bout}/rounds/{round}/finalize.
func (h *RoundsHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	bout, round, err := roundParams(r)
	if err != nil {
		fail(w, err)
		return
	}
	var req actorRequest
	if err := h.validator.decode(r, schemaActor, &req); err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.FinalizeRound(r.Context(), bout, round, req.Actor)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVerifyLedger handles GET /bouts/{bout}/rounds/{round}/ledger/verify.
// A tampered ledger is a 200 with valid=false.
func (h *RoundsHandler) HandleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	bout, round, err := roundParams(r)
	if err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.VerifyLedger(r.Context(), bout, round)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
