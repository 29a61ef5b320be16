// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/adapters/repository"
	service "github.com/okian/ringside/internal/app"
	"github.com/okian/ringside/internal/domain/audit"
	"github.com/okian/ringside/internal/domain/hybrid"
	"github.com/okian/ringside/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SubmitEvent(ctx context.Context, e model.CombatEvent) (service.SubmitResult, error)
	SubmitDetections(ctx context.Context, batch []model.CombatEvent) (service.DetectionResult, error)

	OpenRound(ctx context.Context, boutID string, round int) (model.AuditEntry, error)
	ComputeRoundScore(ctx context.Context, boutID string, round int) (hybrid.Result, error)
	FinalizeRound(ctx context.Context, boutID string, round int, actor string) (service.FinalizeResult, error)
	VerifyLedger(ctx context.Context, boutID string, round int) (model.VerificationResult, error)

	AppendAudit(ctx context.Context, boutID, eventType string, payload json.RawMessage, actor string) (model.AuditEntry, error)
	AuditEntries(ctx context.Context, boutID string) ([]model.AuditEntry, error)
	VerifyAudit(ctx context.Context, boutID string) (model.VerificationResult, error)
	VerifyAuditStrict(ctx context.Context, boutID string) (model.VerificationResult, error)
	CloseBout(ctx context.Context, boutID, actor string) (service.CloseResult, error)

	Subscribe(ctx context.Context, boutID string) (*broadcast.Subscription, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
	roundsHandler *RoundsHandler
	boutsHandler  *BoutsHandler
	streamHandler *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) (*Server, error) {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		eventsHandler: NewEventsHandler(deps, v),
		roundsHandler: NewRoundsHandler(deps, v),
		boutsHandler:  NewBoutsHandler(deps, v),
		streamHandler: NewStreamHandler(deps, cfg.logger, cfg.pingInterval),
	}, nil
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("POST /detections", MetricsMiddleware(s.eventsHandler.HandlePostDetections, "detections"))

	mux.HandleFunc("POST /bouts/{bout}/rounds/{round}/open", MetricsMiddleware(s.roundsHandler.HandleOpen, "round_open"))
	mux.HandleFunc("GET /bouts/{bout}/rounds/{round}/score", MetricsMiddleware(s.roundsHandler.HandleScore, "round_score"))
	mux.HandleFunc("POST /bouts/{bout}/rounds/{round}/finalize", MetricsMiddleware(s.roundsHandler.HandleFinalize, "round_finalize"))
	mux.HandleFunc("GET /bouts/{bout}/rounds/{round}/ledger/verify", MetricsMiddleware(s.roundsHandler.HandleVerifyLedger, "ledger_verify"))

	mux.HandleFunc("POST /bouts/{bout}/audit", MetricsMiddleware(s.boutsHandler.HandleAppendAudit, "audit_append"))
	mux.HandleFunc("GET /bouts/{bout}/audit", MetricsMiddleware(s.boutsHandler.HandleAuditEntries, "audit_entries"))
	mux.HandleFunc("GET /bouts/{bout}/audit/verify", MetricsMiddleware(s.boutsHandler.HandleVerifyAudit, "audit_verify"))
	mux.HandleFunc("POST /bouts/{bout}/close", MetricsMiddleware(s.boutsHandler.HandleClose, "bout_close"))

	mux.HandleFunc("GET /bouts/{bout}/stream", MetricsMiddleware(s.streamHandler.HandleStream, "stream"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	resp := errorResponse{Code: code, Message: msg}
	if err != nil {
		resp.Message = err.Error()
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

// fail maps a service error onto its HTTP status.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrSchema),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, audit.ErrInvalidPayload),
		errors.Is(err, audit.ErrMissingBout),
		errors.Is(err, audit.ErrMissingEventType):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, audit.ErrChainNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBoutClosed):
		return http.StatusConflict, "bout_closed"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, audit.ErrTamperDetected):
		return http.StatusConflict, "tampered"
	case errors.Is(err, service.ErrEngineNotInitialized),
		errors.Is(err, broadcast.ErrHubClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// roundParams reads {bout} and {round} from the request path.
func roundParams(r *http.Request) (string, int, error) {
	bout := r.PathValue("bout")
	round, err := strconv.Atoi(r.PathValue("round"))
	if err != nil {
		return "", 0, &model.ValidationError{Field: "round", Reason: "must be an integer"}
	}
	return bout, round, nil
}
