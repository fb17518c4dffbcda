package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
	"github.com/dkozyrev/support-docs-bot/internal/observability/metrics"
)

const serviceName = "api"

type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	AcquireTimeout time.Duration
}

type Router struct {
	answer   ports.AnswerService
	status   ports.StatusReporter
	ingest   ports.DocumentIngestor
	docs     ports.DocumentReader
	sessions ports.SessionStore
	metrics  *metrics.HTTPServerMetrics
	mode     domain.RetrievalMode
	traffic  TrafficConfig
}

func NewRouter(
	answer ports.AnswerService,
	status ports.StatusReporter,
	ingest ports.DocumentIngestor,
	docs ports.DocumentReader,
	sessions ports.SessionStore,
	m *metrics.HTTPServerMetrics,
	mode domain.RetrievalMode,
	traffic TrafficConfig,
) *Router {
	return &Router{
		answer:   answer,
		status:   status,
		ingest:   ingest,
		docs:     docs,
		sessions: sessions,
		metrics:  m,
		mode:     mode,
		traffic:  traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/status", rt.pipelineStatus)
	mux.HandleFunc("/v1/answer", rt.answerQuestion)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/sessions/", rt.sessionTurns)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.traffic.MaxConcurrent, rt.traffic.AcquireTimeout)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) pipelineStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.status.Status(r.Context()))
}

type answerRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type answerResponse struct {
	domain.AnswerResult
	SessionID string `json:"session_id,omitempty"`
}

// answerQuestion always replies 200 with a terminal result; degraded
// outcomes are communicated in the payload, not through HTTP status.
// Only a malformed request body is a client error.
func (rt *Router) answerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result := rt.answer.Answer(r.Context(), req.Question)

	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, string(result.Outcome), result.Attempts, len(result.Sources), time.Since(start))
		rt.metrics.RecordAnswerMode(serviceName, string(rt.mode))
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		rt.recordTurns(r, sessionID, req.Question, result)
	}

	writeJSON(w, http.StatusOK, answerResponse{AnswerResult: result, SessionID: sessionID})
}

// recordTurns persists the exchange for session history. Persistence
// failures are logged and do not affect the answer response.
func (rt *Router) recordTurns(r *http.Request, sessionID, question string, result domain.AnswerResult) {
	if rt.sessions == nil {
		return
	}
	ctx := r.Context()
	if err := rt.sessions.EnsureSession(ctx, sessionID); err != nil {
		slog.WarnContext(ctx, "session_persist_failed",
			"request_id", requestIDFromContext(ctx),
			"session_id", sessionID,
			"error", err.Error(),
		)
		return
	}
	turns := []domain.ConversationTurn{
		{ID: uuid.NewString(), SessionID: sessionID, Role: domain.RoleUser, Text: question},
		{ID: uuid.NewString(), SessionID: sessionID, Role: domain.RoleAssistant, Text: result.Text},
	}
	for _, turn := range turns {
		if err := rt.sessions.AppendTurn(ctx, turn); err != nil {
			slog.WarnContext(ctx, "session_turn_persist_failed",
				"request_id", requestIDFromContext(ctx),
				"session_id", sessionID,
				"role", turn.Role,
				"error", err.Error(),
			)
			return
		}
	}
}

func (rt *Router) sessionTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	sessionID, ok := strings.CutSuffix(rest, "/turns")
	if !ok || sessionID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	turns, err := rt.sessions.ListTurns(r.Context(), sessionID, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
