// Package httpapi is the HTTP integration surface for the tutor core. The
// voice pipeline posts final transcripts as turns and reads back spoken
// responses; the parental dashboard reads session snapshots and clears
// sessions behind the parental gate.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kidsafe/alphatutor/internal/curriculum"
	"github.com/kidsafe/alphatutor/internal/health"
	"github.com/kidsafe/alphatutor/internal/memory"
	"github.com/kidsafe/alphatutor/internal/observe"
	"github.com/kidsafe/alphatutor/internal/phoneme"
	"github.com/kidsafe/alphatutor/internal/safety"
	"github.com/kidsafe/alphatutor/internal/tutor"
)

// maxTurnBodySize bounds turn request bodies. Transcripts are short; anything
// near this limit is not a child utterance.
const maxTurnBodySize = 64 << 10

// Server wires the tutor components into HTTP handlers. All dependencies are
// injected; Server holds no tutoring state of its own.
type Server struct {
	orch    *tutor.Orchestrator
	mem     *memory.Store
	cur     *curriculum.Store
	scorer  *phoneme.Scorer
	health  *health.Handler
	metrics *observe.Metrics

	gateRequired bool
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics attaches request metrics and the observability middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithParentalGate toggles the arithmetic challenge guarding session
// deletion. Enabled by default.
func WithParentalGate(required bool) Option {
	return func(s *Server) {
		s.gateRequired = required
	}
}

// New creates a Server over the given components.
func New(orch *tutor.Orchestrator, mem *memory.Store, cur *curriculum.Store, scorer *phoneme.Scorer, h *health.Handler, opts ...Option) *Server {
	s := &Server{
		orch:         orch,
		mem:          mem,
		cur:          cur,
		scorer:       scorer,
		health:       h,
		gateRequired: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if s.metrics != nil {
		r.Use(observe.Middleware(s.metrics))
	}

	if s.health != nil {
		s.health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/turns", s.processTurn)
			r.Get("/state", s.sessionState)
			r.Get("/history", s.sessionHistory)
			r.Get("/stats", s.sessionStats)
			r.Delete("/", s.clearSession)
		})
		r.Get("/gate", s.gateChallenge)
		r.Get("/letters/{letter}/sounds", s.letterSounds)
		r.Post("/curriculum/reload", s.reloadCurriculum)
	})

	return r
}

type sessionCreated struct {
	SessionID     string `json:"session_id"`
	CurrentLetter string `json:"current_letter"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	state := s.mem.GetOrCreate(id)

	slog.Info("httpapi: session created", "session_id", id)
	writeJSON(w, http.StatusCreated, sessionCreated{
		SessionID:     id,
		CurrentLetter: state.CurrentLetter,
	})
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Response string         `json:"response"`
	Metadata tutor.Metadata `json:"metadata"`
}

func (s *Server) processTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxTurnBodySize)
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, meta := s.orch.Process(r.Context(), id, req.Text)
	writeJSON(w, http.StatusOK, turnResponse{Response: resp, Metadata: meta})
}

func (s *Server) sessionState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, s.mem.DerivedState(id))
}

func (s *Server) sessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	history := s.mem.History(id, limit)
	if history == nil {
		history = []memory.ConversationTurn{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) sessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, s.mem.Stats(id))
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.gateRequired {
		answer := r.Header.Get("X-Gate-Answer")
		expected := r.Header.Get("X-Gate-Expected")
		if !safety.ValidateGate(answer, expected) {
			slog.Warn("httpapi: parental gate rejected", "session_id", id)
			writeError(w, http.StatusForbidden, "parental gate answer incorrect")
			return
		}
	}

	if !s.mem.Clear(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	slog.Info("httpapi: session cleared", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) gateChallenge(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, safety.NewGateChallenge())
}

func (s *Server) letterSounds(w http.ResponseWriter, r *http.Request) {
	letter := chi.URLParam(r, "letter")

	sounds, ok := s.scorer.Sounds(letter)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown letter")
		return
	}
	writeJSON(w, http.StatusOK, sounds)
}

type reloadResponse struct {
	Reloaded bool `json:"reloaded"`
	Letters  int  `json:"letters"`
}

func (s *Server) reloadCurriculum(w http.ResponseWriter, r *http.Request) {
	ok := s.cur.Reload()
	if s.metrics != nil {
		s.metrics.RecordReload(r.Context(), ok)
	}

	status := http.StatusOK
	if !ok {
		// The old table keeps serving; the caller still needs to know the
		// file on disk is bad.
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, reloadResponse{Reloaded: ok, Letters: s.cur.Letters()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("httpapi: response encode failed", "err", err)
	}
}
