// Package httpapi exposes the question pipeline over HTTP. Clients upload a
// WAV recording and receive the transcript, the answer text and the spoken
// answer as base64.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"interview-bot/internal/application"
	"interview-bot/internal/domain"
	"interview-bot/internal/infra/audio"
	"interview-bot/internal/session"
)

const (
	maxAudioBytes   = 10 * 1024 * 1024
	maxContextBytes = 1024 * 1024
)

// Runner answers one invocation.
type Runner interface {
	Run(ctx context.Context, inv application.Invocation) (*application.Result, error)
}

type Options struct {
	Addr           string
	AuthToken      string
	RequestsPerMin int
	WriteTimeout   time.Duration
}

type Server struct {
	opts     Options
	runner   Runner
	sessions *session.Store
	fallback application.ContextProvider
	metrics  http.Handler
	logger   *slog.Logger

	router  *mux.Router
	mu      sync.Mutex
	server  *http.Server
	running bool
}

// NewServer builds the router. metrics may be nil to omit /metrics.
func NewServer(
	opts Options,
	runner Runner,
	sessions *session.Store,
	fallback application.ContextProvider,
	metrics http.Handler,
	logger *slog.Logger,
) *Server {
	if opts.RequestsPerMin <= 0 {
		opts.RequestsPerMin = 30
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Minute
	}

	s := &Server{
		opts:     opts,
		runner:   runner,
		sessions: sessions,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := s.router.NewRoute().Subrouter()
	api.Use(s.authenticate)
	api.Use(NewRateLimiter(s.opts.RequestsPerMin, time.Minute).Middleware)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/context", s.handleSaveContext).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/context", s.handleGetContext).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/questions", s.handleSessionQuestion).Methods(http.MethodPost)
	api.HandleFunc("/questions", s.handleQuestion).Methods(http.MethodPost)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) != 1 {
				s.logger.Warn("unauthorized request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "unauthorized", "")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type answerResponse struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Audio      []byte `json:"audio,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type contextResponse struct {
	Context string `json:"context"`
	Source  string `json:"source"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := s.sessions.Create()
	s.logger.Info("session created", "session", id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleSaveContext(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	data, err := io.ReadAll(io.LimitReader(r.Body, maxContextBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", "")
		return
	}
	if len(data) > maxContextBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "context too large", "")
		return
	}
	if !utf8.Valid(data) {
		writeError(w, http.StatusBadRequest, "context must be UTF-8 text", "")
		return
	}

	if err := s.sessions.SaveContext(id, string(data)); err != nil {
		s.writeFailure(w, err)
		return
	}

	s.logger.Info("session context saved", "session", id, "bytes", len(data))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	override, ok := s.sessions.Context(id)
	if !ok {
		s.writeFailure(w, session.ErrNotFound)
		return
	}

	bg, err := application.SessionContext{Override: override, Fallback: s.fallback}.Load(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{Context: bg.Text, Source: string(bg.Source)})
}

func (s *Server) handleSessionQuestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	release, err := s.sessions.Acquire(id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer release()

	override, _ := s.sessions.Context(id)
	s.answer(w, r, application.SessionContext{Override: override, Fallback: s.fallback})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	s.answer(w, r, application.SessionContext{Fallback: s.fallback})
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, provider application.ContextProvider) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", "")
		return
	}
	if len(data) > maxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio too large", "")
		return
	}

	s.logger.Info("received question audio", "bytes", len(data))

	result, err := s.runner.Run(r.Context(), application.Invocation{
		Capture: audio.NewNamedUpload("http", data),
		Context: provider,
	})

	resp := answerResponse{}
	if result != nil {
		resp.ID = result.ID
		resp.Transcript = string(result.Transcript)
		resp.Answer = string(result.Answer)
		resp.Audio = result.Audio.Data
		resp.MIMEType = result.Audio.MIMEType
	}
	if err != nil {
		resp.Error = domain.UserMessage(err)
		resp.Kind = string(domain.KindOf(err))
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	msg := domain.UserMessage(err)
	if errors.Is(err, session.ErrNotFound) {
		msg = "Unknown or expired session."
	}
	writeError(w, status, msg, string(domain.KindOf(err)))
}

// statusFor maps a failure to the HTTP status clients see.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	}

	switch domain.KindOf(err) {
	case domain.KindContextRead:
		return http.StatusFailedDependency
	case domain.KindCapture:
		return http.StatusBadRequest
	case domain.KindUnintelligible:
		return http.StatusUnprocessableEntity
	case domain.KindRecognitionService, domain.KindGenerationService, domain.KindSynthesisService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}
