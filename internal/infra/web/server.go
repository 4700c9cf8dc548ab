package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meeting-scribe/internal/infra/logging"
	"meeting-scribe/internal/infra/notify"
	"meeting-scribe/internal/infra/redis"
	"meeting-scribe/internal/usecase"
)

// Server is the public HTTP surface: auth, meetings, chat, and the
// internal notification ingress the worker posts to.
type Server struct {
	authUC    usecase.AuthUseCase
	meetingUC usecase.MeetingUseCase
	chatUC    usecase.ChatUseCase
	hub       *notify.Hub
	limiter   *redis.RateLimiter

	internalKey string
	maxUpload   int64
	log         *zerolog.Logger
}

func NewServer(
	authUC usecase.AuthUseCase,
	meetingUC usecase.MeetingUseCase,
	chatUC usecase.ChatUseCase,
	hub *notify.Hub,
	limiter *redis.RateLimiter,
	internalKey string,
	maxUpload int64,
	logger *zerolog.Logger,
) *Server {
	if maxUpload <= 0 {
		maxUpload = 500 << 20
	}
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		authUC:      authUC,
		meetingUC:   meetingUC,
		chatUC:      chatUC,
		hub:         hub,
		limiter:     limiter,
		internalKey: internalKey,
		maxUpload:   maxUpload,
		log:         &l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/internal/notify", s.handleInternalNotify)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)
		pr.Get("/users/me", s.handleMe)
		pr.Post("/meetings/process", s.handleProcess)
		pr.Get("/meetings", s.handleList)
		pr.Get("/meetings/{meetingID}", s.handleGet)
		pr.Delete("/meetings/{meetingID}", s.handleDelete)
		pr.Post("/meetings/{meetingID}/chat", s.handleChat)
		pr.Get("/meetings/{meetingID}/chat", s.handleChatHistory)
		pr.Get("/events", s.handleEvents)
	})

	return r
}

// traceMiddleware tags every request with a trace id for the ctx-aware
// log helpers.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
