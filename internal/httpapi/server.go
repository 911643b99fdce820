package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fitspace/fitspace/internal/chat"
	"github.com/fitspace/fitspace/internal/store"
)

// maxBodyBytes caps request bodies; the message itself is far smaller.
const maxBodyBytes = 16 << 10

type ChatService interface {
	Send(ctx context.Context, userID, text string) (chat.Exchange, error)
	Conversation(ctx context.Context, userID string) ([]store.Turn, error)
	Reset(ctx context.Context, userID string) error
}

type Server struct {
	chat    ChatService
	metrics http.Handler
	log     *zap.Logger
}

func New(svc ChatService, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{chat: svc, metrics: metrics, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(zapLogFormatter{log: s.log.Named("access")}))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/v1/users/{userID}/chat", s.handleConversation)
	r.Post("/v1/users/{userID}/chat", s.handleSend)
	r.Delete("/v1/users/{userID}/chat", s.handleReset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	turns, err := s.chat.Conversation(r.Context(), userID)
	if err != nil {
		s.failed(w, r, "load conversation", err)
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": turns})
}

type sendRequest struct {
	Message string `json:"message"`
}

// handleSend accepts either a JSON body or a form post with a "message" field.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	text, err := readMessage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ex, err := s.chat.Send(r.Context(), userID, text)
	if err != nil {
		s.failed(w, r, "send message", err)
		return
	}
	respondJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.chat.Reset(r.Context(), userID); err != nil {
		s.failed(w, r, "reset conversation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// failed answers 400 for caller input violations and 500 for everything else.
func (s *Server) failed(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, chat.ErrMissingUser) ||
		errors.Is(err, chat.ErrEmptyMessage) ||
		errors.Is(err, chat.ErrMessageTooLong) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Error(op+" failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("user_id", chi.URLParam(r, "userID")),
		zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func readMessage(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.EqualFold(mediaType, "application/json") {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.Message, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("message"), nil
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
