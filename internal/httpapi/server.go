package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/auth"
	"github.com/gigabhai/gigabhai/internal/chat"
	"github.com/gigabhai/gigabhai/internal/config"
	"github.com/gigabhai/gigabhai/internal/observability"
	"github.com/gigabhai/gigabhai/internal/persona"
	"github.com/gigabhai/gigabhai/internal/protocol"
	"github.com/gigabhai/gigabhai/internal/store"
)

type Server struct {
	cfg          config.Config
	orchestrator *chat.Orchestrator
	store        store.Store
	verifier     auth.Verifier
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, orchestrator *chat.Orchestrator, st store.Store, verifier auth.Verifier, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		store:        st,
		verifier:     verifier,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a user's chat if
				// the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Delete("/v1/perf/latency", s.handlePerfReset)
	r.Get("/v1/personas", s.handleListPersonas)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/v1/chat", s.handleChat)
		r.Get("/v1/chat/ws", s.handleChatWS)
		r.Post("/v1/heading", s.handleHeading)
		r.Get("/v1/conversations", s.handleListConversations)
		r.Put("/v1/conversations/{id}", s.handleUpdateConversation)
		r.Delete("/v1/conversations/{id}", s.handleDeleteConversation)
	})

	return r
}

type identityKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.verifier.Verify(r.Context(), auth.BearerToken(r))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey{}).(auth.Identity)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"default_persona": s.cfg.DefaultPersona,
	})
}

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Persona        string `json:"persona,omitempty"`
	Message        string `json:"message"`
}

type chatResponse struct {
	Message        string    `json:"message"`
	ConversationID string    `json:"conversation_id"`
	Persona        string    `json:"persona"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.orchestrator.HandleTurn(r.Context(), chat.TurnRequest{
		OwnerKey:       identityFrom(r).OwnerKey(),
		ConversationID: req.ConversationID,
		Persona:        req.Persona,
		Message:        req.Message,
	})
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":           verr.Reason,
				"code":            "invalid_request",
				"conversation_id": verr.ConversationID,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "turn processing failed")
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		Message:        result.Response,
		ConversationID: result.ConversationID,
		Persona:        result.Persona,
		Timestamp:      result.CreatedAt,
	})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	ownerKey := identityFrom(r).OwnerKey()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ActiveWSClients.Inc()
		defer s.metrics.ActiveWSClients.Dec()
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.writeWS(conn, protocol.TypeErrorEvent, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}
		if s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeClientMessage)).Inc()
		}

		result, err := s.orchestrator.HandleTurn(r.Context(), chat.TurnRequest{
			OwnerKey:       ownerKey,
			ConversationID: msg.ConversationID,
			Persona:        msg.Persona,
			Message:        msg.Message,
		})
		if err != nil {
			var verr *chat.ValidationError
			event := protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_request",
				Detail: err.Error(),
			}
			if errors.As(err, &verr) {
				event.ConversationID = verr.ConversationID
				event.Detail = verr.Reason
			}
			s.writeWS(conn, protocol.TypeErrorEvent, event)
			continue
		}

		s.writeWS(conn, protocol.TypeAssistantResponse, protocol.AssistantResponse{
			Type:           protocol.TypeAssistantResponse,
			ConversationID: result.ConversationID,
			Persona:        result.Persona,
			Message:        result.Response,
		})
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msgType protocol.MessageType, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		log.Debug().Err(err).Msg("websocket write failed")
		return
	}
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues("outbound", string(msgType)).Inc()
	}
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, observability.TurnStageSnapshot{Stages: []observability.TurnStageStats{}})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

// handlePerfReset clears the latency sampling window so a load run can be
// measured from a clean slate.
func (s *Server) handlePerfReset(w http.ResponseWriter, _ *http.Request) {
	s.metrics.ResetTurnStages()
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type headingRequest struct {
	Messages []string `json:"messages"`
}

func (s *Server) handleHeading(w http.ResponseWriter, r *http.Request) {
	var req headingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	heading, err := s.orchestrator.GenerateTitle(r.Context(), req.Messages)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "invalid_request", verr.Reason)
			return
		}
		respondError(w, http.StatusBadGateway, "provider_error", "title generation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"heading": heading})
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"default":  persona.DefaultID,
		"personas": persona.List(),
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	conversations, err := s.store.ListConversations(r.Context(), identityFrom(r).OwnerKey(), limit)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveStorageError("list_conversations")
		}
		respondError(w, http.StatusInternalServerError, "storage_error", "could not list conversations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

type updateConversationRequest struct {
	Title   string `json:"title,omitempty"`
	Persona string `json:"persona,omitempty"`
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing conversation id")
		return
	}

	var req updateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Title == "" && req.Persona == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "nothing to update")
		return
	}
	if req.Persona != "" && !persona.Known(req.Persona) {
		respondError(w, http.StatusBadRequest, "invalid_request", "unknown persona")
		return
	}

	err := s.store.UpdateConversation(r.Context(), identityFrom(r).OwnerKey(), id, req.Title, req.Persona)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveStorageError("update_conversation")
		}
		respondError(w, http.StatusInternalServerError, "storage_error", "could not update conversation")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing conversation id")
		return
	}

	err := s.store.DeleteConversation(r.Context(), identityFrom(r).OwnerKey(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveStorageError("delete_conversation")
		}
		respondError(w, http.StatusInternalServerError, "storage_error", "could not delete conversation")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
