package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tajerhq/tajerbot/internal/models"
)

// defaultClassificationLimit caps classification log pages when the caller
// does not pass an explicit limit.
const defaultClassificationLimit = 50

// healthHandler provides a health check endpoint for monitoring and load
// balancing.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// messagesHandler dispatches one inbound message synchronously and returns
// the resolved action (POST /v1/messages). It is the entry point for channel
// integrations that deliver their own replies.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.messagesHandler: processing dispatch request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var msg models.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		slog.Warn("Server.messagesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if msg.ConversationID == "" && msg.TenantID != "" && msg.CustomerID != "" {
		msg.ConversationID = msg.TenantID + ":" + msg.CustomerID
	}
	if err := msg.Validate(); err != nil {
		slog.Warn("Server.messagesHandler: validation failed", "error", err, "conversation_id", msg.ConversationID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	action, err := s.dispatcher.Dispatch(r.Context(), msg)
	if err != nil {
		slog.Error("Server.messagesHandler: dispatch failed", "error", err, "conversation_id", msg.ConversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to dispatch message"))
		return
	}
	slog.Info("Server.messagesHandler: message dispatched", "conversation_id", msg.ConversationID, "action_type", action.Type)
	writeJSONResponse(w, http.StatusOK, models.Success(action))
}

// classificationsHandler returns the most recent classification log entries
// for a tenant (GET /v1/classifications?tenant_id=X&limit=N).
func (s *Server) classificationsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.classificationsHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: tenant_id"))
		return
	}
	limit := defaultClassificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid limit"))
			return
		}
		limit = n
	}

	records, err := s.st.ListClassificationRecords(tenantID, limit)
	if err != nil {
		slog.Error("Server.classificationsHandler: failed to fetch records", "error", err, "tenant_id", tenantID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch classification records"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}

// conversationHandler returns the persisted state of one conversation
// (GET /v1/conversations/{id}).
func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.conversationHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conversationID := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown conversation endpoint"))
		return
	}

	state, err := s.st.GetConversationState(conversationID)
	if err != nil {
		slog.Error("Server.conversationHandler: failed to fetch state", "error", err, "conversation_id", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch conversation state"))
		return
	}
	if state == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}
