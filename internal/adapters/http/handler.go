package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/minjae-dev/lurebait/internal/app/conversation"
	"github.com/minjae-dev/lurebait/internal/app/exchange"
	"github.com/minjae-dev/lurebait/internal/domain"
)

// Server is a thin transport shim over the two core services. Real
// authentication lives in the edge layer in front of this process; requests
// arrive here with their user identity already established, so the handlers
// just read it from the request.
type Server struct {
	conversations *conversation.Service
	exchanges     *exchange.Service
}

func NewServer(conversations *conversation.Service, exchanges *exchange.Service) http.Handler {
	s := &Server{conversations: conversations, exchanges: exchanges}
	mux := http.NewServeMux()

	// /conversations              → POST: start, GET: list
	mux.HandleFunc("/conversations", s.handleConversations)

	// /conversations/{id}          → GET / DELETE
	// /conversations/{id}/messages → GET: thread, POST: send message
	mux.HandleFunc("/conversations/", s.handleConversationWithID)

	return chainMiddlewares(mux, withLogging, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type startConversationRequest struct {
	UserID         string `json:"user_id"`
	PersonaID      string `json:"persona_id"`
	Title          string `json:"title,omitempty"`
	ScenarioPolicy string `json:"scenario_policy,omitempty"` // any | category | force_fresh
	CategoryCode   string `json:"category_code,omitempty"`
}

type conversationResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	PersonaID     string    `json:"persona_id"`
	Title         string    `json:"title,omitempty"`
	ScenarioID    string    `json:"scenario_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	AttachmentKey  string    `json:"attachment_key,omitempty"`
	TokenUsage     int32     `json:"token_usage,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type startConversationResponse struct {
	Conversation conversationResponse `json:"conversation"`
	Opening      *messageResponse     `json:"opening_message,omitempty"`
}

type sendMessageRequest struct {
	UserID      string `json:"user_id"`
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type sendMessageResponse struct {
	UserMessage            messageResponse          `json:"user_message"`
	AIMessage              messageResponse          `json:"ai_message"`
	SuggestedUserQuestions []string                 `json:"suggested_user_questions"`
	IsReadyToMoveOn        bool                     `json:"is_ready_to_move_on"`
	DebugRequestContents   []domain.TranscriptEntry `json:"debug_request_contents"`
}

type listConversationsResponse struct {
	Conversations []conversationResponse `json:"conversations"`
}

type listMessagesResponse struct {
	Messages []messageResponse `json:"messages"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleStartConversation(w, r)
	case http.MethodGet:
		s.handleListConversations(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleConversationWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.ConversationID(parts[0])
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetConversation(w, r, id)
		case http.MethodDelete:
			s.handleDeleteConversation(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "messages" {
		switch r.Method {
		case http.MethodGet:
			s.handleListMessages(w, r, id)
		case http.MethodPost:
			s.handleSendMessage(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.PersonaID == "" {
		badRequest(w, "user_id and persona_id are required")
		return
	}

	out, err := s.conversations.StartConversation(r.Context(), conversation.StartConversationInput{
		PersonaID:   domain.PersonaID(req.PersonaID),
		RequestorID: domain.UserID(req.UserID),
		Title:       req.Title,
		Policy: domain.ScenarioPolicy{
			Mode:         parseScenarioPolicy(req.ScenarioPolicy),
			CategoryCode: req.CategoryCode,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := startConversationResponse{
		Conversation: toConversationResponse(out.Conversation),
	}
	if out.Opening != nil {
		m := toMessageResponse(out.Opening)
		resp.Opening = &m
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	convs, err := s.conversations.ListConversations(r.Context(), domain.UserID(userID), 0)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := listConversationsResponse{Conversations: make([]conversationResponse, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toConversationResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, id domain.ConversationID) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	conv, err := s.conversations.GetConversation(r.Context(), id, domain.UserID(userID), isElevated(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request, id domain.ConversationID) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	if err := s.conversations.DeleteConversation(r.Context(), id, domain.UserID(userID), isElevated(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, id domain.ConversationID) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	msgs, err := s.exchanges.ListMessages(r.Context(), id, domain.UserID(userID), isElevated(r))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := listMessagesResponse{Messages: make([]messageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, id domain.ConversationID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	var attachment []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			badRequest(w, "image_base64 is not valid base64")
			return
		}
		attachment = decoded
	}

	out, err := s.exchanges.SendMessage(r.Context(), exchange.SendMessageInput{
		ConversationID: id,
		RequestorID:    domain.UserID(req.UserID),
		Elevated:       isElevated(r),
		Text:           req.Text,
		Attachment:     attachment,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:            toMessageResponse(out.UserMessage),
		AIMessage:              toMessageResponse(out.AIMessage),
		SuggestedUserQuestions: out.SuggestedUserQuestions,
		IsReadyToMoveOn:        out.IsReadyToMoveOn,
		DebugRequestContents:   out.Transcript,
	})
}

// ─────────────────────────────────────────────
// Conversion helpers
// ─────────────────────────────────────────────

func toConversationResponse(c *domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:            string(c.ID),
		UserID:        string(c.UserID),
		PersonaID:     string(c.PersonaID),
		Title:         c.Title,
		ScenarioID:    string(c.ScenarioID),
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		Sender:         string(m.Sender),
		Content:        m.Content,
		AttachmentKey:  m.AttachmentKey,
		TokenUsage:     m.TokenUsage,
		CreatedAt:      m.CreatedAt,
	}
}

func parseScenarioPolicy(s string) domain.ScenarioPolicyMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "category":
		return domain.ScenarioByCategory
	case "force_fresh", "fresh":
		return domain.ScenarioForceFresh
	case "any", "":
		return domain.ScenarioAny
	default:
		return domain.ScenarioPolicyMode(s)
	}
}

// isElevated trusts the edge layer to only set this header for operator
// traffic; it is stripped from external requests there.
func isElevated(r *http.Request) bool {
	return r.Header.Get("X-Operator-Role") == "admin"
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// writeError maps domain error kinds to transport codes. Internal detail
// (prompts, wrapped causes) stays out of the body; operators get it from
// logs and the debug transcript instead.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid input"})
	case errors.Is(err, domain.ErrServiceDisabled), errors.Is(err, domain.ErrProviderUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ai service unavailable"})
	case errors.Is(err, domain.ErrMalformedResponse), errors.Is(err, domain.ErrGenerationFailed):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ai response unusable"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
