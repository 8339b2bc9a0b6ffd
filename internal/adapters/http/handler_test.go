package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/lurebait/internal/adapters/llm"
	"github.com/minjae-dev/lurebait/internal/adapters/storage/memory"
	"github.com/minjae-dev/lurebait/internal/app/conversation"
	"github.com/minjae-dev/lurebait/internal/app/exchange"
	"github.com/minjae-dev/lurebait/internal/domain"
)

func newTestServer(t *testing.T, replies domain.ReplyClient) http.Handler {
	t.Helper()

	convs := memory.NewConversationStore()
	msgs := memory.NewMessageStore()
	scenarios := memory.NewScenarioStore()
	personas := memory.NewPersonaStore()
	objects := memory.NewObjectStore()

	require.NoError(t, scenarios.SeedCategories(domain.SeedCategories()))
	require.NoError(t, personas.SavePersona(&domain.Persona{
		ID:                "detective",
		Name:              "탐정",
		SystemInstruction: "너는 피싱 판별 훈련 상대야.",
		OpeningLine:       "안녕하세요, 탐정입니다",
	}))

	return NewServer(
		conversation.NewService(replies, convs, msgs, personas, scenarios, objects),
		exchange.NewService(replies, convs, msgs, personas, scenarios, objects),
	)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func startTestConversation(t *testing.T, h http.Handler) startConversationResponse {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/conversations", startConversationRequest{
		UserID:    "u1",
		PersonaID: "detective",
		Title:     "훈련 1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp startConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStartConversationEndpoint(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())

	resp := startTestConversation(t, h)
	assert.NotEmpty(t, resp.Conversation.ID)
	assert.Equal(t, "u1", resp.Conversation.UserID)
	require.NotNil(t, resp.Opening)
	assert.Equal(t, "ai", resp.Opening.Sender)
	assert.Equal(t, "안녕하세요, 탐정입니다", resp.Opening.Content)
}

func TestStartConversationValidation(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())

	rec := doJSON(t, h, http.MethodPost, "/conversations", startConversationRequest{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/conversations", startConversationRequest{
		UserID:    "u1",
		PersonaID: "nobody",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageEndpoint(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())
	conv := startTestConversation(t, h)
	path := fmt.Sprintf("/conversations/%s/messages", conv.Conversation.ID)

	rec := doJSON(t, h, http.MethodPost, path, sendMessageRequest{UserID: "u1", Text: "누구세요?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user", resp.UserMessage.Sender)
	assert.Equal(t, "누구세요?", resp.UserMessage.Content)
	assert.Equal(t, "ai", resp.AIMessage.Sender)
	assert.NotEmpty(t, resp.AIMessage.Content)
	assert.NotEmpty(t, resp.SuggestedUserQuestions)
	assert.NotEmpty(t, resp.DebugRequestContents)

	// The thread now holds the opening plus both new turns.
	rec = doJSON(t, h, http.MethodGet, path+"?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var thread listMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	require.Len(t, thread.Messages, 3)
	assert.Equal(t, "ai", thread.Messages[0].Sender)
	assert.Equal(t, "user", thread.Messages[1].Sender)
	assert.Equal(t, "ai", thread.Messages[2].Sender)
}

func TestSendMessageErrorsMapToStatusCodes(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())
	conv := startTestConversation(t, h)
	path := fmt.Sprintf("/conversations/%s/messages", conv.Conversation.ID)

	// Empty turn.
	rec := doJSON(t, h, http.MethodPost, path, sendMessageRequest{UserID: "u1", Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Someone else's conversation is indistinguishable from a missing one.
	rec = doJSON(t, h, http.MethodPost, path, sendMessageRequest{UserID: "u2", Text: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown conversation.
	rec = doJSON(t, h, http.MethodPost, "/conversations/nope/messages", sendMessageRequest{UserID: "u1", Text: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageWhenGatewayDisabled(t *testing.T) {
	// A Gemini client without an API key reports itself unavailable.
	disabled, err := llm.NewGeminiClient(context.Background(), "", "")
	require.NoError(t, err)
	h := newTestServer(t, disabled)
	conv := startTestConversation(t, h)

	rec := doJSON(t, h, http.MethodPost,
		fmt.Sprintf("/conversations/%s/messages", conv.Conversation.ID),
		sendMessageRequest{UserID: "u1", Text: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListAndDeleteConversation(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())
	conv := startTestConversation(t, h)

	rec := doJSON(t, h, http.MethodGet, "/conversations?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list listConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Conversations, 1)

	// Deleting as another user fails without leaking existence.
	rec = doJSON(t, h, http.MethodDelete, "/conversations/"+conv.Conversation.ID+"?user_id=u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/conversations/"+conv.Conversation.ID+"?user_id=u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/conversations/"+conv.Conversation.ID+"?user_id=u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestElevatedHeaderCrossesOwners(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())
	conv := startTestConversation(t, h)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+conv.Conversation.ID+"?user_id=operator", nil)
	req.Header.Set("X-Operator-Role", "admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, llm.NewMockLLM())

	rec := doJSON(t, h, http.MethodPut, "/conversations", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
