package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minjae-dev/lurebait/internal/domain"
	"github.com/minjae-dev/lurebait/internal/observability"
)

// imageOnlyPrompt is substituted when a turn carries an attachment but no
// text, so the model has a grounding instruction. It is also what gets
// persisted as the user turn's content.
const imageOnlyPrompt = "이 이미지는 어떤 내용이야? 자세히 설명해줘."

// Service is the message exchange pipeline: one SendMessage call produces
// exactly one user turn and one AI turn, or nothing at all.
type Service struct {
	replies       domain.ReplyClient
	conversations domain.ConversationStore
	messages      domain.MessageStore
	personas      domain.PersonaStore
	scenarios     domain.ScenarioStore
	objects       domain.ObjectStore

	locks *conversationLocks
	now   func() time.Time
	newID func() string
}

func NewService(
	replies domain.ReplyClient,
	conversations domain.ConversationStore,
	messages domain.MessageStore,
	personas domain.PersonaStore,
	scenarios domain.ScenarioStore,
	objects domain.ObjectStore,
) *Service {
	return &Service{
		replies:       replies,
		conversations: conversations,
		messages:      messages,
		personas:      personas,
		scenarios:     scenarios,
		objects:       objects,
		locks:         newConversationLocks(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

type SendMessageInput struct {
	ConversationID domain.ConversationID
	RequestorID    domain.UserID
	// Elevated lets an operator role act across owners.
	Elevated   bool
	Text       string
	Attachment []byte // raw image bytes, may be nil
}

type SendMessageOutput struct {
	UserMessage            *domain.Message
	AIMessage              *domain.Message
	SuggestedUserQuestions []string
	IsReadyToMoveOn        bool
	Transcript             []domain.TranscriptEntry
}

// SendMessage runs one full exchange. The provider is called before anything
// is persisted: a failed AI call must never leave an orphaned user message
// without a paired reply, and re-invoking with the same input is safe since
// no turn was written.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	conv, err := s.resolveConversation(in.ConversationID, in.RequestorID, in.Elevated)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"conversation_id", conv.ID,
		"user_id", in.RequestorID,
	)

	text := strings.TrimSpace(in.Text)
	hasAttachment := len(in.Attachment) > 0
	if text == "" && !hasAttachment {
		return nil, fmt.Errorf("send message: empty turn: %w", domain.ErrInvalidInput)
	}

	// Fail fast before loading any history when no provider is configured.
	if !s.replies.Available() {
		return nil, fmt.Errorf("send message: %w", domain.ErrServiceDisabled)
	}

	unlock := s.locks.lock(conv.ID)
	defer unlock()

	persona, err := s.personas.GetPersona(conv.PersonaID)
	if err != nil {
		return nil, fmt.Errorf("send message: persona: %w", err)
	}

	history, err := s.messages.ListMessages(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("send message: load history: %w", err)
	}

	scenario, category, err := s.boundScenario(ctx, conv)
	if err != nil {
		return nil, err
	}

	// An image without text still needs a grounding instruction.
	promptText := text
	if hasAttachment && promptText == "" {
		promptText = imageOnlyPrompt
	}

	reply, transcript, err := s.replies.Respond(ctx, domain.ReplyRequest{
		SystemInstruction: persona.SystemInstruction,
		History:           history,
		UserText:          promptText,
		Attachment:        in.Attachment,
		Scenario:          scenario,
		Category:          category,
		ScriptedOpening:   persona.OpeningLine,
	})
	if err != nil {
		log.Error("ai reply failed, nothing persisted", "error", err)
		return nil, fmt.Errorf("send message: %w", err)
	}

	// The textual exchange already succeeded; an attachment upload failure
	// is logged and swallowed, the turn just loses its attachment reference.
	var attachmentKey string
	if hasAttachment {
		key := "messages/" + s.newID()
		contentType := http.DetectContentType(in.Attachment)
		if err := s.objects.Put(key, in.Attachment, contentType); err != nil {
			log.Error("attachment upload failed, saving turn without attachment", "key", key, "error", err)
		} else {
			attachmentKey = key
		}
	}

	userMsg := &domain.Message{
		ID:             domain.MessageID(s.newID()),
		ConversationID: conv.ID,
		Sender:         domain.RoleUser,
		Content:        promptText,
		AttachmentKey:  attachmentKey,
		CreatedAt:      s.now(),
	}
	if err := s.messages.AppendMessage(userMsg); err != nil {
		return nil, fmt.Errorf("send message: persist user turn: %w", err)
	}
	if err := s.conversations.TouchLastActivity(conv.ID, userMsg.CreatedAt); err != nil {
		return nil, fmt.Errorf("send message: touch after user turn: %w", err)
	}

	aiMsg := &domain.Message{
		ID:             domain.MessageID(s.newID()),
		ConversationID: conv.ID,
		Sender:         domain.RoleAI,
		Content:        reply.Response,
		TokenUsage:     reply.TokenUsage,
		CreatedAt:      s.now(),
	}
	if err := s.messages.AppendMessage(aiMsg); err != nil {
		return nil, fmt.Errorf("send message: persist ai turn: %w", err)
	}
	if err := s.conversations.TouchLastActivity(conv.ID, aiMsg.CreatedAt); err != nil {
		return nil, fmt.Errorf("send message: touch after ai turn: %w", err)
	}

	log.Info("exchange completed",
		"history_len", len(history),
		"tokens", reply.TokenUsage,
		"attachment", attachmentKey != "")

	return &SendMessageOutput{
		UserMessage:            userMsg,
		AIMessage:              aiMsg,
		SuggestedUserQuestions: reply.SuggestedUserQuestions,
		IsReadyToMoveOn:        reply.ProgressCheck.IsReadyToMoveOn,
		Transcript:             transcript,
	}, nil
}

// ListMessages returns a conversation's full thread in creation order,
// scoped to the requestor unless elevated.
func (s *Service) ListMessages(
	ctx context.Context,
	conversationID domain.ConversationID,
	requestorID domain.UserID,
	elevated bool,
) ([]*domain.Message, error) {
	conv, err := s.resolveConversation(conversationID, requestorID, elevated)
	if err != nil {
		return nil, err
	}
	return s.messages.ListMessages(conv.ID)
}

func (s *Service) resolveConversation(
	id domain.ConversationID,
	requestorID domain.UserID,
	elevated bool,
) (*domain.Conversation, error) {
	if elevated {
		return s.conversations.GetConversation(id)
	}
	return s.conversations.GetConversationForUser(id, requestorID)
}

// boundScenario loads the conversation's scenario and its category. A
// missing category only degrades the scenario block's type line, so it is
// logged and tolerated; a missing scenario record is a real inconsistency.
func (s *Service) boundScenario(ctx context.Context, conv *domain.Conversation) (*domain.Scenario, *domain.ScenarioCategory, error) {
	if conv.ScenarioID == "" {
		return nil, nil, nil
	}

	scenario, err := s.scenarios.GetScenario(conv.ScenarioID)
	if err != nil {
		return nil, nil, fmt.Errorf("send message: bound scenario: %w", err)
	}

	category, err := s.scenarios.GetCategory(scenario.CategoryCode)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("scenario category missing",
			"scenario_id", scenario.ID,
			"category_code", scenario.CategoryCode)
		category = nil
	}

	return scenario, category, nil
}
