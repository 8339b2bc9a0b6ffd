package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minjae-dev/lurebait/internal/domain"
	"github.com/minjae-dev/lurebait/internal/observability"
)

// Service is the conversation lifecycle manager: it creates conversations,
// resolves and binds a scenario according to the requested policy, and seeds
// the persona's scripted opening line as the first visible turn.
type Service struct {
	replies       domain.ReplyClient
	conversations domain.ConversationStore
	messages      domain.MessageStore
	personas      domain.PersonaStore
	scenarios     domain.ScenarioStore
	objects       domain.ObjectStore

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
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

type StartConversationInput struct {
	PersonaID   domain.PersonaID
	RequestorID domain.UserID
	Title       string
	Policy      domain.ScenarioPolicy
}

type StartConversationOutput struct {
	Conversation *domain.Conversation
	// Opening is the seeded first AI turn, nil when the persona has no
	// scripted opening line.
	Opening *domain.Message
}

// StartConversation creates a conversation for the requestor and persona.
// Policies that can synthesize resolve their scenario before the row is
// created, so a synthesis failure aborts with zero writes and no
// conversation is ever left half-bound to a scenario that failed to
// materialize.
func (s *Service) StartConversation(ctx context.Context, in StartConversationInput) (*StartConversationOutput, error) {
	log := observability.LoggerFromContext(ctx).With(
		"persona_id", in.PersonaID,
		"user_id", in.RequestorID,
		"scenario_policy", in.Policy.Mode,
	)

	persona, err := s.personas.GetPersona(in.PersonaID)
	if err != nil {
		return nil, fmt.Errorf("start conversation: persona: %w", err)
	}

	var scenario *domain.Scenario
	switch in.Policy.Mode {
	case domain.ScenarioForceFresh:
		scenario, err = s.synthesizeScenario(ctx, in.Policy.CategoryCode)
		if err != nil {
			return nil, err
		}

	case domain.ScenarioByCategory:
		category, err := s.categoryForPolicy(in.Policy.CategoryCode)
		if err != nil {
			return nil, err
		}
		scenario, err = s.scenarios.RandomScenario(category.Code)
		if err != nil {
			return nil, fmt.Errorf("start conversation: random scenario: %w", err)
		}
		if scenario == nil {
			log.Info("category has no stored scenario, synthesizing one", "category", category.Code)
			scenario, err = s.storeDraft(ctx, category)
			if err != nil {
				return nil, err
			}
		}

	case domain.ScenarioAny, "":
		// Resolved after the row exists; a bare conversation without a
		// bound scenario is a valid transient (and, with an empty pool,
		// final) state under this policy.

	default:
		return nil, fmt.Errorf("start conversation: unknown scenario policy %q: %w", in.Policy.Mode, domain.ErrInvalidInput)
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:            domain.ConversationID(s.newID()),
		UserID:        in.RequestorID,
		PersonaID:     in.PersonaID,
		Title:         in.Title,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := s.conversations.CreateConversation(conv); err != nil {
		return nil, fmt.Errorf("start conversation: create: %w", err)
	}

	if in.Policy.Mode == domain.ScenarioAny || in.Policy.Mode == "" {
		scenario, err = s.scenarios.RandomScenario("")
		if err != nil {
			return nil, fmt.Errorf("start conversation: random scenario: %w", err)
		}
	}

	if scenario != nil {
		if err := s.conversations.BindScenario(conv.ID, scenario.ID); err != nil {
			return nil, fmt.Errorf("start conversation: bind scenario: %w", err)
		}
		conv.ScenarioID = scenario.ID
	}

	var opening *domain.Message
	if persona.OpeningLine != "" {
		opening = &domain.Message{
			ID:             domain.MessageID(s.newID()),
			ConversationID: conv.ID,
			Sender:         domain.RoleAI,
			Content:        persona.OpeningLine,
			CreatedAt:      s.now(),
		}
		if err := s.messages.AppendMessage(opening); err != nil {
			return nil, fmt.Errorf("start conversation: seed opening: %w", err)
		}
		if err := s.conversations.TouchLastActivity(conv.ID, opening.CreatedAt); err != nil {
			return nil, fmt.Errorf("start conversation: touch: %w", err)
		}
		conv.LastMessageAt = opening.CreatedAt
	}

	log.Info("conversation started",
		"conversation_id", conv.ID,
		"scenario_bound", conv.ScenarioID != "")

	return &StartConversationOutput{
		Conversation: conv,
		Opening:      opening,
	}, nil
}

// GetConversation resolves one conversation, scoped to the requestor unless
// elevated.
func (s *Service) GetConversation(
	ctx context.Context,
	id domain.ConversationID,
	requestorID domain.UserID,
	elevated bool,
) (*domain.Conversation, error) {
	if elevated {
		return s.conversations.GetConversation(id)
	}
	return s.conversations.GetConversationForUser(id, requestorID)
}

// ListConversations lists the requestor's conversations, most recent
// activity first.
func (s *Service) ListConversations(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Conversation, error) {
	return s.conversations.ListConversationsByUser(userID, limit)
}

// DeleteConversation removes a conversation with its messages. Attachment
// blobs are deleted best effort: object storage failures are logged and do
// not block the deletion.
func (s *Service) DeleteConversation(
	ctx context.Context,
	id domain.ConversationID,
	requestorID domain.UserID,
	elevated bool,
) error {
	conv, err := s.GetConversation(ctx, id, requestorID, elevated)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	log := observability.LoggerFromContext(ctx).With("conversation_id", conv.ID)

	msgs, err := s.messages.ListMessages(conv.ID)
	if err != nil {
		return fmt.Errorf("delete conversation: list messages: %w", err)
	}
	for _, m := range msgs {
		if m.AttachmentKey == "" {
			continue
		}
		if err := s.objects.Delete(m.AttachmentKey); err != nil {
			log.Warn("attachment delete failed", "key", m.AttachmentKey, "error", err)
		}
	}

	if err := s.messages.DeleteMessagesByConversation(conv.ID); err != nil {
		return fmt.Errorf("delete conversation: messages: %w", err)
	}
	if err := s.conversations.DeleteConversation(conv.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	log.Info("conversation deleted", "messages", len(msgs))
	return nil
}

// synthesizeScenario is the forceFresh path: always fabricate and persist a
// new scenario for the category, ignoring stored ones.
func (s *Service) synthesizeScenario(ctx context.Context, categoryCode string) (*domain.Scenario, error) {
	category, err := s.categoryForPolicy(categoryCode)
	if err != nil {
		return nil, err
	}
	return s.storeDraft(ctx, category)
}

func (s *Service) categoryForPolicy(code string) (*domain.ScenarioCategory, error) {
	if code == "" {
		return nil, fmt.Errorf("start conversation: scenario policy requires a category: %w", domain.ErrInvalidInput)
	}
	category, err := s.scenarios.GetCategory(code)
	if err != nil {
		return nil, fmt.Errorf("start conversation: category: %w", err)
	}
	return category, nil
}

// storeDraft persists a synthesized draft so later requests for the same
// category reuse it instead of paying for another generation.
func (s *Service) storeDraft(ctx context.Context, category *domain.ScenarioCategory) (*domain.Scenario, error) {
	draft, err := s.replies.SynthesizeScenario(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}

	scenario := &domain.Scenario{
		ID:           domain.ScenarioID(s.newID()),
		CategoryCode: category.Code,
		Title:        draft.Title,
		Body:         draft.Body,
		CreatedAt:    s.now(),
	}
	if err := s.scenarios.CreateScenario(scenario); err != nil {
		return nil, fmt.Errorf("start conversation: persist scenario: %w", err)
	}
	return scenario, nil
}
