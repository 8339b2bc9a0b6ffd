package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/minjae-dev/lurebait/internal/domain"
)

type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]*domain.Conversation
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[domain.ConversationID]*domain.Conversation),
	}
}

func (s *ConversationStore) CreateConversation(conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}

	stored := *conv
	s.conversations[conv.ID] = &stored
	return nil
}

func (s *ConversationStore) GetConversation(id domain.ConversationID) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	out := *conv
	return &out, nil
}

func (s *ConversationStore) GetConversationForUser(id domain.ConversationID, userID domain.UserID) (*domain.Conversation, error) {
	conv, err := s.GetConversation(id)
	if err != nil {
		return nil, err
	}
	// Someone else's conversation looks exactly like a missing one.
	if conv.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return conv, nil
}

func (s *ConversationStore) ListConversationsByUser(userID domain.UserID, limit int) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Conversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			out := *conv
			result = append(result, &out)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *ConversationStore) BindScenario(id domain.ConversationID, scenarioID domain.ScenarioID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	conv.ScenarioID = scenarioID
	return nil
}

func (s *ConversationStore) TouchLastActivity(id domain.ConversationID, at domain.Timestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	// LastMessageAt never moves backwards.
	if at.After(conv.LastMessageAt) {
		conv.LastMessageAt = at
	}
	return nil
}

func (s *ConversationStore) DeleteConversation(id domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	delete(s.conversations, id)
	return nil
}
