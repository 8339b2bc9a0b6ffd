package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/minjae-dev/lurebait/internal/domain"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.ConversationID][]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.ConversationID][]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &stored)
	return nil
}

func (s *MessageStore) ListMessages(conversationID domain.ConversationID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}

	// Creation time orders turns; insertion order breaks ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MessageStore) DeleteMessagesByConversation(conversationID domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, conversationID)
	return nil
}
