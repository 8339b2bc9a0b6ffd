package domain

import "strings"

// Conversation binds a user to a persona and, usually, to one covert
// deception scenario. LastMessageAt only moves forward: it is advanced to
// each new turn's creation time.
type Conversation struct {
	ID            ConversationID
	UserID        UserID
	PersonaID     PersonaID
	Title         string
	ScenarioID    ScenarioID // empty when no scenario is bound
	CreatedAt     Timestamp
	LastMessageAt Timestamp
}

// Message is one turn inside a conversation. Turns are never updated after
// creation; creation time orders them.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         Role
	Content        string
	AttachmentKey  string // object-storage key, empty when no attachment
	TokenUsage     int32  // set only on AI-authored turns
	CreatedAt      Timestamp
}

// Validate rejects turns that carry neither text nor an attachment.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Content) == "" && m.AttachmentKey == "" {
		return ErrInvalidInput
	}
	return nil
}
