package domain

import "context"

// PersonaStore resolves persona definitions for the pipeline. Implementations
// return ErrNotFound for unknown IDs.
type PersonaStore interface {
	GetPersona(id PersonaID) (*Persona, error)
}

// ConversationStore defines conversation persistence.
type ConversationStore interface {
	CreateConversation(conv *Conversation) error
	// GetConversation resolves by ID regardless of owner (elevated access).
	GetConversation(id ConversationID) (*Conversation, error)
	// GetConversationForUser resolves by ID scoped to an owner; an existing
	// conversation owned by someone else is ErrNotFound, not a permission error.
	GetConversationForUser(id ConversationID, userID UserID) (*Conversation, error)
	ListConversationsByUser(userID UserID, limit int) ([]*Conversation, error)
	BindScenario(id ConversationID, scenarioID ScenarioID) error
	// TouchLastActivity advances LastMessageAt to at.
	TouchLastActivity(id ConversationID, at Timestamp) error
	DeleteConversation(id ConversationID) error
}

// MessageStore defines message persistence.
type MessageStore interface {
	AppendMessage(msg *Message) error
	// ListMessages returns the full thread in creation order, no pagination.
	ListMessages(conversationID ConversationID) ([]*Message, error)
	DeleteMessagesByConversation(conversationID ConversationID) error
}

// ScenarioStore holds scenario categories and concrete scenario records.
type ScenarioStore interface {
	// SeedCategories inserts the category catalog; existing codes are kept as is.
	SeedCategories(categories []*ScenarioCategory) error
	GetCategory(code string) (*ScenarioCategory, error)
	ListCategories() ([]*ScenarioCategory, error)
	CreateScenario(sc *Scenario) error
	GetScenario(id ScenarioID) (*Scenario, error)
	// RandomScenario picks uniformly among scenarios in categoryCode, or in
	// the whole pool when categoryCode is empty. Returns (nil, nil) when
	// nothing matches.
	RandomScenario(categoryCode string) (*Scenario, error)
}

// ObjectStore is the attachment storage collaborator. Keys are caller
// generated, opaque strings.
type ObjectStore interface {
	Put(key string, data []byte, contentType string) error
	Delete(key string) error
}

// ReplyRequest is everything the gateway needs to build one model call.
type ReplyRequest struct {
	SystemInstruction string
	History           []*Message
	UserText          string
	Attachment        []byte // raw image bytes, may be nil
	Scenario          *Scenario
	Category          *ScenarioCategory // description of Scenario's category
	// ScriptedOpening is injected as a synthetic leading model turn when
	// history is empty: the opening line was shown to the user but may not
	// exist as a persisted message yet at prompt-construction time.
	ScriptedOpening string
}

// ReplyClient defines how the core talks to the generative AI provider.
type ReplyClient interface {
	// Available reports whether a provider credential is configured, so
	// callers can fail fast with ErrServiceDisabled before loading history.
	Available() bool
	Respond(ctx context.Context, req ReplyRequest) (*StructuredReply, []TranscriptEntry, error)
	SynthesizeScenario(ctx context.Context, category *ScenarioCategory) (*ScenarioDraft, error)
}
