package domain

// Persona is a reusable AI character definition. It is read-only input to
// the exchange pipeline; editing it mid-conversation is not supported.
type Persona struct {
	ID                PersonaID
	Name              string
	SystemInstruction string
	// OpeningLine, when set, is seeded as the persona's first visible AI
	// turn right after a conversation is created.
	OpeningLine string
	Public      bool
	OwnerID     UserID
}
