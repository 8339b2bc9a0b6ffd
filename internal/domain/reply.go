package domain

// ProgressCheck reports how far the current topic has progressed.
type ProgressCheck struct {
	StatusSummary   string `json:"status_summary"`
	IsReadyToMoveOn bool   `json:"is_ready_to_move_on"`
}

// StructuredReply is the provider's response constrained to a fixed JSON
// schema. TokenUsage is filled in by the gateway from a separate accounting
// call; the schema deliberately has no usage field the model could invent.
type StructuredReply struct {
	Response               string        `json:"response"`
	SuggestedUserQuestions []string      `json:"suggested_user_questions"`
	ProgressCheck          ProgressCheck `json:"progress_check"`
	SessionEndMessage      *string       `json:"session_end_message"`
	NextTopicSuggestions   []string      `json:"next_topic_suggestions"`

	TokenUsage int32 `json:"-"`
}

// TranscriptEntry is one line of the redacted prompt transcript returned for
// diagnostic replay. Binary content is summarized, never included.
type TranscriptEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
