package domain

import "time"

type ConversationID string
type MessageID string
type PersonaID string
type ScenarioID string
type UserID string

type Role string

const (
	RoleUser   Role = "user"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// ScenarioPolicyMode controls how a scenario is picked when a conversation starts.
type ScenarioPolicyMode string

const (
	// ScenarioAny picks a random scenario from the whole pool; the
	// conversation starts without one if the pool is empty.
	ScenarioAny ScenarioPolicyMode = "any"
	// ScenarioByCategory picks a random scenario from one category, and
	// falls back to synthesizing a new one when the category is empty.
	ScenarioByCategory ScenarioPolicyMode = "category"
	// ScenarioForceFresh always synthesizes a new scenario for the
	// category, ignoring stored ones.
	ScenarioForceFresh ScenarioPolicyMode = "force_fresh"
)

// ScenarioPolicy is the scenario-selection request attached to StartConversation.
// CategoryCode is required for ScenarioByCategory and ScenarioForceFresh.
type ScenarioPolicy struct {
	Mode         ScenarioPolicyMode
	CategoryCode string
}

type Timestamp = time.Time
