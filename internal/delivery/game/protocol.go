package game

import "github.com/google/uuid"

// Frame types sent by the proxy plugin.
const (
	EventJoin   = "join"
	EventChat   = "chat"
	EventQuit   = "quit"
	EventRoster = "roster"
)

// Frame types sent to the proxy plugin.
const (
	CommandAssignGrade = "assign_grade"
	CommandRevokeGrade = "revoke_grade"
	CommandRunConsole  = "run_command"
)

// Event is an inbound frame from the proxy. Roster frames carry the full
// online list so presence survives a bridge reconnect.
type Event struct {
	Type     string         `json:"type"`
	UUID     uuid.UUID      `json:"uuid,omitempty"`
	Username string         `json:"username,omitempty"`
	Message  string         `json:"message,omitempty"`
	Players  []RosterPlayer `json:"players,omitempty"`
}

type RosterPlayer struct {
	UUID     uuid.UUID `json:"uuid"`
	Username string    `json:"username"`
}

// Command is an outbound frame asking the proxy to act.
type Command struct {
	Type    string    `json:"type"`
	UUID    uuid.UUID `json:"uuid,omitempty"`
	Grade   string    `json:"grade,omitempty"`
	Command string    `json:"command,omitempty"`
}
