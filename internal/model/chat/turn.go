package chat

import "strings"

// Speaker identifies who produced a turn.
type Speaker string

const (
	Participant Speaker = "participant"
	Agent       Speaker = "agent"
)

// Valid reports whether s is one of the known speakers.
func (s Speaker) Valid() bool {
	return s == Participant || s == Agent
}

// Turn is one immutable entry in the transcript.
type Turn struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Content string  `json:"content" yaml:"content"`
}

// ParticipantTurn builds a participant turn from raw input. It trims
// surrounding whitespace and reports false when nothing is left.
func ParticipantTurn(raw string) (Turn, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Turn{}, false
	}
	return Turn{Speaker: Participant, Content: text}, true
}

// AgentTurn wraps reply text from the remote service. Empty content is allowed.
func AgentTurn(content string) Turn {
	return Turn{Speaker: Agent, Content: content}
}
