package session

import "github.com/zhouzirui/z-chat/internal/model/chat"

// FallbackMessage is what the participant sees when an exchange fails.
const FallbackMessage = "Sorry, something went wrong."

// FallbackPolicy maps a failed exchange to the turn recorded in its place.
// The returned turn is always stored with the Agent speaker.
type FallbackPolicy func(err error) chat.Turn

// DefaultFallback ignores the failure detail and apologises.
func DefaultFallback(error) chat.Turn {
	return chat.AgentTurn(FallbackMessage)
}
