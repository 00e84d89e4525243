package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

// Styles holds the look of each kind of transcript line.
type Styles struct {
	ParticipantLabel lipgloss.Style
	AgentLabel       lipgloss.Style
	Participant      lipgloss.Style
	Agent            lipgloss.Style
	Empty            lipgloss.Style
	Status           lipgloss.Style
}

// NewStyles builds styles whose color profile is detected from w, so plain
// buffers and pipes receive uncolored text.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)

	return Styles{
		ParticipantLabel: r.NewStyle().
			Foreground(lipgloss.Color("#7aa2f7")).
			Bold(true),
		AgentLabel: r.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true),
		Participant: r.NewStyle(),
		Agent: r.NewStyle().
			PaddingLeft(2),
		Empty: r.NewStyle().
			Foreground(lipgloss.Color("#565f89")).
			Italic(true),
		Status: r.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
	}
}

// Turn formats one transcript turn as a single block of text.
func (s Styles) Turn(turn chat.Turn) string {
	if turn.Speaker == chat.Participant {
		return s.ParticipantLabel.Render("you") + " " + s.Participant.Render(turn.Content)
	}

	content := s.Agent.Render(turn.Content)
	if turn.Content == "" {
		content = s.Agent.Render(s.Empty.Render("(empty reply)"))
	}
	return s.AgentLabel.Render("agent") + content
}
