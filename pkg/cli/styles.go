package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/voxauth/voxauth/pkg/verify"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary  lipgloss.Color // headings and labels
	Accept   lipgloss.Color // granted decisions
	Possible lipgloss.Color // tentative matches
	Reject   lipgloss.Color // denied decisions
	Dim      lipgloss.Color // secondary text
}

// DefaultTheme is the standard scheme.
var DefaultTheme = Theme{
	Primary:  lipgloss.Color("#00ff9f"),
	Accept:   lipgloss.Color("#00d75f"),
	Possible: lipgloss.Color("#ffaf00"),
	Reject:   lipgloss.Color("#ff5f5f"),
	Dim:      lipgloss.Color("#6e7681"),
}

// Styles holds the rendered styles derived from a theme.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Dim      lipgloss.Style
	accept   lipgloss.Style
	possible lipgloss.Style
	reject   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Dim:      lipgloss.NewStyle().Foreground(t.Dim),
		accept:   lipgloss.NewStyle().Bold(true).Foreground(t.Accept),
		possible: lipgloss.NewStyle().Bold(true).Foreground(t.Possible),
		reject:   lipgloss.NewStyle().Bold(true).Foreground(t.Reject),
	}
}

// Decision renders a colored badge for a verification decision.
func (s Styles) Decision(d verify.Decision) string {
	switch d {
	case verify.Accept:
		return s.accept.Render("ACCEPT")
	case verify.PossibleMatch:
		return s.possible.Render("POSSIBLE MATCH")
	default:
		return s.reject.Render("REJECT")
	}
}

// KV renders one aligned "label: value" line.
func (s Styles) KV(label, value string) string {
	return fmt.Sprintf("%s %s", s.Label.Render(label+":"), value)
}

// Result renders a verification result as a short block.
func (s Styles) Result(r verify.Result) string {
	return s.KV("decision", s.Decision(r.Decision)) + "\n" +
		s.KV("identity", r.Identity) + "\n" +
		s.KV("score", fmt.Sprintf("%.4f", r.Score))
}
