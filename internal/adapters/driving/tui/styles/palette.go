// Package styles provides the colour palette and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Palette names the colours of the TUI by role. Every role carries a light
// and a dark variant; lipgloss picks one for the terminal background.
type Palette struct {
	// Accent marks titles, selection and the assistant's turns.
	Accent lipgloss.AdaptiveColor

	// Highlight marks subtitles and the user's turns.
	Highlight lipgloss.AdaptiveColor

	Text   lipgloss.AdaptiveColor
	Subtle lipgloss.AdaptiveColor

	// Surface is the status bar fill and the text colour on Accent.
	Surface lipgloss.AdaptiveColor

	Line lipgloss.AdaptiveColor

	// Ready, Pending and Danger follow the document lifecycle.
	Ready   lipgloss.AdaptiveColor
	Pending lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor
}

// DefaultPalette returns the docchat palette.
func DefaultPalette() *Palette {
	return &Palette{
		Accent:    lipgloss.AdaptiveColor{Light: "#B5472C", Dark: "#E07A5F"}, // terracotta
		Highlight: lipgloss.AdaptiveColor{Light: "#3D7A5E", Dark: "#81B29A"}, // sage
		Text:      lipgloss.AdaptiveColor{Light: "#2B2A28", Dark: "#E8E4D9"},
		Subtle:    lipgloss.AdaptiveColor{Light: "#77726A", Dark: "#8A857A"},
		Surface:   lipgloss.AdaptiveColor{Light: "#F2EFE6", Dark: "#26241F"},
		Line:      lipgloss.AdaptiveColor{Light: "#CFC9BB", Dark: "#4A463E"},
		Ready:     lipgloss.AdaptiveColor{Light: "#4F7A12", Dark: "#9BC53D"},
		Pending:   lipgloss.AdaptiveColor{Light: "#A86F0B", Dark: "#F2CC8F"},
		Danger:    lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#EF6461"},
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	palette *Palette

	// Title style for headers.
	Title lipgloss.Style

	// Subtitle style for secondary headers.
	Subtitle lipgloss.Style

	// Normal style for regular text.
	Normal lipgloss.Style

	// Muted style for less important text.
	Muted lipgloss.Style

	// Selected style for highlighted items.
	Selected lipgloss.Style

	// Error style for error messages.
	Error lipgloss.Style

	// Success style for success messages.
	Success lipgloss.Style

	// Warning style for warning messages.
	Warning lipgloss.Style

	// InputField style for input areas.
	InputField lipgloss.Style

	// StatusBar style for the status bar.
	StatusBar lipgloss.Style

	// Help style for help text.
	Help lipgloss.Style

	// Border style for bordered containers.
	Border lipgloss.Style

	// User labels the user's chat turns.
	User lipgloss.Style

	// Assistant labels the assistant's chat turns.
	Assistant lipgloss.Style
}

// NewStyles creates styles from a palette.
func NewStyles(p *Palette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}

	return &Styles{
		palette: p,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Highlight),

		Normal: lipgloss.NewStyle().
			Foreground(p.Text),

		Muted: lipgloss.NewStyle().
			Foreground(p.Subtle),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Surface).
			Background(p.Accent),

		Error: lipgloss.NewStyle().
			Foreground(p.Danger),

		Success: lipgloss.NewStyle().
			Foreground(p.Ready),

		Warning: lipgloss.NewStyle().
			Foreground(p.Pending),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Line).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Surface).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Italic(true).
			Foreground(p.Subtle),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Line),

		User: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Highlight),

		Assistant: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent),
	}
}

// StatusBadge renders a document status in its colour.
func (s *Styles) StatusBadge(status domain.DocumentStatus) string {
	switch status {
	case domain.DocumentProcessed:
		return s.Success.Render("● processed")
	case domain.DocumentProcessing:
		return s.Warning.Render("◌ processing")
	case domain.DocumentFailed:
		return s.Error.Render("✗ failed")
	default:
		return s.Muted.Render("? " + status.String())
	}
}

// DefaultStyles returns styles built from DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}

// Palette returns the palette used by these styles.
func (s *Styles) Palette() *Palette {
	return s.palette
}
