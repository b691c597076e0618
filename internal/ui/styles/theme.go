package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskflow/internal/models"
)

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	Primary lipgloss.Color
	Accent  lipgloss.Color

	// Status colors
	Todo  lipgloss.Color
	Doing lipgloss.Color
	Done  lipgloss.Color

	Warning lipgloss.Color
	Error   lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
}

// Gruvbox is the default color theme
var Gruvbox = Theme{
	Name: "Gruvbox",

	Background:    lipgloss.Color("#282828"),
	Foreground:    lipgloss.Color("#ebdbb2"),
	ForegroundDim: lipgloss.Color("#928374"),

	Primary: lipgloss.Color("#83a598"),
	Accent:  lipgloss.Color("#d3869b"),

	Todo:  lipgloss.Color("#fabd2f"),
	Doing: lipgloss.Color("#8ec07c"),
	Done:  lipgloss.Color("#928374"),

	Warning: lipgloss.Color("#fe8019"),
	Error:   lipgloss.Color("#fb4934"),

	Border:      lipgloss.Color("#504945"),
	BorderFocus: lipgloss.Color("#83a598"),
	Selection:   lipgloss.Color("#3c3836"),
}

// Current holds the active theme
var Current = Gruvbox

// MaxWidth caps the content width so wide terminals get a centered column
const MaxWidth = 100

// ContentWidth returns min(terminal width, MaxWidth)
func ContentWidth(terminalWidth int) int {
	return min(terminalWidth, MaxWidth)
}

// CenterView centers content horizontally when the terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// Styles holds the pre-computed styles for the UI
type Styles struct {
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Tab        lipgloss.Style
	TabActive  lipgloss.Style

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	FilterBar lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonPrimary lipgloss.Style

	Input        lipgloss.Style
	InputFocused lipgloss.Style

	Help    lipgloss.Style
	HelpKey lipgloss.Style

	StatusLine lipgloss.Style
	ErrorLine  lipgloss.Style
	WarnLine   lipgloss.Style
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current

	return &Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		TitleMuted: lipgloss.NewStyle().
			Foreground(t.ForegroundDim),

		Tab: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 2),

		TabActive: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		ListItem: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 2),

		ListSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),

		FilterBar: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),

		Button: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 2),

		ButtonFocused: lipgloss.NewStyle().
			Foreground(t.Primary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 2).
			Bold(true),

		ButtonPrimary: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		Input: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),

		InputFocused: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(1, 2),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		StatusLine: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 2),

		ErrorLine: lipgloss.NewStyle().
			Foreground(t.Error).
			Padding(0, 2),

		WarnLine: lipgloss.NewStyle().
			Foreground(t.Warning).
			Padding(0, 2),
	}
}

// Status returns the badge style for a task status
func (s *Styles) Status(status models.Status) lipgloss.Style {
	t := Current
	color := t.Todo
	switch status {
	case models.StatusDoing:
		color = t.Doing
	case models.StatusDone:
		color = t.Done
	}
	return lipgloss.NewStyle().Foreground(color).Bold(status != models.StatusDone).Width(7)
}
