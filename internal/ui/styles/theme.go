package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	Primary lipgloss.Color
	Accent  lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
}

// Mocha is the default color theme
var Mocha = Theme{
	Name: "Catppuccin Mocha",

	Foreground:    lipgloss.Color("#cdd6f4"),
	ForegroundDim: lipgloss.Color("#6c7086"),

	Primary: lipgloss.Color("#89b4fa"),
	Accent:  lipgloss.Color("#cba6f7"),

	Success: lipgloss.Color("#a6e3a1"),
	Warning: lipgloss.Color("#f9e2af"),
	Error:   lipgloss.Color("#f38ba8"),

	Border:      lipgloss.Color("#45475a"),
	BorderFocus: lipgloss.Color("#89b4fa"),
	Selection:   lipgloss.Color("#313244"),
}

// Current holds the active theme
var Current = Mocha

// MaxWidth is the maximum content width for the app
const MaxWidth = 80

// ContentWidth returns the actual content width to use
func ContentWidth(terminalWidth int) int {
	if terminalWidth > MaxWidth {
		return MaxWidth
	}
	return terminalWidth
}

// CenterView centers content horizontally if the terminal is wider
// than MaxWidth
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

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	// Filter bar and view-mode tabs
	FilterActive   lipgloss.Style
	FilterInactive lipgloss.Style
	TabActive      lipgloss.Style
	TabInactive    lipgloss.Style

	// Task line fragments
	Checkbox  lipgloss.Style
	DoneTitle lipgloss.Style
	DueDate   lipgloss.Style
	Overdue   lipgloss.Style

	Input        lipgloss.Style
	InputFocused lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonPrimary lipgloss.Style

	NoticeSuccess lipgloss.Style
	NoticeError   lipgloss.Style

	Popup lipgloss.Style

	Help     lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
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

		ListItem: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 2),

		ListSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),

		FilterActive: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true).
			Padding(0, 1),

		FilterInactive: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true).
			Underline(true).
			Padding(0, 1),

		TabInactive: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 1),

		Checkbox: lipgloss.NewStyle().
			Foreground(t.Success),

		DoneTitle: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Strikethrough(true),

		DueDate: lipgloss.NewStyle().
			Foreground(t.Warning),

		Overdue: lipgloss.NewStyle().
			Foreground(t.Error).
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
			Foreground(lipgloss.Color("#1e1e2e")).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		NoticeSuccess: lipgloss.NewStyle().
			Foreground(t.Success).
			Padding(0, 1),

		NoticeError: lipgloss.NewStyle().
			Foreground(t.Error).
			Padding(0, 1),

		Popup: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),

		Help: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(1, 2),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		HelpDesc: lipgloss.NewStyle().
			Foreground(t.ForegroundDim),
	}
}
