package render

import "github.com/charmbracelet/lipgloss"

// Nord-leaning palette, matching the markdown theme the original client
// shipped with.
var (
	StylePrompt  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0"))
	StyleBanner  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0"))
	StyleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4C566A"))
	StyleWarn    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	StyleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A"))
	StyleOK      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A3BE8C"))
	StyleCommand = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))

	stylesSpinner = lipgloss.NewStyle().Foreground(lipgloss.Color("#81A1C1"))
)
