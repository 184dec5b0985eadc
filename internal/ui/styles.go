package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Amber
	colorError     = lipgloss.Color("196") // Red
	colorWhite     = lipgloss.Color("255")
)

// TabActive style for the selected tab label.
var TabActive = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// TabInactive style for the other tab labels.
var TabInactive = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// SectionHeader style for headings inside a tab.
var SectionHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginBottom(1)

// SelectedItem style for the row under the cursor in list views.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary)

// NormalItem style for other rows.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255"))

// MutedText for hints and disabled values.
var MutedText = lipgloss.NewStyle().
	Foreground(colorMuted)

// Checked marks a selected checkbox.
var Checked = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// Log line styles by level.
var (
	LogInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	LogWarn  = lipgloss.NewStyle().Foreground(colorWarn)
	LogError = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	LogTime  = lipgloss.NewStyle().Foreground(colorMuted)
)

// LogPane frames the log viewport.
var LogPane = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// PromptStyle for the inline name prompt.
var PromptStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for section titles in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
