package theme

import "github.com/charmbracelet/lipgloss"

// Styles describes reusable Lip Gloss styles shared across the UI.
type Styles struct {
	Header       *lipgloss.Style
	Footer       *lipgloss.Style
	Error        *lipgloss.Style
	Info         *lipgloss.Style
	Cursor       *lipgloss.Style
	Filter       *lipgloss.Style
	FilterPrompt *lipgloss.Style

	Tab       *lipgloss.Style
	ActiveTab *lipgloss.Style

	Item         *lipgloss.Style
	SelectedItem *lipgloss.Style
	TreeBranch   *lipgloss.Style
	TopicCount   *lipgloss.Style
	RetainBadge  *lipgloss.Style
	QoSBadge     *lipgloss.Style
	Timestamp    *lipgloss.Style
	PayloadBody  *lipgloss.Style
	PayloadTitle *lipgloss.Style

	StatusDisconnected *lipgloss.Style
	StatusConnecting   *lipgloss.Style
	StatusConnected    *lipgloss.Style
	StatusError        *lipgloss.Style

	FormLabel *lipgloss.Style
	FormFocus *lipgloss.Style
}

var defaultStyles = Styles{
	Header: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
	),
	Footer: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	Error: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
	Info: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	Cursor: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("33")).Blink(true),
	),
	Filter: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	FilterPrompt: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	),
	Tab: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1),
	),
	ActiveTab: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Bold(true).Padding(0, 1),
	),
	Item: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	SelectedItem: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Bold(true),
	),
	TreeBranch: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	),
	TopicCount: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	RetainBadge: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("178")).Padding(0, 1),
	),
	QoSBadge: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	),
	Timestamp: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	PayloadBody: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	),
	PayloadTitle: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
	),
	StatusDisconnected: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	),
	StatusConnecting: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
	),
	StatusConnected: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	),
	StatusError: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	),
	FormLabel: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	),
	FormFocus: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
	),
}

// Default exposes the standard style set used across the application.
func Default() *Styles {
	return &defaultStyles
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
