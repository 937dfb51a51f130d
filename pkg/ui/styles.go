package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/wschat/pkg/chatview"
	"github.com/go-go-golems/wschat/pkg/transport"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	systemStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	buttonStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	buttonFocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63")).Bold(true).Padding(0, 1)
)

func roleLabel(r chatview.Role) string {
	switch r {
	case chatview.RoleUser:
		return userStyle.Render("You")
	case chatview.RoleAssistant:
		return assistantStyle.Render("Assistant")
	case chatview.RoleSystem:
		return systemStyle.Render("System")
	default:
		return string(r)
	}
}

func stateStyle(s transport.State) lipgloss.Style {
	switch s {
	case transport.StateOpen:
		return assistantStyle
	case transport.StateErrored, transport.StateClosed:
		return errorStyle
	default:
		return statusStyle
	}
}
