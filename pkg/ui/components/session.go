// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SessionView holds the display fields of the wallet session.
type SessionView struct {
	Phase          string
	Address        string
	NetworkName    string
	ChainID        uint64
	CurrencySymbol string
	Balance        string
	LastError      string
}

// SessionComponent renders the wallet session panel.
type SessionComponent struct {
	view SessionView
}

// NewSessionComponent creates a new session component.
func NewSessionComponent() *SessionComponent {
	return &SessionComponent{
		view: SessionView{Phase: "disconnected"},
	}
}

// Update replaces the displayed session.
func (s *SessionComponent) Update(view SessionView) {
	s.view = view
}

// View renders the session panel.
func (s *SessionComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var phaseStyle lipgloss.Style
	switch s.view.Phase {
	case "connected":
		phaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	case "connecting", "switching":
		phaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	default:
		phaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("WALLET"))
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render("  Status   "))
	sb.WriteString(phaseStyle.Render(strings.ToUpper(s.view.Phase)))
	sb.WriteString("\n")

	address := s.view.Address
	if address == "" {
		address = "-"
	}
	sb.WriteString(labelStyle.Render("  Account  "))
	sb.WriteString(valueStyle.Render(address))
	sb.WriteString("\n")

	network := s.view.NetworkName
	if network == "" && s.view.ChainID != 0 {
		network = fmt.Sprintf("unknown (chain %d)", s.view.ChainID)
	}
	if network == "" {
		network = "-"
	}
	sb.WriteString(labelStyle.Render("  Network  "))
	sb.WriteString(valueStyle.Render(network))
	sb.WriteString("\n")

	balance := "-"
	if s.view.Balance != "" {
		balance = s.view.Balance
		if s.view.CurrencySymbol != "" {
			balance += " " + s.view.CurrencySymbol
		}
	}
	sb.WriteString(labelStyle.Render("  Balance  "))
	sb.WriteString(valueStyle.Render(balance))
	sb.WriteString("\n")

	if s.view.LastError != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("  ⚠ " + s.view.LastError))
		sb.WriteString("\n")
	}

	return sb.String()
}
