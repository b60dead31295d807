// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// NetworkRow represents a selectable network in the list.
type NetworkRow struct {
	ID      string
	Name    string
	ChainID uint64
	Symbol  string
}

// NetworksComponent renders the supported networks list with a cursor.
type NetworksComponent struct {
	rows     []NetworkRow
	selected int
	active   uint64 // chain id of the session's current network, 0 if none
}

// NewNetworksComponent creates a new networks component.
func NewNetworksComponent() *NetworksComponent {
	return &NetworksComponent{}
}

// Update replaces the network rows, clamping the cursor.
func (n *NetworksComponent) Update(rows []NetworkRow) {
	n.rows = rows
	if n.selected >= len(rows) {
		n.selected = 0
	}
}

// SetActive marks the chain id the wallet is currently on.
func (n *NetworksComponent) SetActive(chainID uint64) {
	n.active = chainID
}

// Next advances the cursor, wrapping around.
func (n *NetworksComponent) Next() {
	if len(n.rows) == 0 {
		return
	}
	n.selected = (n.selected + 1) % len(n.rows)
}

// Selected returns the network under the cursor, if any.
func (n *NetworksComponent) Selected() (NetworkRow, bool) {
	if n.selected < 0 || n.selected >= len(n.rows) {
		return NetworkRow{}, false
	}
	return n.rows[n.selected], true
}

// View renders the networks list.
func (n *NetworksComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("NETWORKS"))
	sb.WriteString("\n\n")

	if len(n.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  No networks configured"))
		return sb.String()
	}

	for i, row := range n.rows {
		cursor := "  "
		if i == n.selected {
			cursor = cursorStyle.Render("> ")
		}

		line := fmt.Sprintf("%s (chain %d, %s)", row.Name, row.ChainID, row.Symbol)
		if row.ChainID == n.active {
			sb.WriteString(cursor + activeStyle.Render("● "+line))
		} else {
			sb.WriteString(cursor + mutedStyle.Render("○ "+line))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
