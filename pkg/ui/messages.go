// Package ui provides the Bubble Tea TUI for the wallet bridge.
package ui

import (
	"time"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
)

// Message types for TUI updates

// SessionMsg is sent whenever the wallet session changes.
type SessionMsg struct {
	Session domain.Session
}

// NetworksMsg carries the supported network catalog for display.
type NetworksMsg struct {
	Networks []domain.NetworkDescriptor
}

// ConnectionStatusMsg is sent when the wallet agent link changes state.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}
