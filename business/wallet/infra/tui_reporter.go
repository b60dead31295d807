package infra

import (
	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/pkg/ui"
)

// TUIReporter implements StatusSink for the Bubble Tea dashboard. Snapshots
// are forwarded as messages; the UI never shares state with the controller.
type TUIReporter struct{}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// SessionChanged sends the snapshot to the running program. Dropped silently
// when the program is not up yet; the UI pulls a fresh snapshot on start.
func (r *TUIReporter) SessionChanged(session domain.Session) {
	ui.Send(ui.SessionMsg{Session: session})
}
