// Package infra contains infrastructure adapters for the wallet context.
package infra

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
)

// ConsoleReporter implements StatusSink for CLI output. It prints one line
// per observable session transition and stays quiet otherwise.
type ConsoleReporter struct {
	out  io.Writer
	mu   sync.Mutex
	last domain.Session
	seen bool
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// SessionChanged prints the transition to the console.
func (r *ConsoleReporter) SessionChanged(session domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen && session == r.last {
		return
	}
	r.seen = true
	prev := r.last
	r.last = session

	ts := time.Now().Format("15:04:05")

	if session.Phase() != prev.Phase() {
		fmt.Fprintf(r.out, "[%s] session: %s\n", ts, session.Phase())
	}
	if session.Address != prev.Address && session.Address != "" {
		fmt.Fprintf(r.out, "[%s] account: %s\n", ts, session.Address)
	}
	if session.ChainID != prev.ChainID && session.ChainID != 0 {
		fmt.Fprintf(r.out, "[%s] chain: %d (%s)\n", ts, session.ChainID, domain.ChainIDToHex(session.ChainID))
	}
	if session.BalanceDisplay != prev.BalanceDisplay && session.BalanceDisplay != "" {
		fmt.Fprintf(r.out, "[%s] balance: %s\n", ts, session.BalanceDisplay)
	}
	if session.LastError != nil && session.LastError != prev.LastError {
		fmt.Fprintf(r.out, "[%s] error: %v\n", ts, session.LastError)
	}
}
