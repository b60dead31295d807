package domain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/kitefoundry/wallet-bridge/internal/apperror"
)

// Phase is the coarse connection phase derived from session contents.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseSwitching    Phase = "switching"
)

// Session is the observable connection state. It is owned exclusively by the
// connection controller; consumers receive value copies and never mutate it.
//
// Zero values mean absent: Address "" means no account, ChainID 0 means the
// chain is unknown, BalanceDisplay "" means no balance has been fetched.
type Session struct {
	Address        string
	ChainID        uint64
	BalanceDisplay string
	Connecting     bool
	Switching      bool
	LastError      error
}

// Connected reports whether an account address is held.
func (s Session) Connected() bool {
	return s.Address != ""
}

// Phase derives the display phase. Switching is a sub-state of Connected.
func (s Session) Phase() Phase {
	switch {
	case s.Connecting:
		return PhaseConnecting
	case s.Connected() && s.Switching:
		return PhaseSwitching
	case s.Connected():
		return PhaseConnected
	default:
		return PhaseDisconnected
	}
}

// NormalizeAddress validates a hex account address and returns its EIP-55
// checksummed form.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContext(address))
	}
	return common.HexToAddress(address).Hex(), nil
}
