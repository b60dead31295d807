package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/kitefoundry/wallet-bridge/internal/apperror"
)

// balanceDisplayPlaces is the fixed fractional precision of displayed balances.
const balanceDisplayPlaces = 4

// DefaultCurrencyDecimals is assumed when the active chain is not in the
// catalog and its currency metadata is unknown.
const DefaultCurrencyDecimals = 18

// ParseWeiHex decodes a provider balance result, a 0x-prefixed hex quantity
// in the currency's base unit.
func ParseWeiHex(s string) (*big.Int, error) {
	wei, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext(s))
	}
	return wei, nil
}

// FormatBalance converts a base-unit amount to the display string used by
// the session, e.g. 1e18 wei with 18 decimals renders as "1.0000".
//
// Conversion is display-only; arithmetic always happens on the raw value.
func FormatBalance(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return ""
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(balanceDisplayPlaces)
}
