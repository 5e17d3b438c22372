package intent

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Authorization buffer over price*quantity, tolerating price drift between
// bid time and execution time. Carried as an exact ratio so no float ever
// touches the amount.
var (
	bufferNum = decimal.NewFromInt(110)
	bufferDen = decimal.NewFromInt(100)
)

// CalculateMaxAuthorizedAmount returns the token-spend ceiling for a permit
// backing a bid: price × quantity plus a 10% safety buffer, converted to the
// token's base units exactly once. Rounds up, because an authorization a
// single base unit short fails the whole fill.
func CalculateMaxAuthorizedAmount(price decimal.Decimal, quantity int64, tokenDecimals int32) (*big.Int, error) {
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidIntent)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidIntent)
	}
	buffered := price.
		Mul(decimal.NewFromInt(quantity)).
		Mul(bufferNum).
		Div(bufferDen)
	return buffered.Shift(tokenDecimals).Ceil().BigInt(), nil
}

// EffectivePrice divides the amount actually spent by the quantity actually
// received, in 6-decimal fixed point. Settlement recomputes this from real
// fill amounts, never from the quote.
func EffectivePrice(spent decimal.Decimal, received decimal.Decimal) (decimal.Decimal, error) {
	if received.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: received amount must be positive", ErrInvalidIntent)
	}
	return spent.DivRound(received, usdScale), nil
}
