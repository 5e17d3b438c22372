// Package intent builds and validates cross-asset bid intents: signed
// authorizations that let the external executor convert a bidder's chosen
// token into the launch's settlement currency, capped by a max token count
// and a max effective price.
package intent

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidIntent = errors.New("invalid intent parameters")

// DeadlineHorizon is the fixed validity window applied at build time.
const DeadlineHorizon = 7 * 24 * time.Hour

// usdScale is the fixed-point precision for effective prices (USDC, 6
// fractional digits).
const usdScale = 6

type BidIntent struct {
	Bidder            common.Address
	BidToken          common.Address
	BidAmount         *big.Int // bid token base units
	AuctionToken      common.Address
	MaxAuctionTokens  *big.Int
	MaxEffectivePrice *big.Int // USDC per auction token, 6-decimal fixed point
	Deadline          time.Time
	Nonce             *big.Int
	Salt              string
}

type BuildParams struct {
	Bidder                string
	BidToken              string
	BidAmount             string // decimal string in token display units
	BidTokenDecimals      int32
	AuctionToken          string
	MaxAuctionTokens      string // whole auction tokens
	MaxEffectivePriceUSDC string // decimal string
	Now                   time.Time // zero means time.Now().UTC()
}

// Build normalizes decimal-string amounts into integer base units and derives
// the deadline and a fresh salt/nonce. It rejects malformed inputs; economic
// validity (positive amounts, live deadline) is Validate's job, and callers
// run Validate before signing.
func Build(p BuildParams) (*BidIntent, error) {
	bidder, err := parseAddress(p.Bidder)
	if err != nil {
		return nil, fmt.Errorf("bidder: %w", err)
	}
	bidToken, err := parseAddress(p.BidToken)
	if err != nil {
		return nil, fmt.Errorf("bid token: %w", err)
	}
	auctionToken, err := parseAddress(p.AuctionToken)
	if err != nil {
		return nil, fmt.Errorf("auction token: %w", err)
	}

	bidAmount, err := toBaseUnits(p.BidAmount, p.BidTokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("bid amount: %w", err)
	}
	maxTokens, err := toBaseUnits(p.MaxAuctionTokens, 0)
	if err != nil {
		return nil, fmt.Errorf("max auction tokens: %w", err)
	}
	maxPrice, err := toBaseUnits(p.MaxEffectivePriceUSDC, usdScale)
	if err != nil {
		return nil, fmt.Errorf("max effective price: %w", err)
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	salt := uuid.NewString()
	return &BidIntent{
		Bidder:            bidder,
		BidToken:          bidToken,
		BidAmount:         bidAmount,
		AuctionToken:      auctionToken,
		MaxAuctionTokens:  maxTokens,
		MaxEffectivePrice: maxPrice,
		Deadline:          now.Add(DeadlineHorizon),
		Nonce:             nonceFromSalt(salt),
		Salt:              salt,
	}, nil
}

// Validate is a pure predicate: false, never an error. False means "reject
// before signing or accepting".
func Validate(i *BidIntent, now time.Time) bool {
	if i == nil {
		return false
	}
	if i.Bidder == (common.Address{}) {
		return false
	}
	if i.BidAmount == nil || i.BidAmount.Sign() <= 0 {
		return false
	}
	if i.MaxAuctionTokens == nil || i.MaxAuctionTokens.Sign() <= 0 {
		return false
	}
	if i.MaxEffectivePrice == nil || i.MaxEffectivePrice.Sign() <= 0 {
		return false
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	// Deadline is exclusive: an intent expiring exactly now is already dead.
	return i.Deadline.After(now)
}

// toBaseUnits converts a decimal display amount to integer base units at the
// token's declared precision. Amounts with more fractional digits than the
// token supports are rejected rather than silently truncated.
func toBaseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s exceeds %d decimal precision", ErrInvalidIntent, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// nonceFromSalt maps the record salt onto the signed uint256 nonce so the
// replay guard in the signature and the uniqueness constraint in the store
// protect the same value.
func nonceFromSalt(salt string) *big.Int {
	id, err := uuid.Parse(salt)
	if err != nil {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(id[:])
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", ErrInvalidIntent, raw)
	}
	return common.HexToAddress(raw), nil
}
