// Package clearing computes the uniform clearing price and per-bid
// allocation for a launch. Clear is a pure function over an immutable
// snapshot: callers capture the bid set under the launch's lock and apply
// the result in the same transaction.
package clearing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotBid is one active bid copied out of storage. Nothing here aliases
// the persisted row, so concurrent mutation cannot reach a running clearing.
type SnapshotBid struct {
	BidID     uint64
	Price     decimal.Decimal
	Quantity  int64
	CreatedAt time.Time
}

type Fill struct {
	BidID        uint64
	FilledAmount int64
}

type Result struct {
	// Settled is false when no bid received any fill; ClearingPrice is
	// meaningless in that case and no settlement row should be produced.
	Settled bool

	ClearingPrice       decimal.Decimal
	FilledQuantity      int64
	SuccessfulBidsCount int
	Fills               []Fill
}

// Clear allocates targetAllocation across bids by price-time priority at a
// uniform price. Highest price first; among equal prices the earlier bid
// wins; the bid crossing the target gets exactly the remainder and ends the
// walk. Deterministic: the ordering is total (price desc, createdAt asc,
// bid id asc) and the input slice is never mutated.
func Clear(bids []SnapshotBid, targetAllocation int64) Result {
	if targetAllocation <= 0 {
		return Result{}
	}

	ordered := make([]SnapshotBid, 0, len(bids))
	for _, b := range bids {
		// Zero-quantity bids are no-ops and must not influence ordering.
		if b.Quantity <= 0 {
			continue
		}
		ordered = append(ordered, b)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Price.Equal(ordered[j].Price) {
			return ordered[i].Price.GreaterThan(ordered[j].Price)
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].BidID < ordered[j].BidID
	})

	res := Result{Fills: make([]Fill, 0, len(ordered))}
	var runningFilled int64
	for _, b := range ordered {
		remaining := targetAllocation - runningFilled
		if remaining <= 0 {
			break
		}
		fill := b.Quantity
		if fill > remaining {
			fill = remaining
		}
		res.Fills = append(res.Fills, Fill{BidID: b.BidID, FilledAmount: fill})
		res.ClearingPrice = b.Price
		res.SuccessfulBidsCount++
		runningFilled += fill
		if fill < b.Quantity {
			// Partial fill consumed the remainder; no lower-priced bid
			// receives anything.
			break
		}
	}

	res.FilledQuantity = runningFilled
	res.Settled = runningFilled > 0
	return res
}

// TotalRaised is the settlement currency collected at the uniform price:
// clearingPrice × filledQuantity.
func TotalRaised(res Result) decimal.Decimal {
	if !res.Settled {
		return decimal.Zero
	}
	return res.ClearingPrice.Mul(decimal.NewFromInt(res.FilledQuantity))
}
