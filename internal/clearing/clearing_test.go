package clearing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func bidAt(id uint64, price string, qty int64, sec int) SnapshotBid {
	return SnapshotBid{
		BidID:     id,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC),
	}
}

func fillFor(t *testing.T, res Result, bidID uint64) int64 {
	t.Helper()
	for _, f := range res.Fills {
		if f.BidID == bidID {
			return f.FilledAmount
		}
	}
	return 0
}

func TestClearOversubscribedPartialFill(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(1, "5", 100, 1),
		bidAt(2, "5", 50, 2),
		bidAt(3, "3", 200, 3),
	}
	res := Clear(bids, 120)

	if !res.Settled {
		t.Fatalf("expected settled result")
	}
	if want := decimal.RequireFromString("5"); !res.ClearingPrice.Equal(want) {
		t.Fatalf("clearing price=%s want=%s", res.ClearingPrice, want)
	}
	if res.FilledQuantity != 120 {
		t.Fatalf("filled=%d want=120", res.FilledQuantity)
	}
	if res.SuccessfulBidsCount != 2 {
		t.Fatalf("successful=%d want=2", res.SuccessfulBidsCount)
	}
	if got := fillFor(t, res, 1); got != 100 {
		t.Fatalf("bid 1 fill=%d want=100", got)
	}
	if got := fillFor(t, res, 2); got != 20 {
		t.Fatalf("bid 2 fill=%d want=20 (exactly the remainder)", got)
	}
	if got := fillFor(t, res, 3); got != 0 {
		t.Fatalf("bid 3 fill=%d want=0", got)
	}
}

func TestClearUndersubscribed(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(1, "5", 100, 1),
		bidAt(2, "5", 50, 2),
		bidAt(3, "3", 200, 3),
	}
	res := Clear(bids, 400)

	if res.FilledQuantity != 350 {
		t.Fatalf("filled=%d want=350", res.FilledQuantity)
	}
	if want := decimal.RequireFromString("3"); !res.ClearingPrice.Equal(want) {
		t.Fatalf("clearing price=%s want=%s (lowest filled price)", res.ClearingPrice, want)
	}
	if res.SuccessfulBidsCount != 3 {
		t.Fatalf("successful=%d want=3", res.SuccessfulBidsCount)
	}
	for id, want := range map[uint64]int64{1: 100, 2: 50, 3: 200} {
		if got := fillFor(t, res, id); got != want {
			t.Fatalf("bid %d fill=%d want=%d", id, got, want)
		}
	}
}

func TestClearTimePriorityBreaksPriceTies(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(2, "4", 80, 10), // later
		bidAt(1, "4", 80, 5),  // earlier, must win the tie
	}
	res := Clear(bids, 100)

	if got := fillFor(t, res, 1); got != 80 {
		t.Fatalf("earlier bid fill=%d want=80", got)
	}
	if got := fillFor(t, res, 2); got != 20 {
		t.Fatalf("later bid fill=%d want=20", got)
	}
}

func TestClearExactTargetBoundary(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(1, "9", 60, 1),
		bidAt(2, "8", 40, 2),
		bidAt(3, "7", 500, 3),
	}
	res := Clear(bids, 100)

	if res.FilledQuantity != 100 {
		t.Fatalf("filled=%d want=100", res.FilledQuantity)
	}
	if res.SuccessfulBidsCount != 2 {
		t.Fatalf("successful=%d want=2 (bid 3 gets nothing at exact boundary)", res.SuccessfulBidsCount)
	}
	if want := decimal.RequireFromString("8"); !res.ClearingPrice.Equal(want) {
		t.Fatalf("clearing price=%s want=%s", res.ClearingPrice, want)
	}
	if got := fillFor(t, res, 3); got != 0 {
		t.Fatalf("bid 3 fill=%d want=0", got)
	}
}

func TestClearZeroBids(t *testing.T) {
	res := Clear(nil, 100)
	if res.Settled {
		t.Fatalf("zero bids must not settle")
	}
	if res.FilledQuantity != 0 || res.SuccessfulBidsCount != 0 || len(res.Fills) != 0 {
		t.Fatalf("zero bids produced fills: %+v", res)
	}
}

func TestClearSkipsZeroQuantityBids(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(1, "10", 0, 1),
		bidAt(2, "5", 50, 2),
	}
	res := Clear(bids, 100)

	if res.SuccessfulBidsCount != 1 {
		t.Fatalf("successful=%d want=1", res.SuccessfulBidsCount)
	}
	if want := decimal.RequireFromString("5"); !res.ClearingPrice.Equal(want) {
		t.Fatalf("clearing price=%s want=%s (zero-qty bid must not set it)", res.ClearingPrice, want)
	}
}

func TestClearDeterministicAndInputUntouched(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(3, "3", 200, 3),
		bidAt(1, "5", 100, 1),
		bidAt(2, "5", 50, 2),
	}
	first := Clear(bids, 120)
	for run := 0; run < 50; run++ {
		again := Clear(bids, 120)
		if !again.ClearingPrice.Equal(first.ClearingPrice) ||
			again.FilledQuantity != first.FilledQuantity ||
			again.SuccessfulBidsCount != first.SuccessfulBidsCount ||
			len(again.Fills) != len(first.Fills) {
			t.Fatalf("run %d diverged: %+v vs %+v", run, again, first)
		}
		for i := range first.Fills {
			if again.Fills[i] != first.Fills[i] {
				t.Fatalf("run %d fill %d diverged: %+v vs %+v", run, i, again.Fills[i], first.Fills[i])
			}
		}
	}
	// Input order preserved: Clear sorts a copy.
	if bids[0].BidID != 3 || bids[1].BidID != 1 || bids[2].BidID != 2 {
		t.Fatalf("input slice mutated: %+v", bids)
	}
}

func TestClearAllocationBoundAndPriority(t *testing.T) {
	bids := []SnapshotBid{
		bidAt(1, "7.25", 33, 4),
		bidAt(2, "7.25", 41, 2),
		bidAt(3, "6.10", 90, 1),
		bidAt(4, "9.99", 5, 9),
		bidAt(5, "6.10", 7, 8),
	}
	for _, target := range []int64{1, 30, 79, 80, 150, 176, 500} {
		res := Clear(bids, target)

		var total int64
		for _, f := range res.Fills {
			total += f.FilledAmount
		}
		if total != res.FilledQuantity {
			t.Fatalf("target=%d: fill sum %d != filled quantity %d", target, total, res.FilledQuantity)
		}
		if total > target {
			t.Fatalf("target=%d: allocated %d over target", target, total)
		}

		// No higher-priced bid may be filled less than fully while a
		// lower-priced bid received anything.
		byID := map[uint64]SnapshotBid{}
		for _, b := range bids {
			byID[b.BidID] = b
		}
		for _, hi := range res.Fills {
			for _, lo := range res.Fills {
				hiBid, loBid := byID[hi.BidID], byID[lo.BidID]
				if hiBid.Price.GreaterThan(loBid.Price) &&
					hi.FilledAmount < hiBid.Quantity && lo.FilledAmount > 0 && hi.BidID != lo.BidID {
					t.Fatalf("target=%d: bid %d partially filled while lower-priced bid %d filled", target, hi.BidID, lo.BidID)
				}
			}
		}
	}
}

func TestTotalRaised(t *testing.T) {
	res := Clear([]SnapshotBid{bidAt(1, "5", 100, 1), bidAt(2, "5", 50, 2)}, 120)
	if want := decimal.RequireFromString("600"); !TotalRaised(res).Equal(want) {
		t.Fatalf("total raised=%s want=%s", TotalRaised(res), want)
	}
	if !TotalRaised(Result{}).IsZero() {
		t.Fatalf("unsettled result must raise zero")
	}
}
