package commitment

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

const (
	testBidder = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	testLaunch = "launch-arcade-01"
)

func TestCommitDeterministic(t *testing.T) {
	price := decimal.RequireFromString("5.25")
	nonce := big.NewInt(42)

	d1, err := Commit(testLaunch, price, 100, testBidder, nonce)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	d2, err := Commit(testLaunch, price, 100, testBidder, nonce)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest not deterministic: %s != %s", d1.Hex(), d2.Hex())
	}
}

func TestCommitCaseInsensitiveBidder(t *testing.T) {
	price := decimal.RequireFromString("1.000001")
	lower, err := Commit(testLaunch, price, 10, "0x8ba1f109551bd432803012645ac136ddd64dba72", big.NewInt(1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	checksummed, err := Commit(testLaunch, price, 10, testBidder, big.NewInt(1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if lower != checksummed {
		t.Fatalf("address normalization missing: %s != %s", lower.Hex(), checksummed.Hex())
	}
}

func TestVerifyBinding(t *testing.T) {
	price := decimal.RequireFromString("3.5")
	nonce := big.NewInt(7)
	digest, err := Commit(testLaunch, price, 250, testBidder, nonce)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if !Verify(digest, testLaunch, price, 250, testBidder, nonce) {
		t.Fatalf("verify rejected an exact reveal")
	}

	if Verify(digest, "launch-other", price, 250, testBidder, nonce) {
		t.Fatalf("verify accepted an altered launch id")
	}
	if Verify(digest, testLaunch, decimal.RequireFromString("3.500001"), 250, testBidder, nonce) {
		t.Fatalf("verify accepted an altered price")
	}
	if Verify(digest, testLaunch, price, 251, testBidder, nonce) {
		t.Fatalf("verify accepted an altered quantity")
	}
	if Verify(digest, testLaunch, price, 250, "0x28C6c06298d514Db089934071355E5743bf21d60", nonce) {
		t.Fatalf("verify accepted an altered bidder")
	}
	if Verify(digest, testLaunch, price, 250, testBidder, big.NewInt(8)) {
		t.Fatalf("verify accepted an altered nonce")
	}
}

func TestCommitFieldShiftingDoesNotCollide(t *testing.T) {
	// "ab" + quantity must not alias "a" + a longer neighboring field.
	d1, err := Commit("ab", decimal.NewFromInt(1), 1, testBidder, big.NewInt(1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	d2, err := Commit("a", decimal.NewFromInt(1), 1, testBidder, big.NewInt(1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if d1 == d2 {
		t.Fatalf("length-prefixed encoding collided")
	}
}

func TestCommitRejectsBadAddresses(t *testing.T) {
	price := decimal.NewFromInt(1)
	for _, bad := range []string{"", "not-an-address", "0x1234", "0x0000000000000000000000000000000000000000"} {
		if _, err := Commit(testLaunch, price, 1, bad, big.NewInt(1)); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("bidder %q: got err=%v want ErrInvalidAddress", bad, err)
		}
	}
}

func TestVerifyBadAddressIsFalse(t *testing.T) {
	digest, err := Commit(testLaunch, decimal.NewFromInt(2), 5, testBidder, big.NewInt(3))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if Verify(digest, testLaunch, decimal.NewFromInt(2), 5, "garbage", big.NewInt(3)) {
		t.Fatalf("verify accepted a malformed bidder")
	}
}
