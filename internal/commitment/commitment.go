// Package commitment implements the sealed-bid commitment codec: a
// deterministic keccak256 digest over type-tagged bid terms, used to hide a
// bid's price and quantity until reveal.
package commitment

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

var ErrInvalidAddress = errors.New("invalid bidder address")

// priceScale fixes prices at 6 fractional digits before hashing so the digest
// never depends on decimal formatting.
const priceScale = 6

// Field tags keep the packed encoding unambiguous: two terms can never shift
// bytes into each other's slot.
const (
	tagLaunchID byte = 0x01
	tagPrice    byte = 0x02
	tagQuantity byte = 0x03
	tagBidder   byte = 0x04
	tagNonce    byte = 0x05
)

// Commit hashes (launchID, price, quantity, bidder, nonce) into the bid
// commitment digest. The bidder address is normalized to its EIP-55
// checksummed form first, so mixed-case inputs of the same account commit
// identically. Pure: same inputs always produce the same digest.
func Commit(launchID string, price decimal.Decimal, quantity int64, bidder string, nonce *big.Int) (common.Hash, error) {
	addr, err := normalizeAddress(bidder)
	if err != nil {
		return common.Hash{}, err
	}
	if nonce == nil {
		nonce = big.NewInt(0)
	}

	scaledPrice := price.Shift(priceScale).Truncate(0).BigInt()

	var buf []byte
	buf = appendTagged(buf, tagLaunchID, []byte(launchID))
	buf = appendTagged(buf, tagPrice, scaledPrice.Bytes())
	qty := make([]byte, 8)
	binary.BigEndian.PutUint64(qty, uint64(quantity))
	buf = appendTagged(buf, tagQuantity, qty)
	buf = appendTagged(buf, tagBidder, []byte(addr))
	buf = appendTagged(buf, tagNonce, nonce.Bytes())

	return crypto.Keccak256Hash(buf), nil
}

// Verify recomputes the digest from revealed terms and compares. A malformed
// bidder address verifies as false rather than erroring: the reveal is simply
// not the committed bid.
func Verify(digest common.Hash, launchID string, price decimal.Decimal, quantity int64, bidder string, nonce *big.Int) bool {
	recomputed, err := Commit(launchID, price, quantity, bidder, nonce)
	if err != nil {
		return false
	}
	return recomputed == digest
}

// appendTagged writes tag || len(value) || value. The length prefix prevents
// adjacent variable-length fields from aliasing.
func appendTagged(buf []byte, tag byte, value []byte) []byte {
	buf = append(buf, tag)
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(value)))
	buf = append(buf, length...)
	return append(buf, value...)
}

func normalizeAddress(raw string) (string, error) {
	if !common.IsHexAddress(raw) {
		return "", ErrInvalidAddress
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return "", ErrInvalidAddress
	}
	return addr.Hex(), nil
}
