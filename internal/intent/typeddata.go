package intent

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	intentDomainName    = "LaunchpadFusionBid"
	intentDomainVersion = "1"
	intentPrimaryType   = "BidIntent"
	permitPrimaryType   = "Permit"
)

// Domain scopes intent signatures to one chain and one verifying contract.
// Distinct from any token's permit domain: a signature valid for one can
// never verify under the other.
type Domain struct {
	ChainID           int64
	VerifyingContract common.Address
}

// TokenDomain is an ERC-2612 token's own signing domain, used for permit
// messages.
type TokenDomain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

// TypedData renders the intent as EIP-712 typed data. Field order is fixed
// and every field is type-tagged, so no two fields can be reinterpreted as
// each other.
func TypedData(d Domain, i *BidIntent) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			intentPrimaryType: {
				{Name: "bidder", Type: "address"},
				{Name: "bidToken", Type: "address"},
				{Name: "bidAmount", Type: "uint256"},
				{Name: "auctionToken", Type: "address"},
				{Name: "maxAuctionTokens", Type: "uint256"},
				{Name: "maxEffectivePrice", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: intentPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              intentDomainName,
			Version:           intentDomainVersion,
			ChainId:           math.NewHexOrDecimal256(d.ChainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: map[string]interface{}{
			"bidder":            i.Bidder.Hex(),
			"bidToken":          i.BidToken.Hex(),
			"bidAmount":         i.BidAmount,
			"auctionToken":      i.AuctionToken.Hex(),
			"maxAuctionTokens":  i.MaxAuctionTokens,
			"maxEffectivePrice": i.MaxEffectivePrice,
			"deadline":          big.NewInt(i.Deadline.Unix()),
			"nonce":             i.Nonce,
		},
	}
}

// PermitTypedData builds an ERC-2612 token-spend authorization under the
// token contract's own domain.
func PermitTypedData(td TokenDomain, owner, spender common.Address, value, nonce *big.Int, deadline time.Time) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			permitPrimaryType: {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: permitPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              td.Name,
			Version:           td.Version,
			ChainId:           math.NewHexOrDecimal256(td.ChainID),
			VerifyingContract: td.VerifyingContract.Hex(),
		},
		Message: map[string]interface{}{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    value,
			"nonce":    nonce,
			"deadline": big.NewInt(deadline.Unix()),
		},
	}
}

// Digest computes the final EIP-712 signing hash:
// keccak256(0x1901 || domainSeparator || structHash).
func Digest(td apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash message: %w", err)
	}
	raw := []byte("\x19\x01")
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256Hash(raw), nil
}

// HashIntent is the digest of the intent under the bid-intent domain. This is
// both the value the bidder signs and the FusionBid record's primary key.
func HashIntent(d Domain, i *BidIntent) (common.Hash, error) {
	return Digest(TypedData(d, i))
}

// Sign signs a typed-data digest, returning the 65-byte r||s||v signature
// with Ethereum v in {27,28}.
func Sign(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("private key not configured")
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, err
	}
	if len(sig) == 65 && sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// RecoverSigner recovers the signing address from a 65-byte signature over
// the given digest.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	adjusted := make([]byte, 65)
	copy(adjusted, sig)
	if adjusted[64] >= 27 {
		adjusted[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), adjusted)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
