// Package signature implements the off-chain authorization protocol: a
// designated backend key signs a canonical hash of the requested mutation,
// and the ledger verifies that the signature is authentic, bound to the
// calling identity and chain, not yet expired, and never used before.
package signature

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"gorm.io/gorm"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
)

// MintPayload carries the investment parameters covered by a mint
// authorization. Field order in the packed hash follows the wire layout:
// sender, recipient, amount, vestingStart, vestingPeriods, cliffPeriods,
// nftLevel, expiry, chainId.
type MintPayload struct {
	Recipient      string
	Amount         int64
	VestingStartAt int64
	VestingPeriods int64
	CliffPeriods   int64
	NFTLevel       uint8
}

// Verifier checks authorization signatures for a fixed chain id.
type Verifier struct {
	chainID int64
}

// NewVerifier creates a Verifier bound to the given chain id. Signatures
// produced for any other chain id fail verification.
func NewVerifier(chainID int64) *Verifier {
	return &Verifier{chainID: chainID}
}

// DistributionHash returns the canonical hash authorizing a plain token
// distribution from the treasury to recipient.
func (v *Verifier) DistributionHash(sender, recipient string, amount, expiry int64) []byte {
	return ethcrypto.Keccak256(concat(
		common.HexToAddress(sender).Bytes(),
		common.HexToAddress(recipient).Bytes(),
		uint256Bytes(amount),
		uint256Bytes(expiry),
		uint256Bytes(v.chainID),
	))
}

// MintHash returns the canonical hash authorizing creation of a new
// investment position.
func (v *Verifier) MintHash(sender string, p MintPayload, expiry int64) []byte {
	return ethcrypto.Keccak256(concat(
		common.HexToAddress(sender).Bytes(),
		common.HexToAddress(p.Recipient).Bytes(),
		uint256Bytes(p.Amount),
		uint256Bytes(p.VestingStartAt),
		uint256Bytes(p.VestingPeriods),
		uint256Bytes(p.CliffPeriods),
		[]byte{p.NFTLevel},
		uint256Bytes(expiry),
		uint256Bytes(v.chainID),
	))
}

// VerifyAndConsume checks a signature over hash, marks it consumed, and
// returns the consumed digest in hex.
//
// The sender's identity is bound through the hash itself: the caller rebuilds
// the hash with its own authenticated address, so a replay by any other
// sender recovers a different signer and fails as not valid. Expiry is an
// upper bound on submission time, not an issuance time.
//
// The consumed digest is written through tx so a later failure in the gated
// mutation rolls the consumption back with everything else.
func (v *Verifier) VerifyAndConsume(tx *gorm.DB, sigHex, expectedSigner string, hash []byte, expiry, now int64) (string, error) {
	sig, err := decodeSignature(sigHex)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrSignatureNotValid, err)
	}

	digest := prefixedDigest(hash)
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrSignatureNotValid, err)
	}

	recovered := ethcrypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(expectedSigner) {
		return "", apperrors.ErrSignatureNotValid
	}

	if now > expiry {
		return "", apperrors.ErrSignatureExpired
	}

	digestHex := hex.EncodeToString(digest)
	var count int64
	if err := tx.Model(&models.UsedSignature{}).Where("digest = ?", digestHex).Count(&count).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return "", apperrors.ErrSignatureUsed
	}
	if err := tx.Create(&models.UsedSignature{Digest: digestHex}).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return digestHex, nil
}

// decodeSignature parses a hex signature and normalizes the recovery byte
// from {27,28} to the {0,1} form SigToPub expects.
func decodeSignature(sigHex string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return nil, err
	}
	if len(raw) != ethcrypto.SignatureLength {
		return nil, errors.New("signature must be 65 bytes")
	}
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	return raw, nil
}

// prefixedDigest applies the Ethereum signed-message prefix to a 32-byte
// hash: keccak256("\x19Ethereum Signed Message:\n32" || hash).
func prefixedDigest(hash []byte) []byte {
	return ethcrypto.Keccak256(concat(
		[]byte("\x19Ethereum Signed Message:\n32"),
		hash,
	))
}

// uint256Bytes left-pads a non-negative integer to 32 bytes.
func uint256Bytes(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
