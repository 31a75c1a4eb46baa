package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer produces authorization signatures with a secp256k1 key. The ledger
// itself only verifies; Signer exists for the backend signing path and for
// tests that need valid signatures.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signature: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// NewSignerFromKey wraps an existing private key.
func NewSignerFromKey(pk *ecdsa.PrivateKey) *Signer {
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}
}

// Address returns the signer's address in lowercase hex.
func (s *Signer) Address() string {
	return strings.ToLower(s.address.Hex())
}

// Sign signs a canonical 32-byte hash produced by DistributionHash or
// MintHash. The returned hex signature is r || s || v with v in {27,28}.
func (s *Signer) Sign(hash []byte) (string, error) {
	sig, err := ethcrypto.Sign(prefixedDigest(hash), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("signature: signing: %w", err)
	}
	// Shift the recovery byte to the conventional 27/28 range.
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}
