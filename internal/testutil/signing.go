package testutil

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"tokenomics/internal/signature"
)

// NewTestSigner generates a fresh ECDSA key wrapped in a Signer, for use as
// the backend authorization key in tests.
func NewTestSigner(t *testing.T) *signature.Signer {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate signing key: %v", err)
	}
	return signature.NewSignerFromKey(key)
}
