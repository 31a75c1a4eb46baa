package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"tokenomics/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestAddress returns a unique, well-formed lowercase hex address.
func TestAddress() string {
	return fmt.Sprintf("0x%040x", nextID())
}

// TestRegistry holds the addresses a seeded test ledger resolves its
// well-known names to.
type TestRegistry struct {
	Treasury      string
	Escrow        string
	StakingVault  string
	NFT           string
	BackendSigner string
}

// SeedTestRegistry registers fresh addresses for every well-known name.
// The backend signer address is provided by the caller so it can match a
// test signing key.
func SeedTestRegistry(t *testing.T, db *gorm.DB, backendSigner string) TestRegistry {
	t.Helper()

	reg := TestRegistry{
		Treasury:      TestAddress(),
		Escrow:        TestAddress(),
		StakingVault:  TestAddress(),
		NFT:           TestAddress(),
		BackendSigner: backendSigner,
	}
	if reg.BackendSigner == "" {
		reg.BackendSigner = TestAddress()
	}

	for name, address := range map[string]string{
		models.RegistryTreasury:      reg.Treasury,
		models.RegistryVestingEscrow: reg.Escrow,
		models.RegistryStakingVault:  reg.StakingVault,
		models.RegistryNFT:           reg.NFT,
		models.RegistryBackendSigner: reg.BackendSigner,
	} {
		entry := &models.RegistryEntry{Name: name, Address: address, Version: 1}
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("failed to seed registry name %s: %v", name, err)
		}
	}
	return reg
}

// CreateTestTokenAccount creates a token account with the given balance.
func CreateTestTokenAccount(t *testing.T, db *gorm.DB, address string, balance int64) *models.TokenAccount {
	t.Helper()

	account := &models.TokenAccount{Address: address, Balance: balance}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test token account: %v", err)
	}
	return account
}

// CreateTestAllowance grants spender rights over an owner's balance.
func CreateTestAllowance(t *testing.T, db *gorm.DB, owner, spender string, amount int64) *models.TokenAllowance {
	t.Helper()

	allowance := &models.TokenAllowance{OwnerAddress: owner, SpenderAddress: spender, Amount: amount}
	if err := db.Create(allowance).Error; err != nil {
		t.Fatalf("failed to create test allowance: %v", err)
	}
	return allowance
}
