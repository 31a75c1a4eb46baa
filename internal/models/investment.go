package models

// InvestmentPosition is a time-vested token grant. Principal is escrowed at
// mint and leaves escrow only through claims, staking delegation, or an
// admin burn of the unclaimed remainder.
//
// Invariants maintained by the vesting service:
//
//	0 <= Claimed <= Principal, Claimed never decreases
//	Staked <= Principal - Claimed
type InvestmentPosition struct {
	Base
	OwnerAddress   string `gorm:"index;not null" json:"owner_address"`
	Principal      int64  `gorm:"not null" json:"principal"`
	Claimed        int64  `gorm:"not null;default:0" json:"claimed"`
	Staked         int64  `gorm:"not null;default:0" json:"staked"`
	VestingPeriods int64  `gorm:"not null" json:"vesting_periods"`
	VestingStartAt int64  `gorm:"not null" json:"vesting_start_at"`
	CliffPeriods   int64  `gorm:"not null" json:"cliff_periods"`

	// Optional binding to an external investor NFT. The NFT contract only
	// reads position state; the ledger never calls back into it.
	NFTTokenID *int64 `gorm:"uniqueIndex" json:"nft_token_id,omitempty"`
	NFTLevel   uint8  `gorm:"not null;default:0" json:"nft_level,omitempty"`
}
