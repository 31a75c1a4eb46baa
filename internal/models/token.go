package models

// TokenAccount is a balance row in the custodial treasury-token ledger.
// Addresses are lowercase 0x-prefixed hex strings.
type TokenAccount struct {
	Base
	Address string `gorm:"uniqueIndex;not null" json:"address"`
	Balance int64  `gorm:"not null;default:0" json:"balance"`
}

// TokenAllowance lets a spender move up to Amount from the owner's balance.
// Spending decrements the allowance.
type TokenAllowance struct {
	Base
	OwnerAddress   string `gorm:"uniqueIndex:idx_allowance_owner_spender;not null" json:"owner_address"`
	SpenderAddress string `gorm:"uniqueIndex:idx_allowance_owner_spender;not null" json:"spender_address"`
	Amount         int64  `gorm:"not null;default:0" json:"amount"`
}

// TokenTransfer records a completed balance movement for auditability.
type TokenTransfer struct {
	Base
	FromAddress    string `gorm:"index;not null" json:"from_address"`
	ToAddress      string `gorm:"index;not null" json:"to_address"`
	Amount         int64  `gorm:"not null" json:"amount"`
	SpenderAddress string `json:"spender_address,omitempty"`
	Memo           string `json:"memo,omitempty"`
}
