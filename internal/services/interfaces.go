package services

import (
	"gorm.io/gorm"

	"tokenomics/internal/models"
	"tokenomics/internal/pagination"
)

// Caller roles. The backend role may claim on an owner's behalf; the admin
// role controls direct mints, burns, and staking-allowance delegation.
const (
	RoleUser    = "user"
	RoleBackend = "backend"
	RoleAdmin   = "admin"
)

// Caller is the authenticated identity performing an operation, extracted
// from the request's JWT claims.
type Caller struct {
	Address string
	Role    string
}

// HasRole reports whether the caller holds one of the given roles.
func (c Caller) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// TokenServicer defines the contract for the custodial treasury-token ledger.
type TokenServicer interface {
	BalanceOf(address string) (int64, error)
	AllowanceOf(owner, spender string) (int64, error)
	Mint(to string, amount int64) (*models.TokenAccount, error)
	Transfer(tx *gorm.DB, from, to string, amount int64, memo string) error
	TransferFrom(tx *gorm.DB, spender, from, to string, amount int64, memo string) error
	IncreaseAllowance(owner, spender string, amount int64) (*models.TokenAllowance, error)
	SendTransfer(caller Caller, to string, amount int64, memo string) error
	GetTransfers(address string, page pagination.PageRequest) (*pagination.PageResponse[models.TokenTransfer], error)
}

// MintKind selects the mint entry point. All three variants dispatch through
// one internal constructor.
type MintKind int

const (
	MintDirect MintKind = iota
	MintAuthorized
	MintAuthorizedWithNFT
)

// MintRequest carries the parameters for creating an investment position.
// Signature and Expiry are only read for the authorized kinds; NFTTokenID
// and NFTLevel only for MintAuthorizedWithNFT.
type MintRequest struct {
	Kind           MintKind
	Caller         Caller
	Recipient      string
	Amount         int64
	VestingPeriods int64
	VestingStartAt int64
	CliffPeriods   int64
	Signature      string
	Expiry         int64
	NFTTokenID     *int64
	NFTLevel       uint8
}

// InvestmentInfo is the read projection of a position.
type InvestmentInfo struct {
	Principal      int64 `json:"principal"`
	Claimed        int64 `json:"claimed"`
	VestingPeriods int64 `json:"vesting_periods"`
	CliffEndAt     int64 `json:"cliff_end_at"`
}

// VestingServicer defines the contract for the vesting ledger.
type VestingServicer interface {
	MintInvestment(req MintRequest) (*models.InvestmentPosition, error)
	GetClaimable(id uint) (int64, error)
	Claim(caller Caller, id uint, amount int64, recipient string) (*models.InvestmentPosition, error)
	Burn(caller Caller, id uint) (int64, error)
	Distribute(caller Caller, signature string, expiry int64, recipient string, amount int64) error
	DelegateStakingAllowance(caller Caller, amount int64) error
	GetInvestment(id uint) (*models.InvestmentPosition, error)
	GetInvestmentInfo(id uint) (*InvestmentInfo, error)
	GetInvestmentByNFT(nftTokenID int64) (*models.InvestmentPosition, error)
	ListInvestments(owner string, page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentPosition], error)
}

// StakingServicer defines the contract for the staking engine.
type StakingServicer interface {
	Stake(caller Caller, amount int64) (*models.StakeAccount, error)
	StakePosition(caller Caller, positionID uint, amount int64) (*models.StakeAccount, error)
	Cooldown(caller Caller) (*models.StakeAccount, error)
	Redeem(caller Caller, amount int64) (*models.StakeAccount, error)
	RedeemPosition(caller Caller, positionID uint, amount int64) (*models.StakeAccount, error)
	ClaimRewards(caller Caller, amount int64) (*models.StakeAccount, error)
	CalculateTotalRewards(owner string) (int64, error)
	GetStakeAccount(owner string) (*models.StakeAccount, error)
	SetEmissionPerSecond(emission int64) (*models.RewardPool, error)
	EnsureRewardPool(emission int64) error
}

// RegistryServicer defines the contract for the versioned name/address registry.
type RegistryServicer interface {
	SetAddress(name, address string) (*models.RegistryEntry, error)
	UpdateAddress(name, address string) (*models.RegistryEntry, error)
	GetAddressOf(name string) (string, error)
	GetAllAddresses(name string) ([]string, error)
	List() ([]string, error)
	Seed(entries map[string]string) error
}

// EventFilter holds optional filter parameters for listing ledger events.
type EventFilter struct {
	Type       *models.LedgerEventType
	Actor      *string
	PositionID *uint
}

// EventServicer defines the contract for the append-only ledger event log.
type EventServicer interface {
	Record(tx *gorm.DB, event *models.LedgerEvent) error
	GetEvents(page pagination.PageRequest, filter EventFilter) (*pagination.PageResponse[models.LedgerEvent], error)
}
