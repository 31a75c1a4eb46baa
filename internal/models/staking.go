package models

// RewardIndexScale is the fixed-point scale of RewardPool.RewardIndex and
// StakeAccount.RewardDebt. The index accumulates emission-per-staked-unit,
// which is fractional, so it is stored multiplied by this scale.
const RewardIndexScale = 1_000_000_000_000

// StakeAccount tracks one staker's locked balance and reward bookkeeping.
// CooldownStartAt is zero while no cooldown is pending.
type StakeAccount struct {
	Base
	OwnerAddress    string `gorm:"uniqueIndex;not null" json:"owner_address"`
	Balance         int64  `gorm:"not null;default:0" json:"balance"`
	RewardDebt      int64  `gorm:"not null;default:0" json:"reward_debt"`
	PendingRewards  int64  `gorm:"not null;default:0" json:"pending_rewards"`
	CooldownStartAt int64  `gorm:"not null;default:0" json:"cooldown_start_at"`
}

// RewardPool is the singleton reward accumulator for the staked asset.
// RewardIndex only ever increases; TotalStaked equals the sum of all live
// StakeAccount balances.
type RewardPool struct {
	Base
	EmissionPerSecond int64 `gorm:"not null;default:0" json:"emission_per_second"`
	TotalStaked       int64 `gorm:"not null;default:0" json:"total_staked"`
	RewardIndex       int64 `gorm:"not null;default:0" json:"reward_index"`
	LastUpdateAt      int64 `gorm:"not null;default:0" json:"last_update_at"`
}
