package services

import (
	"errors"
	"math/big"
	"sync"

	"gorm.io/gorm"

	"tokenomics/internal/clock"
	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
)

// stakingService lets token holders and position owners lock value for
// yield. Rewards accrue through a single monotone per-unit index, so no
// per-account iteration is ever needed. The mutex linearizes index accrual
// with reward-debt snapshots; interleaving them would corrupt the
// accumulator.
type stakingService struct {
	db       *gorm.DB
	clk      clock.Clock
	registry RegistryServicer
	tokens   TokenServicer
	events   EventServicer

	cooldownSeconds int64
	unstakeWindow   int64
	periodSeconds   int64
	accrualBoundary string

	mu sync.Mutex
}

// NewStakingService creates a new StakingServicer. Period settings mirror
// the vesting service so position-bound stakes respect the same claimable
// computation.
func NewStakingService(
	db *gorm.DB,
	clk clock.Clock,
	registry RegistryServicer,
	tokens TokenServicer,
	events EventServicer,
	cooldownSeconds, unstakeWindow int64,
	periodSeconds int64,
	accrualBoundary string,
) StakingServicer {
	return &stakingService{
		db:              db,
		clk:             clk,
		registry:        registry,
		tokens:          tokens,
		events:          events,
		cooldownSeconds: cooldownSeconds,
		unstakeWindow:   unstakeWindow,
		periodSeconds:   periodSeconds,
		accrualBoundary: accrualBoundary,
	}
}

// EnsureRewardPool creates the singleton reward pool row if it does not
// exist yet. Called once at boot.
func (s *stakingService) EnsureRewardPool(emission int64) error {
	var pool models.RewardPool
	err := s.db.First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pool = models.RewardPool{
			EmissionPerSecond: emission,
			LastUpdateAt:      s.clk.Now().Unix(),
		}
		if err := s.db.Create(&pool).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SetEmissionPerSecond updates the emission rate. The pool is accrued at the
// old rate first, so past elapsed time is never re-priced.
func (s *stakingService) SetEmissionPerSecond(emission int64) (*models.RewardPool, error) {
	if emission < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Emission must not be negative")
	}

	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var pool models.RewardPool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, txErr := s.accrue(tx, now)
		if txErr != nil {
			return txErr
		}
		p.EmissionPerSecond = emission
		if txErr := tx.Model(p).Update("emission_per_second", emission).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		pool = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// Stake locks amount from the caller's free token balance.
func (s *stakingService) Stake(caller Caller, amount int64) (*models.StakeAccount, error) {
	return s.stake(caller, nil, amount)
}

// StakePosition locks amount of a position's vested-but-unclaimed tokens,
// pulling them from the vesting escrow under the delegated allowance.
func (s *stakingService) StakePosition(caller Caller, positionID uint, amount int64) (*models.StakeAccount, error) {
	return s.stake(caller, &positionID, amount)
}

func (s *stakingService) stake(caller Caller, positionID *uint, amount int64) (*models.StakeAccount, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}

	vault, err := s.registry.GetAddressOf(models.RegistryStakingVault)
	if err != nil {
		return nil, err
	}

	owner := NormalizeAddress(caller.Address)
	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var account *models.StakeAccount
	err = s.db.Transaction(func(tx *gorm.DB) error {
		pool, txErr := s.accrue(tx, now)
		if txErr != nil {
			return txErr
		}
		acct, txErr := loadOrCreateStakeAccount(tx, owner)
		if txErr != nil {
			return txErr
		}
		settleRewards(acct, pool)

		if positionID != nil {
			var pos models.InvestmentPosition
			if txErr := tx.First(&pos, *positionID).Error; txErr != nil {
				if errors.Is(txErr, gorm.ErrRecordNotFound) {
					return apperrors.ErrInvestmentNotFound
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
			if pos.OwnerAddress != owner {
				return apperrors.ErrForbidden
			}
			if amount > claimableTokens(&pos, s.periodSeconds, s.accrualBoundary, now) {
				return apperrors.ErrInsufficientClaimable
			}
			escrow, txErr := s.registry.GetAddressOf(models.RegistryVestingEscrow)
			if txErr != nil {
				return txErr
			}
			if txErr := s.tokens.TransferFrom(tx, vault, escrow, vault, amount, "position stake"); txErr != nil {
				return txErr
			}
			pos.Staked += amount
			if txErr := tx.Model(&pos).Update("staked", pos.Staked).Error; txErr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
		} else {
			if txErr := s.tokens.Transfer(tx, owner, vault, amount, "stake"); txErr != nil {
				return txErr
			}
		}

		acct.Balance += amount
		// Staking again invalidates a pending cooldown; the caller must
		// restart it for the enlarged balance.
		acct.CooldownStartAt = 0
		acct.RewardDebt = rewardDebt(acct.Balance, pool.RewardIndex)
		if txErr := saveStakeAccount(tx, acct); txErr != nil {
			return txErr
		}

		pool.TotalStaked += amount
		if txErr := tx.Model(pool).Update("total_staked", pool.TotalStaked).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		account = acct
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventStaked,
			Actor:      owner,
			PositionID: positionID,
			Amount:     amount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Cooldown starts the mandatory waiting period before redemption.
func (s *stakingService) Cooldown(caller Caller) (*models.StakeAccount, error) {
	owner := NormalizeAddress(caller.Address)
	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var account *models.StakeAccount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		acct, txErr := loadStakeAccount(tx, owner)
		if txErr != nil {
			return txErr
		}
		if acct.Balance <= 0 {
			return apperrors.ErrNothingStaked
		}
		acct.CooldownStartAt = now
		if txErr := saveStakeAccount(tx, acct); txErr != nil {
			return txErr
		}
		account = acct
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventCooldownStarted,
			Actor:      owner,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Redeem returns amount to the caller's free balance. Only permitted inside
// the unstake window that follows a completed cooldown.
func (s *stakingService) Redeem(caller Caller, amount int64) (*models.StakeAccount, error) {
	return s.redeem(caller, nil, amount)
}

// RedeemPosition returns amount of a position-bound stake to the position's
// unstaked remainder in the vesting escrow.
func (s *stakingService) RedeemPosition(caller Caller, positionID uint, amount int64) (*models.StakeAccount, error) {
	return s.redeem(caller, &positionID, amount)
}

func (s *stakingService) redeem(caller Caller, positionID *uint, amount int64) (*models.StakeAccount, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}

	vault, err := s.registry.GetAddressOf(models.RegistryStakingVault)
	if err != nil {
		return nil, err
	}

	owner := NormalizeAddress(caller.Address)
	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var account *models.StakeAccount
	err = s.db.Transaction(func(tx *gorm.DB) error {
		acct, txErr := loadStakeAccount(tx, owner)
		if txErr != nil {
			return txErr
		}
		if acct.CooldownStartAt == 0 {
			return apperrors.ErrCooldownNotStarted
		}
		windowStart := acct.CooldownStartAt + s.cooldownSeconds
		if now < windowStart || now > windowStart+s.unstakeWindow {
			return apperrors.ErrNotInUnstakeWindow
		}
		if amount > acct.Balance {
			return apperrors.ErrInsufficientStake
		}
		if positionID == nil {
			bound, txErr := positionStakeTotal(tx, owner)
			if txErr != nil {
				return txErr
			}
			// Position-bound stake came from the vesting escrow and may
			// only return there, through the position redeem path.
			if amount > acct.Balance-bound {
				return apperrors.ErrInsufficientStake
			}
		}

		pool, txErr := s.accrue(tx, now)
		if txErr != nil {
			return txErr
		}
		settleRewards(acct, pool)

		if positionID != nil {
			var pos models.InvestmentPosition
			if txErr := tx.First(&pos, *positionID).Error; txErr != nil {
				if errors.Is(txErr, gorm.ErrRecordNotFound) {
					return apperrors.ErrInvestmentNotFound
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
			if pos.OwnerAddress != owner {
				return apperrors.ErrForbidden
			}
			if amount > pos.Staked {
				return apperrors.ErrInsufficientStake
			}
			escrow, txErr := s.registry.GetAddressOf(models.RegistryVestingEscrow)
			if txErr != nil {
				return txErr
			}
			if txErr := s.tokens.Transfer(tx, vault, escrow, amount, "position redeem"); txErr != nil {
				return txErr
			}
			pos.Staked -= amount
			if txErr := tx.Model(&pos).Update("staked", pos.Staked).Error; txErr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
		} else {
			if txErr := s.tokens.Transfer(tx, vault, owner, amount, "redeem"); txErr != nil {
				return txErr
			}
		}

		acct.Balance -= amount
		if acct.Balance == 0 {
			acct.CooldownStartAt = 0
		}
		acct.RewardDebt = rewardDebt(acct.Balance, pool.RewardIndex)
		if txErr := saveStakeAccount(tx, acct); txErr != nil {
			return txErr
		}

		pool.TotalStaked -= amount
		if txErr := tx.Model(pool).Update("total_staked", pool.TotalStaked).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		account = acct
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventRedeemed,
			Actor:      owner,
			PositionID: positionID,
			Amount:     amount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ClaimRewards pays out up to the caller's accrued rewards from the
// treasury's reward allowance.
func (s *stakingService) ClaimRewards(caller Caller, amount int64) (*models.StakeAccount, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}

	treasury, err := s.registry.GetAddressOf(models.RegistryTreasury)
	if err != nil {
		return nil, err
	}
	vault, err := s.registry.GetAddressOf(models.RegistryStakingVault)
	if err != nil {
		return nil, err
	}

	owner := NormalizeAddress(caller.Address)
	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var account *models.StakeAccount
	err = s.db.Transaction(func(tx *gorm.DB) error {
		acct, txErr := loadStakeAccount(tx, owner)
		if txErr != nil {
			return txErr
		}
		pool, txErr := s.accrue(tx, now)
		if txErr != nil {
			return txErr
		}
		settleRewards(acct, pool)

		if amount > acct.PendingRewards {
			return apperrors.ErrInsufficientRewards
		}

		if txErr := s.tokens.TransferFrom(tx, vault, treasury, owner, amount, "staking rewards"); txErr != nil {
			return txErr
		}

		acct.PendingRewards -= amount
		acct.RewardDebt = rewardDebt(acct.Balance, pool.RewardIndex)
		if txErr := saveStakeAccount(tx, acct); txErr != nil {
			return txErr
		}

		account = acct
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventRewardsClaimed,
			Actor:      owner,
			Amount:     amount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CalculateTotalRewards projects an owner's total accrued rewards at the
// current time without mutating anything.
func (s *stakingService) CalculateTotalRewards(owner string) (int64, error) {
	acct, err := s.GetStakeAccount(owner)
	if err != nil {
		return 0, err
	}

	var pool models.RewardPool
	if err := s.db.First(&pool).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	index := pool.RewardIndex
	now := s.clk.Now().Unix()
	if pool.TotalStaked > 0 && now > pool.LastUpdateAt {
		index += rewardIndexDelta(pool.EmissionPerSecond, now-pool.LastUpdateAt, pool.TotalStaked)
	}

	return acct.PendingRewards + rewardDebt(acct.Balance, index) - acct.RewardDebt, nil
}

// GetStakeAccount returns an owner's stake account; unknown owners get an
// empty account.
func (s *stakingService) GetStakeAccount(owner string) (*models.StakeAccount, error) {
	var acct models.StakeAccount
	err := s.db.Where("owner_address = ?", NormalizeAddress(owner)).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.StakeAccount{OwnerAddress: NormalizeAddress(owner)}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &acct, nil
}

// accrue advances the reward index for the time elapsed since the last
// update. With nothing staked the index is left untouched and only the
// timestamp advances.
func (s *stakingService) accrue(tx *gorm.DB, now int64) (*models.RewardPool, error) {
	var pool models.RewardPool
	if err := tx.First(&pool).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if now > pool.LastUpdateAt {
		if pool.TotalStaked > 0 {
			pool.RewardIndex += rewardIndexDelta(pool.EmissionPerSecond, now-pool.LastUpdateAt, pool.TotalStaked)
		}
		pool.LastUpdateAt = now
		if err := tx.Model(&pool).Updates(map[string]interface{}{
			"reward_index":   pool.RewardIndex,
			"last_update_at": pool.LastUpdateAt,
		}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return &pool, nil
}

// settleRewards folds the owner's newly accrued share of the index into
// their pending balance. The caller re-snapshots RewardDebt after any
// balance change.
func settleRewards(acct *models.StakeAccount, pool *models.RewardPool) {
	acct.PendingRewards += rewardDebt(acct.Balance, pool.RewardIndex) - acct.RewardDebt
}

// rewardIndexDelta computes emission * elapsed * scale / totalStaked in
// arbitrary precision. The intermediate product exceeds 64 bits after a few
// weeks of elapsed time even at modest emission rates, although the quotient
// itself always fits.
func rewardIndexDelta(emission, elapsed, totalStaked int64) int64 {
	delta := new(big.Int).SetInt64(emission)
	delta.Mul(delta, big.NewInt(elapsed))
	delta.Mul(delta, big.NewInt(models.RewardIndexScale))
	delta.Div(delta, big.NewInt(totalStaked))
	return delta.Int64()
}

// rewardDebt snapshots balance * index / scale, again widening past 64 bits
// for the multiplication.
func rewardDebt(balance, index int64) int64 {
	debt := new(big.Int).SetInt64(balance)
	debt.Mul(debt, big.NewInt(index))
	debt.Div(debt, big.NewInt(models.RewardIndexScale))
	return debt.Int64()
}

// positionStakeTotal sums the stake still bound to the owner's live
// positions.
func positionStakeTotal(tx *gorm.DB, owner string) (int64, error) {
	var total int64
	err := tx.Model(&models.InvestmentPosition{}).
		Where("owner_address = ?", owner).
		Select("COALESCE(SUM(staked), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return total, nil
}

func loadStakeAccount(tx *gorm.DB, owner string) (*models.StakeAccount, error) {
	var acct models.StakeAccount
	err := tx.Where("owner_address = ?", owner).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNothingStaked
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &acct, nil
}

func loadOrCreateStakeAccount(tx *gorm.DB, owner string) (*models.StakeAccount, error) {
	var acct models.StakeAccount
	err := tx.Where("owner_address = ?", owner).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acct = models.StakeAccount{OwnerAddress: owner}
		if err := tx.Create(&acct).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &acct, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &acct, nil
}

func saveStakeAccount(tx *gorm.DB, acct *models.StakeAccount) error {
	err := tx.Model(acct).Updates(map[string]interface{}{
		"balance":           acct.Balance,
		"reward_debt":       acct.RewardDebt,
		"pending_rewards":   acct.PendingRewards,
		"cooldown_start_at": acct.CooldownStartAt,
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
