package services

import (
	"testing"
	"time"

	"tokenomics/internal/testutil"
)

// stakeEnv extends the ledger test with a running reward pool, a funded
// staker, and the treasury->vault reward allowance.
func newStakeEnv(t *testing.T, emission int64) *ledgerTest {
	t.Helper()

	lt := newLedgerTest(t)
	if err := lt.staking.EnsureRewardPool(emission); err != nil {
		t.Fatalf("failed to create reward pool: %v", err)
	}
	testutil.CreateTestTokenAccount(t, lt.db, lt.user.Address, 1000)
	testutil.CreateTestAllowance(t, lt.db, lt.reg.Treasury, lt.reg.StakingVault, testTreasuryFunds)
	return lt
}

func TestStake(t *testing.T) {
	t.Run("stake_moves_balance_to_vault", func(t *testing.T) {
		lt := newStakeEnv(t, 0)

		account, err := lt.staking.Stake(lt.user, 400)
		testutil.AssertNoError(t, err)
		if account.Balance != 400 {
			t.Errorf("expected staked balance 400, got %d", account.Balance)
		}
		if got := lt.balance(t, lt.user.Address); got != 600 {
			t.Errorf("expected free balance 600, got %d", got)
		}
		if got := lt.balance(t, lt.reg.StakingVault); got != 400 {
			t.Errorf("expected vault balance 400, got %d", got)
		}
	})

	t.Run("stake_more_than_balance", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		_, err := lt.staking.Stake(lt.user, 1001)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")
	})

	t.Run("stake_cancels_pending_cooldown", func(t *testing.T) {
		lt := newStakeEnv(t, 0)

		_, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)

		account, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)
		if account.CooldownStartAt != 0 {
			t.Errorf("expected cooldown cleared after staking, got %d", account.CooldownStartAt)
		}

		lt.clk.Advance(testCooldown * time.Second)
		_, err = lt.staking.Redeem(lt.user, 100)
		testutil.AssertAppError(t, err, "COOLDOWN_NOT_STARTED")
	})
}

func TestRewardAccrual(t *testing.T) {
	t.Run("sole_staker_earns_linearly", func(t *testing.T) {
		lt := newStakeEnv(t, 5)

		_, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)

		lt.clk.Advance(100 * time.Second)
		rewards, err := lt.staking.CalculateTotalRewards(lt.user.Address)
		testutil.AssertNoError(t, err)
		if rewards != 500 {
			t.Errorf("expected 500 rewards after 100s at emission 5, got %d", rewards)
		}

		// Another equal interval doubles the accrual.
		lt.clk.Advance(100 * time.Second)
		rewards, err = lt.staking.CalculateTotalRewards(lt.user.Address)
		testutil.AssertNoError(t, err)
		if rewards != 1000 {
			t.Errorf("expected 1000 rewards after 200s, got %d", rewards)
		}
	})

	t.Run("no_accrual_with_nothing_staked", func(t *testing.T) {
		lt := newStakeEnv(t, 5)

		lt.clk.Advance(1000 * time.Second)
		_, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)

		// Emission from before the first stake is not retroactive.
		rewards, err := lt.staking.CalculateTotalRewards(lt.user.Address)
		testutil.AssertNoError(t, err)
		if rewards != 0 {
			t.Errorf("expected 0 rewards immediately after staking, got %d", rewards)
		}
	})

	t.Run("accrual_exact_over_long_idle_stretch", func(t *testing.T) {
		lt := newStakeEnv(t, 5)

		_, err := lt.staking.Stake(lt.user, 1000)
		testutil.AssertNoError(t, err)

		// Seven weeks idle. The emission-times-elapsed-times-scale product
		// runs past 64 bits here, while the resulting index delta is small.
		lt.clk.Advance(4_000_000 * time.Second)
		rewards, err := lt.staking.CalculateTotalRewards(lt.user.Address)
		testutil.AssertNoError(t, err)
		if rewards != 20_000_000 {
			t.Errorf("expected 20000000 rewards after 4000000s at emission 5, got %d", rewards)
		}

		// A mutating accrual of the same stretch agrees with the projection.
		_, err = lt.staking.SetEmissionPerSecond(0)
		testutil.AssertNoError(t, err)
		rewards, err = lt.staking.CalculateTotalRewards(lt.user.Address)
		testutil.AssertNoError(t, err)
		if rewards != 20_000_000 {
			t.Errorf("expected 20000000 rewards after accrual, got %d", rewards)
		}
	})

	t.Run("emission_change_prices_past_at_old_rate", func(t *testing.T) {
		lt := newStakeEnv(t, 5)

		_, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)

		lt.clk.Advance(10 * time.Second)
		pool, err := lt.staking.SetEmissionPerSecond(0)
		testutil.AssertNoError(t, err)
		if pool.EmissionPerSecond != 0 {
			t.Errorf("expected emission 0, got %d", pool.EmissionPerSecond)
		}

		lt.clk.Advance(100 * time.Second)
		rewards, err := lt.staking.CalculateTotalRewards(lt.user.Address)
		testutil.AssertNoError(t, err)
		if rewards != 50 {
			t.Errorf("expected rewards frozen at 50, got %d", rewards)
		}
	})
}

func TestClaimRewards(t *testing.T) {
	t.Run("claim_pays_from_treasury", func(t *testing.T) {
		lt := newStakeEnv(t, 5)

		_, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(100 * time.Second)

		account, err := lt.staking.ClaimRewards(lt.user, 300)
		testutil.AssertNoError(t, err)
		if account.PendingRewards != 200 {
			t.Errorf("expected 200 pending after partial claim, got %d", account.PendingRewards)
		}
		// 900 free after staking 100, plus the 300 payout.
		if got := lt.balance(t, lt.user.Address); got != 1200 {
			t.Errorf("expected balance 1200, got %d", got)
		}
		if got := lt.balance(t, lt.reg.Treasury); got != testTreasuryFunds-300 {
			t.Errorf("expected treasury debited 300, got %d", got)
		}
	})

	t.Run("over_claim_rejected", func(t *testing.T) {
		lt := newStakeEnv(t, 5)

		_, err := lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(100 * time.Second)

		_, err = lt.staking.ClaimRewards(lt.user, 501)
		testutil.AssertAppError(t, err, "INSUFFICIENT_REWARDS")
	})
}

func TestRedeem(t *testing.T) {
	t.Run("redeem_only_inside_window", func(t *testing.T) {
		lt := newStakeEnv(t, 0)

		_, err := lt.staking.Stake(lt.user, 400)
		testutil.AssertNoError(t, err)

		// No cooldown started yet
		_, err = lt.staking.Redeem(lt.user, 100)
		testutil.AssertAppError(t, err, "COOLDOWN_NOT_STARTED")

		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)

		// Still cooling down
		lt.clk.Advance((testCooldown - 1) * time.Second)
		_, err = lt.staking.Redeem(lt.user, 100)
		testutil.AssertAppError(t, err, "NOT_IN_UNSTAKE_WINDOW")

		// Window opens exactly at cooldown end
		lt.clk.Advance(1 * time.Second)
		account, err := lt.staking.Redeem(lt.user, 100)
		testutil.AssertNoError(t, err)
		if account.Balance != 300 {
			t.Errorf("expected staked balance 300, got %d", account.Balance)
		}
		if got := lt.balance(t, lt.user.Address); got != 700 {
			t.Errorf("expected free balance 700, got %d", got)
		}

		// Window closes after the unstake window elapses
		lt.clk.Advance((testWindow + 1) * time.Second)
		_, err = lt.staking.Redeem(lt.user, 100)
		testutil.AssertAppError(t, err, "NOT_IN_UNSTAKE_WINDOW")
	})

	t.Run("over_redeem_rejected", func(t *testing.T) {
		lt := newStakeEnv(t, 0)

		_, err := lt.staking.Stake(lt.user, 400)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(testCooldown * time.Second)

		_, err = lt.staking.Redeem(lt.user, 401)
		testutil.AssertAppError(t, err, "INSUFFICIENT_STAKE")
	})

	t.Run("full_redeem_resets_cooldown", func(t *testing.T) {
		lt := newStakeEnv(t, 0)

		_, err := lt.staking.Stake(lt.user, 400)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(testCooldown * time.Second)

		account, err := lt.staking.Redeem(lt.user, 400)
		testutil.AssertNoError(t, err)
		if account.Balance != 0 {
			t.Errorf("expected empty stake, got %d", account.Balance)
		}
		if account.CooldownStartAt != 0 {
			t.Errorf("expected cooldown reset, got %d", account.CooldownStartAt)
		}
	})

	t.Run("cooldown_requires_stake", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		_, err := lt.staking.Cooldown(lt.user)
		testutil.AssertAppError(t, err, "NOTHING_STAKED")
	})
}

func TestPositionStaking(t *testing.T) {
	// mintVestedPosition mints 100 over 10 periods and advances 4 periods,
	// leaving 40 claimable.
	mintVestedPosition := func(t *testing.T, lt *ledgerTest) uint {
		t.Helper()
		pos, err := lt.vesting.MintInvestment(MintRequest{
			Kind: MintDirect, Caller: lt.admin, Recipient: lt.user.Address,
			Amount: 100, VestingPeriods: 10,
		})
		testutil.AssertNoError(t, err)
		lt.clk.Advance(4 * testPeriodSeconds * time.Second)
		testutil.AssertNoError(t, lt.vesting.DelegateStakingAllowance(lt.admin, 1000))
		return pos.ID
	}

	t.Run("stake_vested_unclaimed_tokens", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		account, err := lt.staking.StakePosition(lt.user, posID, 40)
		testutil.AssertNoError(t, err)
		if account.Balance != 40 {
			t.Errorf("expected staked balance 40, got %d", account.Balance)
		}
		if got := lt.balance(t, lt.reg.StakingVault); got != 40 {
			t.Errorf("expected vault balance 40, got %d", got)
		}
		if got := lt.balance(t, lt.reg.Escrow); got != 60 {
			t.Errorf("expected escrow balance 60, got %d", got)
		}

		pos, err := lt.vesting.GetInvestment(posID)
		testutil.AssertNoError(t, err)
		if pos.Staked != 40 {
			t.Errorf("expected position staked 40, got %d", pos.Staked)
		}

		// Staked value is no longer claimable.
		claimable, err := lt.vesting.GetClaimable(posID)
		testutil.AssertNoError(t, err)
		if claimable != 0 {
			t.Errorf("expected 0 claimable while staked, got %d", claimable)
		}
	})

	t.Run("cannot_stake_beyond_claimable", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		_, err := lt.staking.StakePosition(lt.user, posID, 41)
		testutil.AssertAppError(t, err, "INSUFFICIENT_CLAIMABLE")
	})

	t.Run("only_owner_stakes_position", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		other := Caller{Address: testutil.TestAddress(), Role: RoleUser}
		_, err := lt.staking.StakePosition(other, posID, 10)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("redeem_returns_stake_to_escrow", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		_, err := lt.staking.StakePosition(lt.user, posID, 40)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(testCooldown * time.Second)

		account, err := lt.staking.RedeemPosition(lt.user, posID, 40)
		testutil.AssertNoError(t, err)
		if account.Balance != 0 {
			t.Errorf("expected empty stake, got %d", account.Balance)
		}
		if got := lt.balance(t, lt.reg.Escrow); got != 100 {
			t.Errorf("expected escrow restored to 100, got %d", got)
		}

		pos, err := lt.vesting.GetInvestment(posID)
		testutil.AssertNoError(t, err)
		if pos.Staked != 0 {
			t.Errorf("expected position staked 0, got %d", pos.Staked)
		}

		// The returned tokens are claimable again; the cooldown wait also
		// finished the vesting schedule.
		claimable, err := lt.vesting.GetClaimable(posID)
		testutil.AssertNoError(t, err)
		if claimable != 100 {
			t.Errorf("expected 100 claimable after redeem, got %d", claimable)
		}
	})

	t.Run("cannot_redeem_more_than_position_stake", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		_, err := lt.staking.StakePosition(lt.user, posID, 30)
		testutil.AssertNoError(t, err)
		// Free stake on top of the position-bound stake
		_, err = lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(testCooldown * time.Second)

		_, err = lt.staking.RedeemPosition(lt.user, posID, 31)
		testutil.AssertAppError(t, err, "INSUFFICIENT_STAKE")
	})

	t.Run("position_stake_cannot_exit_free_form", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		_, err := lt.staking.StakePosition(lt.user, posID, 40)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(testCooldown * time.Second)

		// Escrow-backed stake must go back through the position path, never
		// to the owner's free balance.
		_, err = lt.staking.Redeem(lt.user, 40)
		testutil.AssertAppError(t, err, "INSUFFICIENT_STAKE")

		_, err = lt.staking.RedeemPosition(lt.user, posID, 40)
		testutil.AssertNoError(t, err)
		if got := lt.balance(t, lt.reg.Escrow); got != 100 {
			t.Errorf("expected escrow restored to 100, got %d", got)
		}
	})

	t.Run("free_redeem_capped_at_unbound_stake", func(t *testing.T) {
		lt := newStakeEnv(t, 0)
		posID := mintVestedPosition(t, lt)

		_, err := lt.staking.StakePosition(lt.user, posID, 30)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Stake(lt.user, 100)
		testutil.AssertNoError(t, err)
		_, err = lt.staking.Cooldown(lt.user)
		testutil.AssertNoError(t, err)
		lt.clk.Advance(testCooldown * time.Second)

		_, err = lt.staking.Redeem(lt.user, 101)
		testutil.AssertAppError(t, err, "INSUFFICIENT_STAKE")

		account, err := lt.staking.Redeem(lt.user, 100)
		testutil.AssertNoError(t, err)
		if account.Balance != 30 {
			t.Errorf("expected position-bound stake to remain, got %d", account.Balance)
		}
		if got := lt.balance(t, lt.user.Address); got != 1000 {
			t.Errorf("expected free balance restored to 1000, got %d", got)
		}
	})
}

func TestGetStakeAccount(t *testing.T) {
	lt := newStakeEnv(t, 0)

	account, err := lt.staking.GetStakeAccount(lt.user.Address)
	testutil.AssertNoError(t, err)
	if account.Balance != 0 {
		t.Errorf("expected empty account for unknown owner, got %d", account.Balance)
	}
}
