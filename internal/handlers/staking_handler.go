package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/services"
)

// StakingHandler handles staking requests.
type StakingHandler struct {
	stakingService services.StakingServicer
}

// NewStakingHandler creates a new StakingHandler.
func NewStakingHandler(stakingService services.StakingServicer) *StakingHandler {
	return &StakingHandler{stakingService: stakingService}
}

// StakeRequest represents the request payload for staking tokens.
type StakeRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// RedeemRequest represents the request payload for redeeming staked tokens.
type RedeemRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// ClaimRewardsRequest represents the request payload for claiming rewards.
type ClaimRewardsRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// SetEmissionRequest represents the request payload for updating the reward
// emission rate.
type SetEmissionRequest struct {
	EmissionPerSecond int64 `json:"emission_per_second" binding:"gte=0"`
}

// Stake handles locking tokens from the caller's free balance.
func (h *StakingHandler) Stake(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.stakingService.Stake(caller, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// StakePosition handles locking vested-but-unclaimed tokens of a position.
func (h *StakingHandler) StakePosition(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.stakingService.StakePosition(caller, id, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// Cooldown handles starting the redemption cooldown.
func (h *StakingHandler) Cooldown(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.stakingService.Cooldown(caller)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// Redeem handles returning staked tokens to the caller's free balance.
func (h *StakingHandler) Redeem(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.stakingService.Redeem(caller, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// RedeemPosition handles returning position-bound stake to the vesting escrow.
func (h *StakingHandler) RedeemPosition(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.stakingService.RedeemPosition(caller, id, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// ClaimRewards handles paying out accrued staking rewards.
func (h *StakingHandler) ClaimRewards(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClaimRewardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.stakingService.ClaimRewards(caller, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// GetRewards handles projecting the caller's total accrued rewards.
func (h *StakingHandler) GetRewards(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rewards, err := h.stakingService.CalculateTotalRewards(caller.Address)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// GetAccount handles retrieving the caller's stake account.
func (h *StakingHandler) GetAccount(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.stakingService.GetStakeAccount(caller.Address)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// SetEmission handles updating the reward emission rate. Operator only.
func (h *StakingHandler) SetEmission(c *gin.Context) {
	var req SetEmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	pool, err := h.stakingService.SetEmissionPerSecond(req.EmissionPerSecond)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pool": pool})
}
