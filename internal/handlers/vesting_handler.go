package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/pagination"
	"tokenomics/internal/services"
)

// VestingHandler handles investment-position requests.
type VestingHandler struct {
	vestingService services.VestingServicer
}

// NewVestingHandler creates a new VestingHandler.
func NewVestingHandler(vestingService services.VestingServicer) *VestingHandler {
	return &VestingHandler{vestingService: vestingService}
}

// MintInvestmentRequest represents the request payload for a direct
// (admin) mint.
type MintInvestmentRequest struct {
	Recipient      string `json:"recipient" binding:"required,eth_address"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	VestingPeriods int64  `json:"vesting_periods" binding:"required,gt=0"`
	VestingStartAt int64  `json:"vesting_start_at" binding:"required,gt=0"`
	CliffPeriods   int64  `json:"cliff_periods" binding:"gte=0"`
}

// MintAuthorizedRequest represents the request payload for a
// signature-authorized mint. NFT fields are optional; providing an
// nft_token_id selects the NFT-backed variant.
type MintAuthorizedRequest struct {
	Recipient      string `json:"recipient" binding:"required,eth_address"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	VestingPeriods int64  `json:"vesting_periods" binding:"required,gt=0"`
	VestingStartAt int64  `json:"vesting_start_at" binding:"required,gt=0"`
	CliffPeriods   int64  `json:"cliff_periods" binding:"gte=0"`
	Signature      string `json:"signature" binding:"required,eth_signature"`
	Expiry         int64  `json:"expiry" binding:"required,gt=0"`
	NFTTokenID     *int64 `json:"nft_token_id,omitempty"`
	NFTLevel       uint8  `json:"nft_level,omitempty"`
}

// ClaimRequest represents the request payload for claiming vested tokens.
// Recipient defaults to the position owner when omitted.
type ClaimRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Recipient string `json:"recipient" binding:"omitempty,eth_address"`
}

// DistributeRequest represents the request payload for a signature-authorized
// treasury distribution.
type DistributeRequest struct {
	Recipient string `json:"recipient" binding:"required,eth_address"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Signature string `json:"signature" binding:"required,eth_signature"`
	Expiry    int64  `json:"expiry" binding:"required,gt=0"`
}

// DelegateAllowanceRequest represents the request payload for granting the
// staking vault spending rights over the vesting escrow.
type DelegateAllowanceRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// MintInvestment handles creating a position directly. Admin only.
func (h *VestingHandler) MintInvestment(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MintInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	position, err := h.vestingService.MintInvestment(services.MintRequest{
		Kind:           services.MintDirect,
		Caller:         caller,
		Recipient:      req.Recipient,
		Amount:         req.Amount,
		VestingPeriods: req.VestingPeriods,
		VestingStartAt: req.VestingStartAt,
		CliffPeriods:   req.CliffPeriods,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"investment": position})
}

// MintAuthorized handles creating a position under a backend-signed
// authorization.
func (h *VestingHandler) MintAuthorized(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MintAuthorizedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	kind := services.MintAuthorized
	if req.NFTTokenID != nil {
		kind = services.MintAuthorizedWithNFT
	}

	position, err := h.vestingService.MintInvestment(services.MintRequest{
		Kind:           kind,
		Caller:         caller,
		Recipient:      req.Recipient,
		Amount:         req.Amount,
		VestingPeriods: req.VestingPeriods,
		VestingStartAt: req.VestingStartAt,
		CliffPeriods:   req.CliffPeriods,
		Signature:      req.Signature,
		Expiry:         req.Expiry,
		NFTTokenID:     req.NFTTokenID,
		NFTLevel:       req.NFTLevel,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"investment": position})
}

// ListInvestments handles listing the caller's positions.
func (h *VestingHandler) ListInvestments(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	owner := caller.Address
	// Backend and admin callers may list any owner's positions.
	if q := c.Query("owner"); q != "" && caller.HasRole(services.RoleBackend, services.RoleAdmin) {
		owner = q
	}

	result, err := h.vestingService.ListInvestments(owner, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInvestment handles retrieving a specific position.
func (h *VestingHandler) GetInvestment(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	position, err := h.vestingService.GetInvestment(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": position})
}

// GetInvestmentInfo handles retrieving the summary projection of a position.
func (h *VestingHandler) GetInvestmentInfo(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	info, err := h.vestingService.GetInvestmentInfo(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"info": info})
}

// GetClaimable handles computing the currently claimable amount of a position.
func (h *VestingHandler) GetClaimable(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	claimable, err := h.vestingService.GetClaimable(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"claimable": claimable})
}

// GetInvestmentByNFT handles resolving a position through its NFT token id.
func (h *VestingHandler) GetInvestmentByNFT(c *gin.Context) {
	nftTokenID, err := parsePathInt64(c, "nftTokenId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	position, err := h.vestingService.GetInvestmentByNFT(nftTokenID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": position})
}

// Claim handles releasing vested tokens from a position.
func (h *VestingHandler) Claim(c *gin.Context) {
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

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	position, err := h.vestingService.Claim(caller, id, req.Amount, req.Recipient)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": position})
}

// Burn handles voiding a position and refunding its unvested remainder to
// the treasury. Admin only.
func (h *VestingHandler) Burn(c *gin.Context) {
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

	refund, err := h.vestingService.Burn(caller, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunded": refund})
}

// Distribute handles a signature-authorized treasury distribution.
func (h *VestingHandler) Distribute(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.vestingService.Distribute(caller, req.Signature, req.Expiry, req.Recipient, req.Amount); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"distributed": req.Amount})
}

// DelegateStakingAllowance handles granting the staking vault spending rights
// over escrowed tokens. Reached through the operator gate, so the caller is
// synthesized with the admin role.
func (h *VestingHandler) DelegateStakingAllowance(c *gin.Context) {
	var req DelegateAllowanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	caller := services.Caller{Role: services.RoleAdmin}
	if err := h.vestingService.DelegateStakingAllowance(caller, req.Amount); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"delegated": req.Amount})
}
