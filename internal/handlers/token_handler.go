package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/pagination"
	"tokenomics/internal/services"
)

// TokenHandler handles treasury-token ledger requests.
type TokenHandler struct {
	tokenService services.TokenServicer
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenService services.TokenServicer) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// TransferRequest represents the request payload for a token transfer.
type TransferRequest struct {
	To     string `json:"to" binding:"required,eth_address"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Memo   string `json:"memo" binding:"max=200"`
}

// MintTokensRequest represents the request payload for minting treasury
// supply.
type MintTokensRequest struct {
	To     string `json:"to" binding:"required,eth_address"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// IncreaseAllowanceRequest represents the request payload for granting a
// spender rights over an owner's balance.
type IncreaseAllowanceRequest struct {
	Owner   string `json:"owner" binding:"required,eth_address"`
	Spender string `json:"spender" binding:"required,eth_address"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

// GetBalance handles reading the caller's token balance.
func (h *TokenHandler) GetBalance(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	address := caller.Address
	if q := c.Query("address"); q != "" && caller.HasRole(services.RoleBackend, services.RoleAdmin) {
		address = q
	}

	balance, err := h.tokenService.BalanceOf(address)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "balance": balance})
}

// Transfer handles moving tokens from the caller to another account.
func (h *TokenHandler) Transfer(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.tokenService.SendTransfer(caller, req.To, req.Amount, req.Memo); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transferred": req.Amount})
}

// GetTransfers handles listing the caller's transfer history.
func (h *TokenHandler) GetTransfers(c *gin.Context) {
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

	result, err := h.tokenService.GetTransfers(caller.Address, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Mint handles crediting new treasury supply. Operator only.
func (h *TokenHandler) Mint(c *gin.Context) {
	var req MintTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.tokenService.Mint(req.To, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// IncreaseAllowance handles granting spending rights, typically from the
// treasury to the vesting escrow. Operator only.
func (h *TokenHandler) IncreaseAllowance(c *gin.Context) {
	var req IncreaseAllowanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	allowance, err := h.tokenService.IncreaseAllowance(req.Owner, req.Spender, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowance": allowance})
}
