package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/middleware"
)

// AuthHandler issues access tokens. Token issuance sits behind the operator
// gate: the operator vouches for the address/role binding, the ledger only
// encodes it.
type AuthHandler struct{}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// IssueTokenRequest represents the request payload for issuing an access token.
type IssueTokenRequest struct {
	Address string `json:"address" binding:"required,eth_address"`
	Role    string `json:"role" binding:"required,caller_role"`
}

// IssueToken handles minting a JWT for the given address and role.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	token, err := middleware.GenerateToken(req.Address, req.Role)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"access_token": token})
}
