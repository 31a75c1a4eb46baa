package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/services"
)

// RegistryHandler handles name/address registry requests.
type RegistryHandler struct {
	registryService services.RegistryServicer
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registryService services.RegistryServicer) *RegistryHandler {
	return &RegistryHandler{registryService: registryService}
}

// SetAddressRequest represents the request payload for registering or
// re-pointing a name.
type SetAddressRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=64"`
	Address string `json:"address" binding:"required,eth_address"`
}

// SetAddress handles registering a brand-new name. Operator only.
func (h *RegistryHandler) SetAddress(c *gin.Context) {
	var req SetAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, err := h.registryService.SetAddress(req.Name, req.Address)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// UpdateAddress handles re-pointing an existing name. Operator only.
func (h *RegistryHandler) UpdateAddress(c *gin.Context) {
	var req SetAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, err := h.registryService.UpdateAddress(req.Name, req.Address)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// GetAddress handles resolving a name to its live address.
func (h *RegistryHandler) GetAddress(c *gin.Context) {
	address, err := h.registryService.GetAddressOf(c.Param("name"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}

// GetHistory handles listing every address a name has pointed to.
func (h *RegistryHandler) GetHistory(c *gin.Context) {
	addresses, err := h.registryService.GetAllAddresses(c.Param("name"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// List handles listing all registered names.
func (h *RegistryHandler) List(c *gin.Context) {
	names, err := h.registryService.List()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"names": names})
}
