package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
	"tokenomics/internal/pagination"
	"tokenomics/internal/services"
)

// EventHandler handles ledger event log requests.
type EventHandler struct {
	eventService services.EventServicer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService services.EventServicer) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// GetEvents handles listing ledger events, newest first, with optional
// type/actor/position filters.
func (h *EventHandler) GetEvents(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.EventFilter
	if t := c.Query("type"); t != "" {
		eventType := models.LedgerEventType(t)
		filter.Type = &eventType
	}
	if actor := c.Query("actor"); actor != "" {
		filter.Actor = &actor
	}
	if pid := c.Query("position_id"); pid != "" {
		parsed, err := strconv.ParseUint(pid, 10, 32)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid position_id"))
			return
		}
		positionID := uint(parsed)
		filter.PositionID = &positionID
	}

	result, err := h.eventService.GetEvents(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
