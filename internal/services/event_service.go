package services

import (
	"gorm.io/gorm"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
	"tokenomics/internal/pagination"
	"tokenomics/internal/uuid"
)

// eventService appends ledger events. Events are written inside the same
// transaction as the mutation they describe, so the event log and the ledger
// state can never disagree.
type eventService struct {
	db *gorm.DB
}

// NewEventService creates a new EventServicer.
func NewEventService(db *gorm.DB) EventServicer {
	return &eventService{db: db}
}

// Record appends an event through the given transaction handle.
func (s *eventService) Record(tx *gorm.DB, event *models.LedgerEvent) error {
	if event.ID == "" {
		event.ID = uuid.New()
	}
	if err := tx.Create(event).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetEvents returns a paginated, filterable slice of the event log,
// newest first.
func (s *eventService) GetEvents(page pagination.PageRequest, filter EventFilter) (*pagination.PageResponse[models.LedgerEvent], error) {
	page.Defaults()

	base := s.db.Model(&models.LedgerEvent{})
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.Actor != nil {
		base = base.Where("actor = ?", NormalizeAddress(*filter.Actor))
	}
	if filter.PositionID != nil {
		base = base.Where("position_id = ?", *filter.PositionID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var events []models.LedgerEvent
	if err := base.Order("id DESC").Scopes(pagination.Paginate(page)).Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(events, page.Page, page.PageSize, totalItems)
	return &result, nil
}
