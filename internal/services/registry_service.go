package services

import (
	"errors"

	"gorm.io/gorm"

	"tokenomics/internal/clock"
	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
)

// registryService resolves logical role names to addresses. Re-pointing a
// name inserts a new versioned row, so every historical resolution stays
// queryable.
type registryService struct {
	db     *gorm.DB
	clk    clock.Clock
	events EventServicer
}

// NewRegistryService creates a new RegistryServicer.
func NewRegistryService(db *gorm.DB, clk clock.Clock, events EventServicer) RegistryServicer {
	return &registryService{db: db, clk: clk, events: events}
}

// SetAddress registers a brand-new name at version 1.
func (s *registryService) SetAddress(name, address string) (*models.RegistryEntry, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}

	var entry models.RegistryEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if txErr := tx.Model(&models.RegistryEntry{}).Where("name = ?", name).Count(&count).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		if count > 0 {
			return apperrors.ErrRegistryNameExists
		}
		entry = models.RegistryEntry{Name: name, Address: NormalizeAddress(address), Version: 1}
		if txErr := tx.Create(&entry).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventRegistryUpdated,
			Recipient:  entry.Address,
			OccurredAt: s.clk.Now().Unix(),
			Payload:    mustJSON(map[string]any{"name": name, "version": entry.Version}),
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateAddress re-points an existing name, bumping its version.
func (s *registryService) UpdateAddress(name, address string) (*models.RegistryEntry, error) {
	var entry models.RegistryEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var latest models.RegistryEntry
		txErr := tx.Where("name = ?", name).Order("version DESC").First(&latest).Error
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return apperrors.ErrRegistryNameNotFound
		}
		if txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		entry = models.RegistryEntry{Name: name, Address: NormalizeAddress(address), Version: latest.Version + 1}
		if txErr := tx.Create(&entry).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventRegistryUpdated,
			Recipient:  entry.Address,
			OccurredAt: s.clk.Now().Unix(),
			Payload:    mustJSON(map[string]any{"name": name, "version": entry.Version}),
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetAddressOf returns the live (highest-version) address for a name.
func (s *registryService) GetAddressOf(name string) (string, error) {
	var entry models.RegistryEntry
	err := s.db.Where("name = ?", name).Order("version DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.ErrRegistryNameNotFound
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry.Address, nil
}

// GetAllAddresses returns every address a name has pointed to, oldest first.
func (s *registryService) GetAllAddresses(name string) ([]string, error) {
	var entries []models.RegistryEntry
	if err := s.db.Where("name = ?", name).Order("version ASC").Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(entries) == 0 {
		return nil, apperrors.ErrRegistryNameNotFound
	}
	addresses := make([]string, len(entries))
	for i, e := range entries {
		addresses[i] = e.Address
	}
	return addresses, nil
}

// List returns all registered names in insertion order.
func (s *registryService) List() ([]string, error) {
	var names []string
	err := s.db.Model(&models.RegistryEntry{}).
		Where("version = ?", 1).Order("id ASC").Pluck("name", &names).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return names, nil
}

// Seed registers the given name/address pairs if they are not present yet.
// Blank addresses and already-registered names are skipped, so boot-time
// seeding never clobbers operator updates.
func (s *registryService) Seed(entries map[string]string) error {
	for name, address := range entries {
		if address == "" {
			continue
		}
		_, err := s.SetAddress(name, address)
		if err != nil && !errors.Is(err, apperrors.ErrRegistryNameExists) {
			return err
		}
	}
	return nil
}
