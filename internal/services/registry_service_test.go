package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"tokenomics/internal/clock"
	"tokenomics/internal/models"
	"tokenomics/internal/testutil"
)

func newTestRegistryService(db *gorm.DB) RegistryServicer {
	return NewRegistryService(db, clock.NewMock(time.Unix(1_700_000_000, 0)), NewEventService(db))
}

func TestRegistry(t *testing.T) {
	t.Run("set_and_resolve", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		address := testutil.TestAddress()
		entry, err := svc.SetAddress("ORACLE", address)
		testutil.AssertNoError(t, err)
		if entry.Version != 1 {
			t.Errorf("expected version 1, got %d", entry.Version)
		}

		resolved, err := svc.GetAddressOf("ORACLE")
		testutil.AssertNoError(t, err)
		if resolved != address {
			t.Errorf("expected %s, got %s", address, resolved)
		}
	})

	t.Run("set_existing_name_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		_, err := svc.SetAddress("ORACLE", testutil.TestAddress())
		testutil.AssertNoError(t, err)
		_, err = svc.SetAddress("ORACLE", testutil.TestAddress())
		testutil.AssertAppError(t, err, "REGISTRY_NAME_EXISTS")
	})

	t.Run("update_bumps_version_and_keeps_history", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		first := testutil.TestAddress()
		second := testutil.TestAddress()

		_, err := svc.SetAddress("ORACLE", first)
		testutil.AssertNoError(t, err)
		entry, err := svc.UpdateAddress("ORACLE", second)
		testutil.AssertNoError(t, err)
		if entry.Version != 2 {
			t.Errorf("expected version 2, got %d", entry.Version)
		}

		// Live resolution follows the newest version
		resolved, err := svc.GetAddressOf("ORACLE")
		testutil.AssertNoError(t, err)
		if resolved != second {
			t.Errorf("expected %s, got %s", second, resolved)
		}

		history, err := svc.GetAllAddresses("ORACLE")
		testutil.AssertNoError(t, err)
		if len(history) != 2 || history[0] != first || history[1] != second {
			t.Errorf("unexpected history: %v", history)
		}
	})

	t.Run("mutations_emit_events", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		_, err := svc.SetAddress("ORACLE", testutil.TestAddress())
		testutil.AssertNoError(t, err)
		_, err = svc.UpdateAddress("ORACLE", testutil.TestAddress())
		testutil.AssertNoError(t, err)

		var count int64
		err = db.Model(&models.LedgerEvent{}).
			Where("type = ?", models.EventRegistryUpdated).Count(&count).Error
		testutil.AssertNoError(t, err)
		if count != 2 {
			t.Errorf("expected 2 registry events, got %d", count)
		}
	})

	t.Run("unknown_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		_, err := svc.GetAddressOf("NOPE")
		testutil.AssertAppError(t, err, "REGISTRY_NAME_NOT_FOUND")
		_, err = svc.UpdateAddress("NOPE", testutil.TestAddress())
		testutil.AssertAppError(t, err, "REGISTRY_NAME_NOT_FOUND")
		_, err = svc.GetAllAddresses("NOPE")
		testutil.AssertAppError(t, err, "REGISTRY_NAME_NOT_FOUND")
	})

	t.Run("list_names", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		for _, name := range []string{"A", "B", "C"} {
			_, err := svc.SetAddress(name, testutil.TestAddress())
			testutil.AssertNoError(t, err)
		}
		_, err := svc.UpdateAddress("B", testutil.TestAddress())
		testutil.AssertNoError(t, err)

		names, err := svc.List()
		testutil.AssertNoError(t, err)
		if len(names) != 3 {
			t.Errorf("expected 3 names, got %v", names)
		}
	})

	t.Run("seed_skips_existing_and_blank", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestRegistryService(db)

		existing := testutil.TestAddress()
		_, err := svc.SetAddress(models.RegistryTreasury, existing)
		testutil.AssertNoError(t, err)

		err = svc.Seed(map[string]string{
			models.RegistryTreasury:      testutil.TestAddress(),
			models.RegistryVestingEscrow: testutil.TestAddress(),
			models.RegistryNFT:           "",
		})
		testutil.AssertNoError(t, err)

		// The pre-existing binding is untouched
		resolved, err := svc.GetAddressOf(models.RegistryTreasury)
		testutil.AssertNoError(t, err)
		if resolved != existing {
			t.Errorf("seed should not overwrite, got %s", resolved)
		}

		_, err = svc.GetAddressOf(models.RegistryVestingEscrow)
		testutil.AssertNoError(t, err)
		_, err = svc.GetAddressOf(models.RegistryNFT)
		testutil.AssertAppError(t, err, "REGISTRY_NAME_NOT_FOUND")
	})
}
