package services

import (
	"testing"

	"tokenomics/internal/models"
	"tokenomics/internal/testutil"
)

func TestEventLog(t *testing.T) {
	t.Run("record_assigns_id_and_persists", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEventService(db)

		event := &models.LedgerEvent{
			Type:       models.EventStaked,
			Actor:      testutil.TestAddress(),
			Amount:     100,
			OccurredAt: 1000,
		}
		testutil.AssertNoError(t, svc.Record(db, event))
		if event.ID == "" {
			t.Fatal("expected assigned event ID")
		}
	})

	t.Run("filters_and_ordering", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEventService(db)

		alice := testutil.TestAddress()
		bob := testutil.TestAddress()
		positionID := uint(7)

		testutil.AssertNoError(t, svc.Record(db, &models.LedgerEvent{
			Type: models.EventStaked, Actor: alice, Amount: 1, OccurredAt: 1,
		}))
		testutil.AssertNoError(t, svc.Record(db, &models.LedgerEvent{
			Type: models.EventRedeemed, Actor: alice, Amount: 2, OccurredAt: 2,
		}))
		testutil.AssertNoError(t, svc.Record(db, &models.LedgerEvent{
			Type: models.EventStaked, Actor: bob, PositionID: &positionID, Amount: 3, OccurredAt: 3,
		}))

		all, err := svc.GetEvents(paginationPage(1, 10), EventFilter{})
		testutil.AssertNoError(t, err)
		if all.TotalItems != 3 {
			t.Fatalf("expected 3 events, got %d", all.TotalItems)
		}
		// Newest first: UUIDv7 ids sort by insertion time
		if all.Data[0].Amount != 3 || all.Data[2].Amount != 1 {
			t.Errorf("expected newest-first ordering, got %+v", all.Data)
		}

		staked := models.EventStaked
		byType, err := svc.GetEvents(paginationPage(1, 10), EventFilter{Type: &staked})
		testutil.AssertNoError(t, err)
		if byType.TotalItems != 2 {
			t.Errorf("expected 2 staked events, got %d", byType.TotalItems)
		}

		byActor, err := svc.GetEvents(paginationPage(1, 10), EventFilter{Actor: &alice})
		testutil.AssertNoError(t, err)
		if byActor.TotalItems != 2 {
			t.Errorf("expected 2 events for actor, got %d", byActor.TotalItems)
		}

		byPosition, err := svc.GetEvents(paginationPage(1, 10), EventFilter{PositionID: &positionID})
		testutil.AssertNoError(t, err)
		if byPosition.TotalItems != 1 {
			t.Errorf("expected 1 event for position, got %d", byPosition.TotalItems)
		}
	})
}
