package invoice

import (
	"testing"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignedDriver(inv *Invoice) shared.Actor {
	return shared.NewActor(inv.DriverID, shared.RoleDriver)
}

func TestInvoice_RecordCheckpoint(t *testing.T) {
	lat, lon := 55.75, 37.61

	t.Run("full route advances status to completed", func(t *testing.T) {
		inv := createTestDelivery(t)
		driver := assignedDriver(inv)
		base := time.Now()

		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointAccepted, base, &lat, &lon))
		assert.Equal(t, StatusInTransit, inv.Status)

		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointArrivedAtSite, base.Add(30*time.Minute), &lat, &lon))
		assert.Equal(t, StatusArrived, inv.Status)

		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointDepartedSite, base.Add(time.Hour), nil, nil))
		assert.Equal(t, StatusDeparted, inv.Status)

		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointArrivedAtPlant, base.Add(90*time.Minute), nil, nil))
		assert.Equal(t, StatusCompleted, inv.Status)
		assert.NotNil(t, inv.CompletedAt)
		assert.Len(t, inv.Checkpoints, 4)
	})

	t.Run("only the assigned driver may advance", func(t *testing.T) {
		inv := createTestDelivery(t)
		other := shared.NewActor(uuid.New(), shared.RoleDriver)
		err := inv.RecordCheckpoint(other, CheckpointAccepted, time.Now(), nil, nil)
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.CodeInvalidTransition, derr.Code)
	})

	t.Run("out of order checkpoint rejected", func(t *testing.T) {
		inv := createTestDelivery(t)
		err := inv.RecordCheckpoint(assignedDriver(inv), CheckpointArrivedAtSite, time.Now(), nil, nil)
		require.Error(t, err)
	})

	t.Run("identical resend is an idempotent no-op", func(t *testing.T) {
		inv := createTestDelivery(t)
		driver := assignedDriver(inv)
		at := time.Now()
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointAccepted, at, nil, nil))
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointAccepted, at, nil, nil))
		assert.Len(t, inv.Checkpoints, 1)
		assert.Equal(t, StatusInTransit, inv.Status)
	})

	t.Run("resend with a different timestamp rejected", func(t *testing.T) {
		inv := createTestDelivery(t)
		driver := assignedDriver(inv)
		at := time.Now()
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointAccepted, at, nil, nil))
		err := inv.RecordCheckpoint(driver, CheckpointAccepted, at.Add(time.Minute), nil, nil)
		require.Error(t, err)
	})

	t.Run("earlier checkpoint after a later one rejected", func(t *testing.T) {
		inv := createTestDelivery(t)
		driver := assignedDriver(inv)
		base := time.Now()
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointAccepted, base, nil, nil))
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointArrivedAtSite, base.Add(time.Minute), nil, nil))
		err := inv.RecordCheckpoint(driver, CheckpointAccepted, base.Add(2*time.Minute), nil, nil)
		require.Error(t, err)
	})

	t.Run("no checkpoints on receipts", func(t *testing.T) {
		inv, err := NewReceiptInvoice(testClerk(), decimal.NewFromInt(24500), uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, err)
		err = inv.RecordCheckpoint(assignedDriver(inv), CheckpointAccepted, time.Now(), nil, nil)
		require.Error(t, err)
	})

	t.Run("no checkpoints on canceled invoice", func(t *testing.T) {
		inv := createTestDelivery(t)
		dispatcher := shared.NewActor(uuid.New(), shared.RoleDispatcher)
		require.NoError(t, inv.Cancel(dispatcher, "breakdown"))
		err := inv.RecordCheckpoint(assignedDriver(inv), CheckpointAccepted, time.Now(), nil, nil)
		require.Error(t, err)
	})

	t.Run("completion emits the rollup event", func(t *testing.T) {
		inv := createTestDelivery(t)
		driver := assignedDriver(inv)
		base := time.Now()
		inv.ClearDomainEvents()

		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointAccepted, base, nil, nil))
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointArrivedAtSite, base.Add(time.Minute), nil, nil))
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointDepartedSite, base.Add(2*time.Minute), nil, nil))
		require.NoError(t, inv.RecordCheckpoint(driver, CheckpointArrivedAtPlant, base.Add(3*time.Minute), nil, nil))

		events := inv.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeInvoiceInTransit, events[0].EventType())
		assert.Equal(t, EventTypeInvoiceCompleted, events[1].EventType())
	})
}
