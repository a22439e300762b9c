package invoice

import (
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CheckpointKind is a driver-reported delivery milestone
type CheckpointKind string

const (
	CheckpointAccepted       CheckpointKind = "accepted"
	CheckpointArrivedAtSite  CheckpointKind = "arrived_at_site"
	CheckpointDepartedSite   CheckpointKind = "departed_from_site"
	CheckpointArrivedAtPlant CheckpointKind = "arrived_at_plant"
)

// checkpointOrder fixes the strict checkpoint sequence
var checkpointOrder = []CheckpointKind{
	CheckpointAccepted,
	CheckpointArrivedAtSite,
	CheckpointDepartedSite,
	CheckpointArrivedAtPlant,
}

// checkpointStatus maps each recorded checkpoint to the invoice status it implies
var checkpointStatus = map[CheckpointKind]Status{
	CheckpointAccepted:       StatusInTransit,
	CheckpointArrivedAtSite:  StatusArrived,
	CheckpointDepartedSite:   StatusDeparted,
	CheckpointArrivedAtPlant: StatusCompleted,
}

// IsValid checks if the kind is a known checkpoint
func (k CheckpointKind) IsValid() bool {
	return k.position() >= 0
}

func (k CheckpointKind) position() int {
	for idx, kind := range checkpointOrder {
		if kind == k {
			return idx
		}
	}
	return -1
}

// RouteCheckpoint is one timestamped milestone on an invoice's route,
// optionally carrying the driver's reported position.
type RouteCheckpoint struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	Kind       CheckpointKind
	RecordedAt time.Time
	Lat        *float64
	Lon        *float64
	CreatedAt  time.Time
}

// CheckpointAt returns the recorded checkpoint of the given kind, or nil
func (i *Invoice) CheckpointAt(kind CheckpointKind) *RouteCheckpoint {
	for idx := range i.Checkpoints {
		if i.Checkpoints[idx].Kind == kind {
			return &i.Checkpoints[idx]
		}
	}
	return nil
}

// lastCheckpointPosition returns the position of the furthest recorded
// checkpoint, or -1 when none is recorded yet.
func (i *Invoice) lastCheckpointPosition() int {
	last := -1
	for idx := range i.Checkpoints {
		if p := i.Checkpoints[idx].Kind.position(); p > last {
			last = p
		}
	}
	return last
}

// RecordCheckpoint appends a route milestone. Checkpoints are strictly
// ordered and set at most once; re-sending one with the identical timestamp
// is an idempotent no-op, anything else is rejected. Only the driver assigned
// to the invoice's vehicle may advance the route.
func (i *Invoice) RecordCheckpoint(actor shared.Actor, kind CheckpointKind, at time.Time, lat, lon *float64) error {
	if actor.ID != i.DriverID {
		return invalidTransition("only the assigned driver may report route checkpoints")
	}
	if !kind.IsValid() {
		return shared.NewDomainError("INVALID_CHECKPOINT", "Unknown route checkpoint")
	}
	if i.Status.IsTerminal() {
		return invalidTransition("cannot report checkpoints on a %s invoice", i.Status)
	}
	if i.Type != TypeDelivery {
		return invalidTransition("route checkpoints apply to delivery invoices only")
	}

	if existing := i.CheckpointAt(kind); existing != nil {
		if existing.RecordedAt.Equal(at) {
			return nil // duplicate report of the same event
		}
		return invalidTransition("checkpoint %s already recorded", kind)
	}
	if kind.position() != i.lastCheckpointPosition()+1 {
		return invalidTransition("checkpoint %s reported out of order", kind)
	}

	now := time.Now()
	i.Checkpoints = append(i.Checkpoints, RouteCheckpoint{
		ID:         uuid.New(),
		InvoiceID:  i.ID,
		Kind:       kind,
		RecordedAt: at,
		Lat:        lat,
		Lon:        lon,
		CreatedAt:  now,
	})
	i.Status = checkpointStatus[kind]
	i.UpdatedAt = now

	if kind == CheckpointAccepted {
		i.AddDomainEvent(NewInvoiceInTransitEvent(i))
	}
	if i.Status == StatusCompleted {
		i.CompletedAt = &now
		i.AddDomainEvent(NewInvoiceCompletedEvent(i))
	}

	return nil
}
