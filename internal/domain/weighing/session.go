package weighing

import (
	"context"
	"sync"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session is one actor's in-progress gross/tare capture on one warehouse.
// It lives in memory only: it is discarded once the resulting invoice is
// persisted or the flow is abandoned. Sessions are not shared across actors.
//
// Capture calls wait on a network round-trip to the bridge and are serialized
// per session: a concurrent second capture is rejected, not queued.
type Session struct {
	mu sync.Mutex

	ActorID     uuid.UUID
	WarehouseID uuid.UUID
	OrderRef    string
	StartedAt   time.Time

	// capture tokens are minted once per session so a timed-out caller's
	// retry replays the same token instead of firing a second physical
	// capture on the bridge
	grossToken string
	tareToken  string

	grossWeight     *decimal.Decimal
	grossCapturedAt *time.Time
	tareWeight      *decimal.Decimal
	tareCapturedAt  *time.Time
	moisture        *decimal.Decimal
	photoRef        string
}

// NewSession opens a weighing session for one actor on one warehouse
func NewSession(actor shared.Actor, warehouseID uuid.UUID, orderRef string) *Session {
	return &Session{
		ActorID:     actor.ID,
		WarehouseID: warehouseID,
		OrderRef:    orderRef,
		StartedAt:   time.Now(),
		grossToken:  uuid.NewString(),
		tareToken:   uuid.NewString(),
	}
}

// RecordGross commits the loaded-vehicle reading. Write-once: re-capturing
// requires abandoning the session and starting over.
func (s *Session) RecordGross(ctx context.Context, gw ScaleGateway) (*Capture, error) {
	if !s.mu.TryLock() {
		return nil, shared.ErrCaptureInProgress
	}
	defer s.mu.Unlock()

	if s.grossWeight != nil {
		return nil, shared.ErrCaptureConflict
	}

	res, err := gw.CaptureWeight(ctx, CaptureRequest{
		WarehouseID: s.WarehouseID,
		Role:        CaptureRoleGross,
		OrderRef:    s.OrderRef,
		Token:       s.grossToken,
	})
	if err != nil {
		return nil, err
	}

	s.grossWeight = &res.WeightKg
	s.grossCapturedAt = &res.CapturedAt
	if res.PhotoRef != "" {
		s.photoRef = res.PhotoRef
	}
	return res, nil
}

// RecordTare commits the empty-vehicle reading. Requires a recorded gross;
// write-once like RecordGross.
func (s *Session) RecordTare(ctx context.Context, gw ScaleGateway) (*Capture, error) {
	if !s.mu.TryLock() {
		return nil, shared.ErrCaptureInProgress
	}
	defer s.mu.Unlock()

	if s.grossWeight == nil {
		return nil, shared.NewDomainError(shared.CodeCaptureConflict, "Gross weight must be captured before tare")
	}
	if s.tareWeight != nil {
		return nil, shared.ErrCaptureConflict
	}

	res, err := gw.CaptureWeight(ctx, CaptureRequest{
		WarehouseID: s.WarehouseID,
		Role:        CaptureRoleTare,
		OrderRef:    s.OrderRef,
		Token:       s.tareToken,
	})
	if err != nil {
		return nil, err
	}

	s.tareWeight = &res.WeightKg
	s.tareCapturedAt = &res.CapturedAt
	return res, nil
}

// SetMoisture records the aggregate moisture percentage. The corrected
// weight is re-derived on read, so moisture may be edited at any point.
func (s *Session) SetMoisture(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_MOISTURE", "Moisture percentage must be between 0 and 100")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moisture = &percent
	return nil
}

// Net returns gross − tare once both are captured. A negative net is a
// data-quality error surfaced to the operator, never clamped.
func (s *Session) Net() (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netLocked()
}

func (s *Session) netLocked() (decimal.Decimal, error) {
	if s.grossWeight == nil || s.tareWeight == nil {
		return decimal.Zero, shared.NewDomainError("INCOMPLETE_WEIGHING", "Both gross and tare must be captured")
	}
	net := s.grossWeight.Sub(*s.tareWeight)
	if net.IsNegative() {
		return decimal.Zero, shared.ErrNegativeNetWeight
	}
	return net, nil
}

// Corrected returns net × (1 − moisture/100). Only valid once net is known
// and moisture has been recorded.
func (s *Session) Corrected() (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	net, err := s.netLocked()
	if err != nil {
		return decimal.Zero, err
	}
	if s.moisture == nil {
		return decimal.Zero, shared.NewDomainError("NO_MOISTURE", "Moisture percentage not recorded")
	}
	factor := decimal.NewFromInt(1).Sub(s.moisture.Div(decimal.NewFromInt(100)))
	return net.Mul(factor), nil
}

// Snapshot is a read-only copy of the session's captured state
type Snapshot struct {
	ActorID         uuid.UUID        `json:"actor_id"`
	WarehouseID     uuid.UUID        `json:"warehouse_id"`
	OrderRef        string           `json:"order_ref,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	GrossWeightKg   *decimal.Decimal `json:"gross_weight_kg,omitempty"`
	GrossCapturedAt *time.Time       `json:"gross_captured_at,omitempty"`
	TareWeightKg    *decimal.Decimal `json:"tare_weight_kg,omitempty"`
	TareCapturedAt  *time.Time       `json:"tare_captured_at,omitempty"`
	MoisturePercent *decimal.Decimal `json:"moisture_percent,omitempty"`
	NetWeightKg     *decimal.Decimal `json:"net_weight_kg,omitempty"`
	CorrectedKg     *decimal.Decimal `json:"corrected_weight_kg,omitempty"`
	PhotoRef        string           `json:"photo_ref,omitempty"`
}

// Snapshot returns the current captured state. Derived figures appear only
// when valid: net once both readings exist and gross ≥ tare, corrected once
// moisture is also present.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ActorID:         s.ActorID,
		WarehouseID:     s.WarehouseID,
		OrderRef:        s.OrderRef,
		StartedAt:       s.StartedAt,
		GrossWeightKg:   s.grossWeight,
		GrossCapturedAt: s.grossCapturedAt,
		TareWeightKg:    s.tareWeight,
		TareCapturedAt:  s.tareCapturedAt,
		MoisturePercent: s.moisture,
		PhotoRef:        s.photoRef,
	}
	if net, err := s.netLocked(); err == nil {
		snap.NetWeightKg = &net
		if s.moisture != nil {
			factor := decimal.NewFromInt(1).Sub(s.moisture.Div(decimal.NewFromInt(100)))
			corrected := net.Mul(factor)
			snap.CorrectedKg = &corrected
		}
	}
	return snap
}

// Complete reports whether both readings were captured
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grossWeight != nil && s.tareWeight != nil
}
