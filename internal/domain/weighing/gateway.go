package weighing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CaptureRole tells the bridge which logical reading is being committed
type CaptureRole string

const (
	CaptureRoleGross CaptureRole = "gross"
	CaptureRoleTare  CaptureRole = "tare"
)

// IsValid checks if the role is known
func (r CaptureRole) IsValid() bool {
	return r == CaptureRoleGross || r == CaptureRoleTare
}

// Reading is one advisory weight poll. Polls carry no ordering guarantee and
// may degrade to a zero/disconnected placeholder when the bridge is down.
type Reading struct {
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Stable    bool            `json:"stable"`
	Connected bool            `json:"connected"`
}

// Capture is one committed weighbridge reading. Unlike a poll, a capture is a
// physical event on the remote device and must never be silently defaulted.
type Capture struct {
	WeightKg   decimal.Decimal `json:"weight_kg"`
	CapturedAt time.Time       `json:"captured_at"`
	PhotoRef   string          `json:"photo_ref,omitempty"`
}

// CaptureRequest identifies one logical capture. Token de-duplicates retries:
// the gateway must not fire a second physical event for a token it has
// already seen.
type CaptureRequest struct {
	WarehouseID uuid.UUID
	Role        CaptureRole
	OrderRef    string
	Token       string
}

// ScaleGateway is the narrow contract to the per-warehouse weighbridge/camera
// bridge. ReadCurrentWeight is non-mutating and safe to poll; CaptureWeight
// physically commits a reading and must be idempotent per token.
type ScaleGateway interface {
	ReadCurrentWeight(ctx context.Context, warehouseID uuid.UUID) (*Reading, error)
	CaptureWeight(ctx context.Context, req CaptureRequest) (*Capture, error)
}

// CaptureTokenStore remembers recently used capture tokens so a timed-out
// caller's retry cannot double-commit a reading.
type CaptureTokenStore interface {
	// MarkCaptured marks a token as used with a TTL. Returns true if the
	// token was newly marked, false if it was already used.
	MarkCaptured(ctx context.Context, token string, ttl time.Duration) (bool, error)
	Close() error
}
