package scale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from a bridge (1MB)
const maxResponseSize = 1 * 1024 * 1024

// BridgeClient implements weighing.ScaleGateway against the per-warehouse
// HTTP bridge that fronts the scale head and the camera. Bridges in the field
// run different firmware revisions and answer in two payload shapes; the
// client normalizes both.
type BridgeClient struct {
	urls          map[string]string
	pollClient    *http.Client
	captureClient *http.Client
	tokens        weighing.CaptureTokenStore
	tokenTTL      time.Duration
	maxFailures   int
	logger        *zap.Logger

	mu       sync.Mutex
	failures map[uuid.UUID]int
}

// NewBridgeClient creates a new BridgeClient
func NewBridgeClient(cfg *config.ScaleConfig, tokens weighing.CaptureTokenStore, logger *zap.Logger) *BridgeClient {
	return &BridgeClient{
		urls:          cfg.BridgeURLs,
		pollClient:    &http.Client{Timeout: cfg.RequestTimeout},
		captureClient: &http.Client{Timeout: cfg.CaptureTimeout},
		tokens:        tokens,
		tokenTTL:      cfg.TokenTTL,
		maxFailures:   cfg.MaxFailures,
		logger:        logger.Named("scale"),
		failures:      make(map[uuid.UUID]int),
	}
}

// bridgeWeightPayload covers both firmware shapes: older bridges answer
// {"weight": n, "connected": bool}, newer ones {"weight": n, "unit": "kg",
// "stable": bool}.
type bridgeWeightPayload struct {
	Weight    decimal.Decimal `json:"weight"`
	Unit      string          `json:"unit"`
	Stable    *bool           `json:"stable"`
	Connected *bool           `json:"connected"`
}

type bridgeCapturePayload struct {
	Weight     decimal.Decimal `json:"weight"`
	Unit       string          `json:"unit"`
	CapturedAt *time.Time      `json:"captured_at"`
	PhotoRef   string          `json:"photo_ref"`
}

// ReadCurrentWeight polls the live reading. A bridge that has failed
// MaxFailures consecutive polls is reported as a zero/disconnected
// placeholder rather than an error, so dashboards keep rendering while a
// warehouse is offline.
func (c *BridgeClient) ReadCurrentWeight(ctx context.Context, warehouseID uuid.UUID) (*weighing.Reading, error) {
	baseURL, ok := c.urls[warehouseID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: no bridge configured for warehouse %s", shared.ErrDeviceUnavailable, warehouseID)
	}

	payload, err := c.fetchWeight(ctx, baseURL)
	if err != nil {
		return c.recordFailure(warehouseID, err)
	}
	c.recordSuccess(warehouseID)

	return normalizeReading(payload), nil
}

func (c *BridgeClient) fetchWeight(ctx context.Context, baseURL string) (*bridgeWeightPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/weight", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	var payload bridgeWeightPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func normalizeReading(p *bridgeWeightPayload) *weighing.Reading {
	reading := &weighing.Reading{
		WeightKg:  toKilograms(p.Weight, p.Unit),
		Stable:    true,
		Connected: true,
	}
	if p.Stable != nil {
		reading.Stable = *p.Stable
	}
	if p.Connected != nil {
		reading.Connected = *p.Connected
	}
	return reading
}

func toKilograms(weight decimal.Decimal, unit string) decimal.Decimal {
	if unit == "t" {
		return weight.Mul(decimal.NewFromInt(1000))
	}
	// bridges report kilograms unless told otherwise
	return weight
}

func (c *BridgeClient) recordFailure(warehouseID uuid.UUID, err error) (*weighing.Reading, error) {
	c.mu.Lock()
	c.failures[warehouseID]++
	failures := c.failures[warehouseID]
	c.mu.Unlock()

	if failures < c.maxFailures {
		return nil, fmt.Errorf("%w: %v", shared.ErrDeviceUnavailable, err)
	}

	c.logger.Warn("bridge considered disconnected",
		zap.String("warehouse_id", warehouseID.String()),
		zap.Int("consecutive_failures", failures),
		zap.Error(err),
	)
	return &weighing.Reading{WeightKg: decimal.Zero, Stable: false, Connected: false}, nil
}

func (c *BridgeClient) recordSuccess(warehouseID uuid.UUID) {
	c.mu.Lock()
	delete(c.failures, warehouseID)
	c.mu.Unlock()
}

// CaptureWeight commits a reading on the bridge. The token makes retries
// safe: a token that was already spent must not fire a second physical
// capture, so the retry gets the live reading instead.
func (c *BridgeClient) CaptureWeight(ctx context.Context, req weighing.CaptureRequest) (*weighing.Capture, error) {
	baseURL, ok := c.urls[req.WarehouseID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: no bridge configured for warehouse %s", shared.ErrDeviceUnavailable, req.WarehouseID)
	}

	fresh, err := c.tokens.MarkCaptured(ctx, req.Token, c.tokenTTL)
	if err != nil {
		return nil, err
	}
	if !fresh {
		c.logger.Info("capture token replayed, returning live reading",
			zap.String("warehouse_id", req.WarehouseID.String()),
		)
		payload, err := c.fetchWeight(ctx, baseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrDeviceUnavailable, err)
		}
		reading := normalizeReading(payload)
		return &weighing.Capture{WeightKg: reading.WeightKg, CapturedAt: time.Now()}, nil
	}

	body, err := json.Marshal(map[string]string{
		"role":      string(req.Role),
		"order_ref": req.OrderRef,
		"token":     req.Token,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/capture", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.captureClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bridge returned status %d", shared.ErrDeviceUnavailable, resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	var payload bridgeCapturePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, err
	}

	capturedAt := time.Now()
	if payload.CapturedAt != nil {
		capturedAt = *payload.CapturedAt
	}
	return &weighing.Capture{
		WeightKg:   toKilograms(payload.Weight, payload.Unit),
		CapturedAt: capturedAt,
		PhotoRef:   payload.PhotoRef,
	}, nil
}
