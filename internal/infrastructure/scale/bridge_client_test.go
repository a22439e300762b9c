package scale

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryTokenStore is a test double for the capture token store
type memoryTokenStore struct {
	mu   sync.Mutex
	used map[string]bool
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{used: make(map[string]bool)}
}

func (s *memoryTokenStore) MarkCaptured(_ context.Context, token string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used[token] {
		return false, nil
	}
	s.used[token] = true
	return true, nil
}

func (s *memoryTokenStore) Close() error { return nil }

func newTestClient(t *testing.T, warehouseID uuid.UUID, handler http.Handler) (*BridgeClient, *memoryTokenStore) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := newMemoryTokenStore()
	client := NewBridgeClient(&config.ScaleConfig{
		BridgeURLs:     map[string]string{warehouseID.String(): server.URL},
		RequestTimeout: 2 * time.Second,
		CaptureTimeout: 5 * time.Second,
		TokenTTL:       10 * time.Minute,
		MaxFailures:    2,
	}, tokens, zap.NewNop())
	return client, tokens
}

func TestBridgeClient_ReadCurrentWeight(t *testing.T) {
	warehouseID := uuid.New()

	t.Run("legacy connected payload", func(t *testing.T) {
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/weight", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"weight": 27500.5, "connected": true})
		}))

		reading, err := client.ReadCurrentWeight(context.Background(), warehouseID)
		require.NoError(t, err)
		assert.Equal(t, "27500.5", reading.WeightKg.String())
		assert.True(t, reading.Stable)
		assert.True(t, reading.Connected)
	})

	t.Run("stable payload with tonne unit", func(t *testing.T) {
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"weight": 27.5, "unit": "t", "stable": false})
		}))

		reading, err := client.ReadCurrentWeight(context.Background(), warehouseID)
		require.NoError(t, err)
		assert.Equal(t, "27500", reading.WeightKg.String())
		assert.False(t, reading.Stable)
		assert.True(t, reading.Connected)
	})

	t.Run("unknown warehouse", func(t *testing.T) {
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		_, err := client.ReadCurrentWeight(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrDeviceUnavailable)
	})

	t.Run("degrades to disconnected placeholder after repeated failures", func(t *testing.T) {
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.ReadCurrentWeight(context.Background(), warehouseID)
		assert.ErrorIs(t, err, shared.ErrDeviceUnavailable)

		reading, err := client.ReadCurrentWeight(context.Background(), warehouseID)
		require.NoError(t, err)
		assert.False(t, reading.Connected)
		assert.False(t, reading.Stable)
		assert.True(t, reading.WeightKg.IsZero())
	})

	t.Run("success resets the failure counter", func(t *testing.T) {
		var fail bool
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fail {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"weight": 100, "connected": true})
		}))

		fail = true
		_, err := client.ReadCurrentWeight(context.Background(), warehouseID)
		require.Error(t, err)

		fail = false
		_, err = client.ReadCurrentWeight(context.Background(), warehouseID)
		require.NoError(t, err)

		// a single new failure must error again rather than report disconnected
		fail = true
		_, err = client.ReadCurrentWeight(context.Background(), warehouseID)
		assert.ErrorIs(t, err, shared.ErrDeviceUnavailable)
	})
}

func TestBridgeClient_CaptureWeight(t *testing.T) {
	warehouseID := uuid.New()

	t.Run("commits a capture", func(t *testing.T) {
		capturedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/capture", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gross", body["role"])
			assert.Equal(t, "ORD-2026-00042", body["order_ref"])

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"weight":      27500,
				"captured_at": capturedAt,
				"photo_ref":   "captures/2026/03/14/abc.jpg",
			})
		}))

		capture, err := client.CaptureWeight(context.Background(), weighing.CaptureRequest{
			WarehouseID: warehouseID,
			Role:        weighing.CaptureRoleGross,
			OrderRef:    "ORD-2026-00042",
			Token:       "tok-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "27500", capture.WeightKg.String())
		assert.True(t, capture.CapturedAt.Equal(capturedAt))
		assert.Equal(t, "captures/2026/03/14/abc.jpg", capture.PhotoRef)
	})

	t.Run("replayed token does not fire a second capture", func(t *testing.T) {
		var captureCalls int
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/capture":
				captureCalls++
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"weight": 27500})
			case "/weight":
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"weight": 27480, "connected": true})
			}
		}))

		req := weighing.CaptureRequest{
			WarehouseID: warehouseID,
			Role:        weighing.CaptureRoleGross,
			OrderRef:    "ORD-2026-00042",
			Token:       "tok-retry",
		}

		first, err := client.CaptureWeight(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "27500", first.WeightKg.String())

		second, err := client.CaptureWeight(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "27480", second.WeightKg.String())
		assert.Equal(t, 1, captureCalls)
	})

	t.Run("bridge failure maps to device unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, warehouseID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, err := client.CaptureWeight(context.Background(), weighing.CaptureRequest{
			WarehouseID: warehouseID,
			Role:        weighing.CaptureRoleTare,
			Token:       "tok-down",
		})
		assert.ErrorIs(t, err, shared.ErrDeviceUnavailable)
	})
}
