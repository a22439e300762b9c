package weighing

import (
	"context"
	"sync"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sessionKey struct {
	actorID     uuid.UUID
	warehouseID uuid.UUID
}

// SessionManager owns the transient weighing sessions. One session per
// (actor, warehouse); sessions for different actors or warehouses run fully
// independently. Sessions never touch the database: they are discarded once
// the resulting invoice is persisted or the flow is abandoned.
type SessionManager struct {
	gateway weighing.ScaleGateway
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*weighing.Session
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(gateway weighing.ScaleGateway, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		gateway:  gateway,
		logger:   logger,
		sessions: make(map[sessionKey]*weighing.Session),
	}
}

// Begin opens a weighing session for the actor on the warehouse. An already
// open session must be abandoned first; captures in it are not reusable.
func (m *SessionManager) Begin(actor shared.Actor, warehouseID uuid.UUID, orderRef string) (weighing.Snapshot, error) {
	key := sessionKey{actorID: actor.ID, warehouseID: warehouseID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[key]; exists {
		return weighing.Snapshot{}, shared.NewDomainError("SESSION_EXISTS", "A weighing session is already open on this warehouse")
	}

	s := weighing.NewSession(actor, warehouseID, orderRef)
	m.sessions[key] = s

	m.logger.Debug("weighing session opened",
		zap.String("actor_id", actor.ID.String()),
		zap.String("warehouse_id", warehouseID.String()),
	)
	return s.Snapshot(), nil
}

// session looks up the actor's open session
func (m *SessionManager) session(actor shared.Actor, warehouseID uuid.UUID) (*weighing.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey{actorID: actor.ID, warehouseID: warehouseID}]
	if !ok {
		return nil, shared.NewDomainError("NO_SESSION", "No open weighing session on this warehouse")
	}
	return s, nil
}

// RecordGross commits the loaded-vehicle reading on the actor's session
func (m *SessionManager) RecordGross(ctx context.Context, actor shared.Actor, warehouseID uuid.UUID) (weighing.Snapshot, error) {
	s, err := m.session(actor, warehouseID)
	if err != nil {
		return weighing.Snapshot{}, err
	}
	if _, err := s.RecordGross(ctx, m.gateway); err != nil {
		return weighing.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// RecordTare commits the empty-vehicle reading on the actor's session
func (m *SessionManager) RecordTare(ctx context.Context, actor shared.Actor, warehouseID uuid.UUID) (weighing.Snapshot, error) {
	s, err := m.session(actor, warehouseID)
	if err != nil {
		return weighing.Snapshot{}, err
	}
	if _, err := s.RecordTare(ctx, m.gateway); err != nil {
		return weighing.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// SetMoisture records the moisture percentage on the actor's session
func (m *SessionManager) SetMoisture(actor shared.Actor, warehouseID uuid.UUID, percent decimal.Decimal) (weighing.Snapshot, error) {
	s, err := m.session(actor, warehouseID)
	if err != nil {
		return weighing.Snapshot{}, err
	}
	if err := s.SetMoisture(percent); err != nil {
		return weighing.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Snapshot returns the actor's session state
func (m *SessionManager) Snapshot(actor shared.Actor, warehouseID uuid.UUID) (weighing.Snapshot, error) {
	s, err := m.session(actor, warehouseID)
	if err != nil {
		return weighing.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Take removes and returns the actor's completed session, for closing it
// into an invoice. The caller owns the session afterwards.
func (m *SessionManager) Take(actor shared.Actor, warehouseID uuid.UUID) (*weighing.Session, error) {
	key := sessionKey{actorID: actor.ID, warehouseID: warehouseID}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, shared.NewDomainError("NO_SESSION", "No open weighing session on this warehouse")
	}
	if !s.Complete() {
		return nil, shared.NewDomainError("INCOMPLETE_WEIGHING", "Both gross and tare must be captured before closing the session")
	}
	delete(m.sessions, key)
	return s, nil
}

// Restore puts a taken session back. Used when closing the session into an
// invoice fails afterwards: the captured readings are physical events and
// must survive a rejected request. A session the actor opened in the
// meantime is kept over the restored one.
func (m *SessionManager) Restore(actor shared.Actor, warehouseID uuid.UUID, s *weighing.Session) {
	if s == nil {
		return
	}
	key := sessionKey{actorID: actor.ID, warehouseID: warehouseID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; !ok {
		m.sessions[key] = s
	}
}

// Abandon drops the actor's session without producing an invoice
func (m *SessionManager) Abandon(actor shared.Actor, warehouseID uuid.UUID) {
	key := sessionKey{actorID: actor.ID, warehouseID: warehouseID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; ok {
		delete(m.sessions, key)
		m.logger.Debug("weighing session abandoned",
			zap.String("actor_id", actor.ID.String()),
			zap.String("warehouse_id", warehouseID.String()),
		)
	}
}

// CurrentWeight polls the live reading for a warehouse. Advisory only: a
// failed poll degrades to a zero/disconnected placeholder at the gateway.
func (m *SessionManager) CurrentWeight(ctx context.Context, warehouseID uuid.UUID) (*weighing.Reading, error) {
	return m.gateway.ReadCurrentWeight(ctx, warehouseID)
}
