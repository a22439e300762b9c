package order

import (
	"context"
	"testing"
	"time"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindByStatus(ctx context.Context, status order.Status, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindByCreator(ctx context.Context, creatorID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, creatorID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of invoice.Repository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]invoice.Invoice, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) ([]invoice.Invoice, int64, error) {
	args := m.Called(ctx, driverID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoice.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoice.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoice.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, typ invoice.Type) (string, error) {
	args := m.Called(ctx, typ)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func newTestService(t *testing.T) (*Service, *MockOrderRepository, *MockInvoiceRepository) {
	t.Helper()
	orderRepo := new(MockOrderRepository)
	invoiceRepo := new(MockInvoiceRepository)
	return NewService(orderRepo, invoiceRepo), orderRepo, invoiceRepo
}

func pendingDirectorOrder(t *testing.T, creator shared.Actor) *order.Order {
	t.Helper()
	o, err := order.NewOrder(creator, uuid.New(), "Stroytrest LLC", uuid.New(), "M300",
		decimal.NewFromInt(100), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "10:00",
		"Street A", order.PaymentTypeTransfer)
	require.NoError(t, err)
	require.NoError(t, o.Submit(creator))
	o.ClearDomainEvents()
	return o
}

func TestService_Create(t *testing.T) {
	creator := shared.NewActor(uuid.New(), shared.RoleCreator)
	req := CreateOrderRequest{
		CustomerID:      uuid.New(),
		CustomerName:    "Stroytrest LLC",
		ConcreteMarkID:  uuid.New(),
		ConcreteMark:    "M300",
		Quantity:        decimal.NewFromInt(100),
		DeliveryDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		DeliveryTime:    "10:00",
		DeliveryAddress: "Street A",
		PaymentType:     order.PaymentTypeTransfer,
	}

	t.Run("creates draft order with generated number", func(t *testing.T) {
		svc, orderRepo, _ := newTestService(t)
		orderRepo.On("GenerateOrderNumber", mock.Anything).Return("ORD-2026-00001", nil)
		orderRepo.On("Save", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)

		resp, err := svc.Create(context.Background(), creator, req)
		require.NoError(t, err)
		assert.Equal(t, "ORD-2026-00001", resp.OrderNumber)
		assert.Equal(t, order.StatusDraft, resp.Status)
		orderRepo.AssertExpectations(t)
	})

	t.Run("non-creator role rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		driver := shared.NewActor(uuid.New(), shared.RoleDriver)
		_, err := svc.Create(context.Background(), driver, req)
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.CodeInvalidTransition, derr.Code)
	})
}

func TestService_GetByID(t *testing.T) {
	creator := shared.NewActor(uuid.New(), shared.RoleCreator)
	o := pendingDirectorOrder(t, creator)

	svc, orderRepo, invoiceRepo := newTestService(t)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	invoiceRepo.On("FindByOrder", mock.Anything, o.ID).Return([]invoice.Invoice{}, nil)

	resp, err := svc.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Reconciliation)
	assert.True(t, resp.Reconciliation.RemainingQuantity.Equal(decimal.NewFromInt(100)))
}

func TestService_ApproveFlow(t *testing.T) {
	creator := shared.NewActor(uuid.New(), shared.RoleCreator)
	director := shared.NewActor(uuid.New(), shared.RoleDirector)

	t.Run("director approval persists and publishes", func(t *testing.T) {
		o := pendingDirectorOrder(t, creator)
		svc, orderRepo, _ := newTestService(t)
		publisher := new(MockEventPublisher)
		svc.SetEventPublisher(publisher)

		orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		orderRepo.On("Save", mock.Anything, o).Return(nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.Approve(context.Background(), director, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPendingDispatcher, resp.Status)
		publisher.AssertExpectations(t)
	})

	t.Run("invalid transition is not persisted", func(t *testing.T) {
		o := pendingDirectorOrder(t, creator)
		svc, orderRepo, _ := newTestService(t)
		orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := svc.Dispatch(context.Background(), shared.NewActor(uuid.New(), shared.RoleDispatcher), o.ID)
		require.Error(t, err)
		orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("version conflict surfaces to the caller", func(t *testing.T) {
		o := pendingDirectorOrder(t, creator)
		svc, orderRepo, _ := newTestService(t)
		orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		orderRepo.On("Save", mock.Anything, o).Return(shared.ErrConcurrencyConflict)

		_, err := svc.Approve(context.Background(), director, o.ID)
		require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestService_ProposeChanges(t *testing.T) {
	creator := shared.NewActor(uuid.New(), shared.RoleCreator)
	director := shared.NewActor(uuid.New(), shared.RoleDirector)
	newDate := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	t.Run("date and time proposal accepted", func(t *testing.T) {
		o := pendingDirectorOrder(t, creator)
		svc, orderRepo, _ := newTestService(t)
		orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		orderRepo.On("Save", mock.Anything, o).Return(nil)

		resp, err := svc.ProposeChanges(context.Background(), director, o.ID, ProposeChangesRequest{
			NewDate: newDate, NewTime: "08:00", Reason: "traffic",
		})
		require.NoError(t, err)
		assert.Equal(t, order.StatusWaitingCreatorApproval, resp.Status)
		assert.Equal(t, "Street A", resp.DeliveryAddress)
	})

	t.Run("address change attempt rejected server-side", func(t *testing.T) {
		o := pendingDirectorOrder(t, creator)
		svc, orderRepo, _ := newTestService(t)

		_, err := svc.ProposeChanges(context.Background(), director, o.ID, ProposeChangesRequest{
			NewDate: newDate, NewTime: "08:00", Reason: "traffic",
			DeliveryAddress: "Street B",
		})
		require.ErrorIs(t, err, shared.ErrProposalViolation)
		orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("coordinate change attempt rejected server-side", func(t *testing.T) {
		o := pendingDirectorOrder(t, creator)
		svc, _, _ := newTestService(t)
		lat := 55.75

		_, err := svc.ProposeChanges(context.Background(), director, o.ID, ProposeChangesRequest{
			NewDate: newDate, NewTime: "08:00", Reason: "traffic",
			DeliveryLat: &lat,
		})
		require.ErrorIs(t, err, shared.ErrProposalViolation)
	})
}

func TestService_Reconciliation(t *testing.T) {
	creator := shared.NewActor(uuid.New(), shared.RoleCreator)
	o := pendingDirectorOrder(t, creator)

	inTransit, err := invoice.NewDeliveryInvoice(
		shared.NewActor(uuid.New(), shared.RoleClerk), &o.ID,
		decimal.NewFromInt(40), uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	inTransit.Status = invoice.StatusInTransit

	svc, orderRepo, invoiceRepo := newTestService(t)
	orderRepo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	invoiceRepo.On("FindByOrder", mock.Anything, o.ID).Return([]invoice.Invoice{*inTransit}, nil)

	view, err := svc.Reconciliation(context.Background(), o.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, view.InProgressQuantity.Equal(decimal.NewFromInt(90)))
	assert.True(t, view.RemainingQuantity.Equal(decimal.NewFromInt(10)))
	assert.False(t, view.QuotaExceeded)
}
