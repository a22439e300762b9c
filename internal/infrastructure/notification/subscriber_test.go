package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingNotifier struct {
	sent []Notification
	err  error
}

func (n *capturingNotifier) Notify(_ context.Context, notification Notification) error {
	n.sent = append(n.sent, notification)
	return n.err
}

func newSubmittedOrder(t *testing.T) (*order.Order, shared.Actor) {
	t.Helper()
	creator := shared.NewActor(uuid.New(), shared.RoleCreator)
	o, err := order.NewOrder(creator,
		uuid.New(), "Stroytrest LLC",
		uuid.New(), "M300",
		decimal.NewFromInt(100),
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "10:00", "Street A",
		order.PaymentTypeTransfer,
	)
	require.NoError(t, err)
	o.OrderNumber = "ORD-2026-00007"
	require.NoError(t, o.Submit(creator))
	return o, creator
}

func TestEventSubscriber_OrderSubmitted(t *testing.T) {
	notifier := &capturingNotifier{}
	sub := NewEventSubscriber(notifier, zap.NewNop())

	o, _ := newSubmittedOrder(t)
	err := sub.Handle(context.Background(), order.NewOrderSubmittedEvent(o))
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, RoleDirector, n.Role)
	assert.Nil(t, n.Recipient)
	assert.Equal(t, "Order awaiting approval", n.Subject)
	assert.Contains(t, n.Body, "ORD-2026-00007")
}

func TestEventSubscriber_OrderRejectedGoesToCreator(t *testing.T) {
	notifier := &capturingNotifier{}
	sub := NewEventSubscriber(notifier, zap.NewNop())

	o, _ := newSubmittedOrder(t)
	director := shared.NewActor(uuid.New(), shared.RoleDirector)
	require.NoError(t, o.Reject(director, "slab not ready"))

	err := sub.Handle(context.Background(), order.NewOrderRejectedEvent(o))
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	require.NotNil(t, n.Recipient)
	assert.Equal(t, o.CreatorID, *n.Recipient)
	assert.Contains(t, n.Body, "slab not ready")
}

func TestEventSubscriber_ChangesProposedGoesToCreator(t *testing.T) {
	notifier := &capturingNotifier{}
	sub := NewEventSubscriber(notifier, zap.NewNop())

	o, _ := newSubmittedOrder(t)
	director := shared.NewActor(uuid.New(), shared.RoleDirector)
	proposedDate := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, o.ProposeChanges(director, proposedDate, "08:00", "pump busy in the morning"))

	err := sub.Handle(context.Background(), order.NewOrderChangesProposedEvent(o))
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	require.NotNil(t, n.Recipient)
	assert.Equal(t, "Changes proposed", n.Subject)
	assert.Contains(t, n.Body, "2026-09-03")
	assert.Contains(t, n.Body, "08:00")
}

func TestEventSubscriber_IgnoresUnrelatedEvents(t *testing.T) {
	notifier := &capturingNotifier{}
	sub := NewEventSubscriber(notifier, zap.NewNop())

	o, _ := newSubmittedOrder(t)
	err := sub.Handle(context.Background(), order.NewOrderCreatedEvent(o))
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestEventSubscriber_DeliveryFailureIsSwallowed(t *testing.T) {
	notifier := &capturingNotifier{err: errors.New("smtp down")}
	sub := NewEventSubscriber(notifier, zap.NewNop())

	o, _ := newSubmittedOrder(t)
	err := sub.Handle(context.Background(), order.NewOrderSubmittedEvent(o))
	assert.NoError(t, err)
}

func TestEventSubscriber_EventTypes(t *testing.T) {
	sub := NewEventSubscriber(&capturingNotifier{}, zap.NewNop())
	assert.Contains(t, sub.EventTypes(), order.EventTypeOrderSubmitted)
	assert.Contains(t, sub.EventTypes(), "InvoiceCompleted")
	var _ shared.EventHandler = sub
}
