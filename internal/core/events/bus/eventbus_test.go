package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := range 3 {
		_, err := b.Subscribe(EntityCreated, func(Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, b.Publish(NewEvent(EntityCreated, "router", "7")))
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, uint64(3), b.Metrics().DeliveredHandlers)
}

func TestPublishJoinsErrorsAndKeepsDelivering(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	calls := 0
	_, _ = b.Subscribe(RouterFault, func(Event) error { calls++; return errA })
	_, _ = b.Subscribe(RouterFault, func(Event) error { calls++; return errB })

	err := b.Publish(NewEvent(RouterFault, "router", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), b.Metrics().Errors)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe(EntityDeleted, func(Event) error { calls++; return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())

	require.NoError(t, b.Publish(NewEvent(EntityDeleted, "", nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Publish(NewEvent(EntityDeleted, "", nil)))

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())
	assert.Equal(t, uint64(0), b.Metrics().SubscribersActive)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestCancelDuringDelivery(t *testing.T) {
	b := New()
	var second Subscription
	calls := 0
	_, _ = b.Subscribe(OperationEmitted, func(Event) error {
		return second.Cancel()
	})
	second, _ = b.Subscribe(OperationEmitted, func(Event) error { calls++; return nil })

	require.NoError(t, b.Publish(NewEvent(OperationEmitted, "", nil)))
	assert.Equal(t, 0, calls, "cancelled subscription is skipped within the same publish")
}

func TestFilteredSubscription(t *testing.T) {
	b := New()
	var got []any
	_, err := SubscribeFiltered(b, EntityCreated, func(e Event) error {
		got = append(got, e.Data())
		return nil
	}, func(e Event) bool { return e.Source() == "tree" })
	require.NoError(t, err)

	require.NoError(t, b.PublishBatch(
		NewEvent(EntityCreated, "tree", 1),
		NewEvent(EntityCreated, "rock", 2),
		NewEvent(EntityCreated, "tree", 3),
	))
	assert.Equal(t, []any{1, 3}, got)
}
