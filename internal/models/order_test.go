package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionForwardChain(t *testing.T) {
	require.True(t, CanTransition(OrderStatusPending, OrderStatusConfirmed))
	require.True(t, CanTransition(OrderStatusConfirmed, OrderStatusProcessing))
	require.True(t, CanTransition(OrderStatusProcessing, OrderStatusOutForDelivery))
	require.True(t, CanTransition(OrderStatusOutForDelivery, OrderStatusDelivered))
}

func TestCanTransitionCancellation(t *testing.T) {
	require.True(t, CanTransition(OrderStatusPending, OrderStatusCancelled))
	require.True(t, CanTransition(OrderStatusConfirmed, OrderStatusCancelled))
	require.False(t, CanTransition(OrderStatusProcessing, OrderStatusCancelled))
	require.False(t, CanTransition(OrderStatusDelivered, OrderStatusCancelled))
}

func TestCanTransitionNoBackwardMoves(t *testing.T) {
	require.False(t, CanTransition(OrderStatusDelivered, OrderStatusPending))
	require.False(t, CanTransition(OrderStatusConfirmed, OrderStatusPending))
	require.False(t, CanTransition(OrderStatusOutForDelivery, OrderStatusProcessing))
}

func TestCanTransitionRefunds(t *testing.T) {
	require.True(t, CanTransition(OrderStatusConfirmed, OrderStatusRefunded))
	require.True(t, CanTransition(OrderStatusDelivered, OrderStatusRefunded))
	require.False(t, CanTransition(OrderStatusPending, OrderStatusRefunded))
}

func TestTerminalStates(t *testing.T) {
	require.False(t, CanTransition(OrderStatusCancelled, OrderStatusPending))
	require.False(t, CanTransition(OrderStatusRefunded, OrderStatusConfirmed))
}

func TestNewOrderNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number := NewOrderNumber()
		require.True(t, strings.HasPrefix(number, "FS"))
		require.Len(t, number, 10)
		require.Equal(t, strings.ToUpper(number), number)
		require.False(t, seen[number], "order numbers must be unique")
		seen[number] = true
	}
}

func TestIsKnownOrderStatus(t *testing.T) {
	require.True(t, IsKnownOrderStatus(OrderStatusOutForDelivery))
	require.False(t, IsKnownOrderStatus("shipped"))
	require.False(t, IsKnownOrderStatus(""))
}

func TestTrackingMessageCoversAllStatuses(t *testing.T) {
	for _, status := range []string{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded,
	} {
		title, description := TrackingMessage(status)
		require.NotEmpty(t, title, status)
		require.NotEmpty(t, description, status)
	}
}
