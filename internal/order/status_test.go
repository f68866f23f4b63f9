package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusShipped},
		{StatusProcessing, StatusCancelled},
		{StatusShipped, StatusDelivered},
		{StatusShipped, StatusReturned},
		{StatusDelivered, StatusReturned},
		{StatusReturned, StatusRefunded},
	}

	for _, tc := range allowed {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.True(t, CanTransition(tc.from, tc.to))
			assert.NoError(t, ValidateTransition(tc.from, tc.to))
		})
	}

	denied := []struct {
		from, to OrderStatus
	}{
		{StatusPending, StatusShipped},
		{StatusPending, StatusDelivered},
		{StatusProcessing, StatusDelivered},
		{StatusShipped, StatusCancelled},
		{StatusDelivered, StatusCancelled},
		{StatusCancelled, StatusProcessing},
		{StatusCancelled, StatusPending},
		{StatusRefunded, StatusPending},
		{StatusReturned, StatusDelivered},
		{StatusPending, StatusPending},
	}

	for _, tc := range denied {
		t.Run("deny_"+string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.False(t, CanTransition(tc.from, tc.to))

			err := ValidateTransition(tc.from, tc.to)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var te *TransitionError
			assert.True(t, errors.As(err, &te))
			assert.Equal(t, tc.from, te.From)
			assert.Equal(t, tc.to, te.To)
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReturned.Terminal())
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusRefunded.Valid())
	assert.False(t, OrderStatus("PAID").Valid())
	assert.False(t, OrderStatus("").Valid())
}
