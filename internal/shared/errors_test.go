package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationfWrapsSentinel(t *testing.T) {
	err := Validationf("quantity must be at least %d", 1)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "validation failed: quantity must be at least 1", err.Error())
}

func TestUserSafeMessageHidesInternalErrors(t *testing.T) {
	require.Equal(t, "internal error", UserSafeMessage(errors.New("pq: connection refused")))
	require.Equal(t, "not found: product 9", UserSafeMessage(NotFoundf("product %d", 9)))
	require.Empty(t, UserSafeMessage(nil))
}
