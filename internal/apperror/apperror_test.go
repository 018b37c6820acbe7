package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"Auth wraps ErrAuth", Auth(401, ""), ErrAuth, true},
		{"LimitReached wraps ErrLimitReached", LimitReached("upgrade"), ErrLimitReached, true},
		{"LimitReached is not a generic request error", LimitReached(""), ErrRequest, false},
		{"Request is not a limit error", Request(500, "", "boom"), ErrLimitReached, false},
		{"Format wraps ErrFormat", Format(200, "not json"), ErrFormat, true},
		{"Network keeps the cause", Network("list links", errBoom), errBoom, true},
		{"NotFound wraps ErrNotFound", NotFound("link", 5), ErrNotFound, true},
		{"wrapped with fmt still matches", fmt.Errorf("create: %w", LimitReached("")), ErrLimitReached, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

var errBoom = errors.New("boom")

func TestLimitReachedCarriesCode(t *testing.T) {
	err := LimitReached("You have reached the free plan limit")

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, LimitReachedCode, ae.Code)
	assert.Equal(t, 403, ae.Status)
	assert.Equal(t, "You have reached the free plan limit", Message(err))
}

func TestAggregate(t *testing.T) {
	t.Run("empty is nil", func(t *testing.T) {
		assert.NoError(t, Aggregate("delete", nil))
	})

	t.Run("shared kind is kept", func(t *testing.T) {
		err := Aggregate("delete", map[int64]error{
			3: Network("delete", errBoom),
			1: Network("delete", errBoom),
		})
		require.Error(t, err)
		assert.Equal(t, ErrNetwork, KindOf(err))
		assert.Equal(t, "delete failed for 2 link(s): 1, 3", err.Error())
	})

	t.Run("mixed kinds collapse to request", func(t *testing.T) {
		err := Aggregate("delete", map[int64]error{
			1: Network("delete", errBoom),
			2: Request(500, "", "server error"),
		})
		assert.Equal(t, ErrRequest, KindOf(err))
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrRequest, KindOf(errBoom))
	assert.Equal(t, ErrAuth, KindOf(fmt.Errorf("x: %w", ErrAuth)))
	assert.Equal(t, ErrValidation, KindOf(ValidationFailed("url", "URL is required")))
}

func TestName(t *testing.T) {
	assert.Equal(t, "", Name(nil))
	assert.Equal(t, "limit_reached", Name(LimitReached("")))
	assert.Equal(t, "auth", Name(fmt.Errorf("wrap: %w", Auth(401, ""))))
	assert.Equal(t, "request", Name(errors.New("foreign")))
}
