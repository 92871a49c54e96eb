package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Validation("reason is required", nil), http.StatusBadRequest},
		{Reference("doctor", 99), http.StatusUnprocessableEntity},
		{Unauthorized(nil), http.StatusUnauthorized},
		{Forbidden("permission denied"), http.StatusForbidden},
		{NotFound("appointment", nil), http.StatusNotFound},
		{InvalidState("appointment is cancelled"), http.StatusConflict},
		{Internal(context.Canceled), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestChainHelpers(t *testing.T) {
	wrapped := fmt.Errorf("store: %w", InvalidState("appointment is cancelled"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrInvalidState, appErr.Code)
	assert.True(t, Is(wrapped, ErrInvalidState))
	assert.False(t, Is(nil, ErrInternal))

	assert.Equal(t, ErrInternal, CodeOf(context.DeadlineExceeded))
	assert.ErrorIs(t, Internal(context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "doctor 99 does not exist", Reference("doctor", 99).Error())
	assert.Equal(t, "patient not found", NotFound("patient", nil).Error())
	assert.Equal(t, "unauthorized: token expired", Unauthorized(fmt.Errorf("token expired")).Error())
}
