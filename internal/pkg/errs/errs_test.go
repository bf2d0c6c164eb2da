package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorFillsStatusFromKind(t *testing.T) {
	tests := []struct {
		code   int
		kind   Kind
		status int
	}{
		{code: ErrRoomNotFound, kind: KindNotFound, status: http.StatusNotFound},
		{code: ErrOnlyHostCanStart, kind: KindForbidden, status: http.StatusForbidden},
		{code: ErrRoomIsFull, kind: KindConflict, status: http.StatusConflict},
		{code: ErrInvalidParams, kind: KindInvalid, status: http.StatusBadRequest},
		{code: ErrRateLimitExceeded, kind: KindInvalid, status: http.StatusTooManyRequests},
		{code: ErrArchiveUnavailable, kind: KindInternal, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		err := NewError(tt.code)
		assert.Equal(t, tt.code, err.Code)
		assert.Equal(t, tt.kind, err.Kind)
		assert.Equal(t, tt.status, err.Status)
	}
}

func TestNewErrorFormatsDetails(t *testing.T) {
	err := NewError(ErrUnsupportedCommand, "room:explode")
	assert.Equal(t, "Unsupported command: room:explode", err.Message)

	plain := NewError(ErrRoomNotFound, "ignored")
	assert.Equal(t, "Room not found", plain.Message)
}

func TestNewErrorUnknownCode(t *testing.T) {
	err := NewError(999999)
	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, KindInternal, err.Kind)
}

func TestIsAndKindOf(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", NewError(ErrRoomIsFull))

	assert.True(t, Is(wrapped, ErrRoomIsFull))
	assert.False(t, Is(wrapped, ErrRoomNotFound))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
