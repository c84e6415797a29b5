package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindTargets(t *testing.T) {
	err := Conflict("booking: already cancelled")
	wrapped := fmt.Errorf("cancel: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.True(t, errors.Is(wrapped, Conflict("booking: already cancelled")))
	assert.False(t, errors.Is(wrapped, Conflict("booking: other")))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPolicyViolation, KindOf(fmt.Errorf("x: %w", PolicyViolation("too short"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorMessageFallsBackToCause(t *testing.T) {
	err := Wrap(KindInternal, "", errors.New("disk full"))
	assert.Equal(t, "disk full", err.Error())
	assert.ErrorIs(t, err, err.Cause)
}
