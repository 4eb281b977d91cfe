package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("mark dose d-1: %w", InvalidState("dose already recorded"))

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, ErrInvalidState, KindOf(err))
	assert.Equal(t, "dose already recorded", MessageOf(err))
}

func TestKindOf_PlainSentinelAndForeignError(t *testing.T) {
	assert.Equal(t, ErrNotFound, KindOf(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Nil(t, KindOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
	assert.Equal(t, "not found", MessageOf(ErrNotFound))
}
