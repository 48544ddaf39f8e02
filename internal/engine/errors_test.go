package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := newQueryError(ErrCodeLegacyQueryFailed, "legacy timing", []int64{1, 2}, errors.New("timeout"))

	assert.Equal(t, "LEGACY_QUERY_FAILED: legacy timing query failed: timeout", err.Error())
	assert.Equal(t, "1,2", err.Details["round_ids"])
}

func TestError_UnwrapAndPredicates(t *testing.T) {
	cause := errors.New("timeout")
	wrapped := fmt.Errorf("compare: %w", newQueryError(ErrCodeLegacyQueryFailed, "legacy timing", nil, cause))

	assert.True(t, IsLegacyQueryError(wrapped))
	assert.False(t, IsRoundQueryError(wrapped))
	assert.False(t, IsUnsupportedMetric(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, IsLegacyQueryError(cause))
	assert.False(t, IsLegacyQueryError(nil))
}

func TestNewUnsupportedMetricError(t *testing.T) {
	err := NewUnsupportedMetricError("kills")

	assert.Equal(t, ErrCodeUnsupportedMetric, err.Code)
	assert.Equal(t,
		`UNSUPPORTED_METRIC: unsupported metric "kills": must be one of dead_diff_seconds, denied_diff_seconds`,
		err.Error(),
	)
}
