package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a failure the engine cannot degrade around.
//
// Data-quality problems never produce an Error; they are recorded as
// fallback reasons on the affected rows instead.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedMetric indicates a ranking metric outside SupportedMetrics.
	ErrCodeUnsupportedMetric ErrorCode = "UNSUPPORTED_METRIC"

	// ErrCodeLegacyQueryFailed indicates the legacy aggregate query failed.
	ErrCodeLegacyQueryFailed ErrorCode = "LEGACY_QUERY_FAILED"

	// ErrCodeRoundQueryFailed indicates the round metadata query failed.
	ErrCodeRoundQueryFailed ErrorCode = "ROUND_QUERY_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnsupportedMetric returns true if err is an unsupported ranking metric error.
func IsUnsupportedMetric(err error) bool {
	return hasCode(err, ErrCodeUnsupportedMetric)
}

// IsLegacyQueryError returns true if err came from the legacy aggregate query.
func IsLegacyQueryError(err error) bool {
	return hasCode(err, ErrCodeLegacyQueryFailed)
}

// IsRoundQueryError returns true if err came from the round metadata query.
func IsRoundQueryError(err error) bool {
	return hasCode(err, ErrCodeRoundQueryFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewUnsupportedMetricError names the rejected metric and the allowed set.
func NewUnsupportedMetricError(metric string) *Error {
	allowed := make([]string, len(SupportedMetrics))
	for i, m := range SupportedMetrics {
		allowed[i] = string(m)
	}
	return &Error{
		Code:    ErrCodeUnsupportedMetric,
		Message: fmt.Sprintf("unsupported metric %q: must be one of %s", metric, strings.Join(allowed, ", ")),
		Details: map[string]string{"metric": metric},
	}
}

func newQueryError(code ErrorCode, what string, roundIDs []int64, err error) *Error {
	return &Error{
		Code:    code,
		Message: what + " query failed",
		Details: map[string]string{"round_ids": cacheKey(roundIDs)},
		Err:     err,
	}
}
