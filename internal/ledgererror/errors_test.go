package ledgererror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name:     "with field",
			err:      &ValidationError{Field: "counterparty", Reason: "name is required"},
			expected: "validation failed for counterparty: name is required",
		},
		{
			name:     "without field",
			err:      &ValidationError{Reason: "at least one line item is required"},
			expected: "validation failed: at least one line item is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestValidationError_UnwrapsOverpayment(t *testing.T) {
	err := &ValidationError{Field: "paid", Reason: "too much", Err: ErrOverpayment}
	assert.True(t, errors.Is(err, ErrOverpayment))
}

func TestAPIError(t *testing.T) {
	err := &APIError{Op: "ListDebts", Status: http.StatusBadGateway}
	assert.Equal(t, "ListDebts: backend returned 502: Bad Gateway", err.Error())

	withMsg := &APIError{Op: "DeleteDebt", Status: http.StatusBadRequest, Message: "id required"}
	assert.Equal(t, "DeleteDebt: backend returned 400: id required", withMsg.Error())
}

func TestAPIError_Sentinels(t *testing.T) {
	assert.True(t, errors.Is(&APIError{Status: http.StatusUnauthorized}, ErrUnauthorized))
	assert.True(t, errors.Is(&APIError{Status: http.StatusForbidden}, ErrUnauthorized))
	assert.True(t, errors.Is(&APIError{Status: http.StatusNotFound}, ErrNotFound))
	assert.False(t, errors.Is(&APIError{Status: http.StatusInternalServerError}, ErrNotFound))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", &TransportError{Op: "ListDebts", Err: errors.New("connection reset")}, true},
		{"wrapped transport", fmt.Errorf("list: %w", &TransportError{Err: context.DeadlineExceeded}), true},
		{"server error", &APIError{Status: http.StatusServiceUnavailable}, true},
		{"rate limited", &APIError{Status: http.StatusTooManyRequests}, true},
		{"bad request", &APIError{Status: http.StatusBadRequest}, false},
		{"unauthorized", &APIError{Status: http.StatusUnauthorized}, false},
		{"validation", &ValidationError{Reason: "x"}, false},
		{"plain", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
