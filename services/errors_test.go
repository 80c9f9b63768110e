package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeExternal, "upstream failed", baseErr)

	assert.Equal(t, ErrorTypeExternal, domainErr.Type)
	assert.Equal(t, "upstream failed", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeQuota,
				Message: "quota gone",
				Err:     errors.New("insufficient_quota"),
			},
			wantMsg: "quota: quota gone (insufficient_quota)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "message is required",
			},
			wantMsg: "validation: message is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NewDomainError(ErrorTypeQuota, "other text", nil), ErrQuotaExhausted, true},
		{"different error type", ErrMessageTooLong, ErrMessageRequired, false},
		{"wrapped domain error", fmt.Errorf("call: %w", ErrUpstream), ErrUpstream, true},
		{"not a domain error", ErrUpstream, errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeRateLimit, "rate limited", nil)

	err.WithDetail("attempts", 4).WithDetail("provider", "openai")

	assert.Equal(t, 4, err.Details["attempts"])
	assert.Equal(t, "openai", err.Details["provider"])
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"message required is validation", ErrMessageRequired, IsValidationError, true},
		{"too long is not validation", ErrMessageTooLong, IsValidationError, false},
		{"too long is payload", ErrMessageTooLong, IsPayloadTooLargeError, true},
		{"rate limit", ErrRateLimitExhausted, IsRateLimitError, true},
		{"wrapped rate limit", fmt.Errorf("x: %w", ErrRateLimitExhausted), IsRateLimitError, true},
		{"quota", ErrQuotaExhausted, IsQuotaError, true},
		{"quota is not rate limit", ErrQuotaExhausted, IsRateLimitError, false},
		{"external", ErrUpstream, IsExternalError, true},
		{"internal", ErrInternal, IsInternalError, true},
		{"regular error", errors.New("regular"), IsExternalError, false},
		{"nil error", nil, IsInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "message too long", GetErrorMessage(ErrMessageTooLong))
	assert.Equal(t, "Upstream API error. Please try again.", GetErrorMessage(fmt.Errorf("wrapped: %w", ErrUpstream)))
	assert.Empty(t, GetErrorMessage(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeExternal, "upstream", nil)
	err.WithDetail("provider", "gemini")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "gemini", details["provider"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapError(t *testing.T) {
	baseErr := errors.New("Error code: 429")
	wrapped := WrapError(ErrRateLimitExhausted, baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeRateLimit, domainErr.Type)
	assert.Equal(t, ErrRateLimitExhausted.Message, domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))

	// the sentinel keeps no cause
	assert.Nil(t, ErrRateLimitExhausted.Err)
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("flush failed")
	wrapped := WrapInternal("write response", baseErr)

	assert.True(t, IsInternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapExternal(t *testing.T) {
	baseErr := errors.New("openai api error")
	wrapped := WrapExternal("provider request failed", baseErr)

	assert.True(t, IsExternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestAllErrorVariablesAreDefined(t *testing.T) {
	errorVars := []*DomainError{
		ErrMessageRequired,
		ErrMessageTooLong,
		ErrRateLimitExhausted,
		ErrQuotaExhausted,
		ErrUpstream,
		ErrInternal,
	}

	for _, err := range errorVars {
		assert.NotNil(t, err, "error variable should not be nil")
		assert.NotEmpty(t, err.Message, "error should have a message")
	}
}
