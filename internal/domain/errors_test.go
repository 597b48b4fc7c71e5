package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Invalid request",
			code:      ErrCodeInvalidRequest,
			message:   "symptoms must be strings",
			details:   "entry 2 is a number",
			requestID: "req-123",
		},
		{
			name:      "Invalid frame graph",
			code:      ErrCodeInvalidFrameGraph,
			message:   "reload rejected",
			details:   "duplicate frame id \"Flu\"",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("symptoms[0]", "must not be empty", "   ")

	if err.Field != "symptoms[0]" {
		t.Errorf("Expected field symptoms[0], got %s", err.Field)
	}

	expectedError := "validation error for field 'symptoms[0]': must not be empty"
	if err.Error() != expectedError {
		t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
	}

	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("validation errors should match ErrInvalidRequest")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"api error", NewAPIError(ErrCodeRateLimit, "slow down", "", ""), ErrCodeRateLimit},
		{"wrapped invalid request", fmt.Errorf("parse: %w", ErrInvalidRequest), ErrCodeInvalidRequest},
		{"validation error", NewValidationError("symptoms", "too many", 500), ErrCodeInvalidRequest},
		{"invalid frame graph", fmt.Errorf("load: %w", ErrInvalidFrameGraph), ErrCodeInvalidFrameGraph},
		{"not found", fmt.Errorf("record: %w", ErrNotFound), ErrCodeNotFound},
		{"unavailable", fmt.Errorf("history: %w", ErrUnavailable), ErrCodeUnavailable},
		{"anything else", errors.New("boom"), ErrCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode() = %s, want %s", got, tt.want)
			}
		})
	}
}
