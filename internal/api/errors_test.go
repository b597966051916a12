package api

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"nil", nil, ErrTypeUnknown, false},
		{"timeout", timeoutErr{}, ErrTypeTimeout, true},
		{
			"dns failure",
			&net.DNSError{Err: "no such host", Name: "bitaxe.local"},
			ErrTypeDNS, false,
		},
		{"generic", errors.New("boom"), ErrTypeNetwork, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.5")
			if tt.err == nil {
				if got != nil {
					t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
				}
				return
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if got.DeviceIP != "10.0.0.5" {
				t.Errorf("DeviceIP = %q", got.DeviceIP)
			}
		})
	}
}

func TestDeviceErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewNetworkError("probe failed", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is() did not find wrapped error")
	}

	wrapped := fmt.Errorf("scanning 10.0.0.5: %w", err)
	var devErr *DeviceError
	if !errors.As(wrapped, &devErr) {
		t.Error("errors.As() did not find DeviceError in chain")
	}
}

func TestHTTPErrorRetryable(t *testing.T) {
	if !NewHTTPError(500, "ise").Retryable {
		t.Error("5xx should be retryable")
	}
	if NewHTTPError(404, "nf").Retryable {
		t.Error("4xx should not be retryable")
	}
}

func TestIsPredicates(t *testing.T) {
	if !IsNetworkError(ClassifyNetworkError(timeoutErr{}, "")) {
		t.Error("timeout should count as network error")
	}
	if !IsParseError(NewParseError("bad json", nil)) {
		t.Error("IsParseError false for parse error")
	}
	if !IsValidationError(NewValidationError("bad threshold")) {
		t.Error("IsValidationError false for validation error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	msg := GetShortErrorMessage(NewHTTPError(503, "unavailable"))
	if !strings.Contains(msg, "503") {
		t.Errorf("short message = %q, want status code included", msg)
	}

	plain := errors.New("something else")
	if GetShortErrorMessage(plain) != "something else" {
		t.Errorf("short message for plain error = %q", GetShortErrorMessage(plain))
	}
}
