package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	err := New(ConnectionError, "failed to connect", cause)

	if err.Code != ConnectionError {
		t.Errorf("Code = %v, want %v", err.Code, ConnectionError)
	}
	if err.Message != "failed to connect" {
		t.Errorf("Message = %q, want %q", err.Message, "failed to connect")
	}
	if len(err.SuggestedFixes) != 2 {
		t.Errorf("len(SuggestedFixes) = %d, want 2", len(err.SuggestedFixes))
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      ConnectionError,
			message:   "failed to connect",
			cause:     errors.New("connection refused"),
			wantParts: []string{"CONNECTION_ERROR", "failed to connect", "connection refused"},
		},
		{
			name:      "without cause",
			code:      NotConnected,
			message:   "WebSocket is not connected",
			cause:     nil,
			wantParts: []string{"NOT_CONNECTED", "WebSocket is not connected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	if New(Timeout, "request timed out", nil).Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestError_WithDetails(t *testing.T) {
	err := Newf(ProtocolError, "unexpected frame type %q", "bogus")
	result := err.WithDetails(map[string]string{"frame": "{}"})

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
	if err.Message != `unexpected frame type "bogus"` {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"coded", New(Timeout, "timed out", nil), Timeout},
		{"wrapped", fmt.Errorf("get analysis: %w", New(ConnectionLost, "lost", nil)), ConnectionLost},
		{"plain", errors.New("boom"), InternalError},
		{"nil", nil, InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	if Is(nil, InternalError) {
		t.Error("Is(nil) should be false")
	}
	if !Is(fmt.Errorf("x: %w", New(AssetNotFound, "asset not found", nil)), AssetNotFound) {
		t.Error("Is should see through wrapping")
	}
	if Is(New(AnalysisError, "bad", nil), AssetNotFound) {
		t.Error("Is should compare codes")
	}
}

func TestMessageOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"coded", New(AnalysisError, "parser crashed", nil), "parser crashed"},
		{"connection with cause", New(ConnectionError, "failed to connect", errors.New("refused")), "failed to connect: refused"},
		{"wrapped", fmt.Errorf("ctx: %w", New(Timeout, "request timeout", nil)), "request timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageOf(tt.err); got != tt.want {
				t.Errorf("MessageOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    ErrorCode
	}{
		{"asset not found", AssetNotFound},
		{"failed to load: asset not found for /x.js", AssetNotFound},
		{"Asset Not Found", AssetNotFound},
		{"parse error at line 3", AnalysisError},
		{"", AnalysisError},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := Classify(tt.message); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ConnectionError,
		NotConnected,
		ConnectionLost,
		Timeout,
		AssetNotFound,
		AnalysisError,
		ProtocolError,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
		}
	}

	if GetSuggestedFixes(ProtocolError) != nil {
		t.Error("ProtocolError should have no predefined fixes")
	}
}
