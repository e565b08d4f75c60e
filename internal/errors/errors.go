package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConnectionError indicates the connection could not be established
	ConnectionError ErrorCode = "CONNECTION_ERROR"
	// NotConnected indicates a request was issued without an open connection
	NotConnected ErrorCode = "NOT_CONNECTED"
	// ConnectionLost indicates the connection dropped while a request was in flight
	ConnectionLost ErrorCode = "CONNECTION_LOST"
	// Timeout indicates no response arrived within the request timeout
	Timeout ErrorCode = "TIMEOUT"
	// AssetNotFound indicates the file is outside the server's tracked set
	AssetNotFound ErrorCode = "ASSET_NOT_FOUND"
	// AnalysisError indicates the server rejected the analysis request
	AnalysisError ErrorCode = "ANALYSIS_ERROR"
	// ProtocolError indicates a malformed frame or payload
	ProtocolError ErrorCode = "PROTOCOL_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AssetNotFoundMarker is the substring the server puts in messages for untracked files.
const AssetNotFoundMarker = "asset not found"

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// ChangeSetting suggests editing a configuration key
	ChangeSetting FixActionType = "change-setting"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Setting     string        `json:"setting,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a jxscout error with a stable code, a user-facing message and suggestions.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates an Error carrying the default suggested fixes for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates an Error without a cause from a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the user-facing message of err: the Message of a coded error,
// otherwise err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.cause != nil && e.Code == ConnectionError {
			return fmt.Sprintf("%s: %v", e.Message, e.cause)
		}
		return e.Message
	}
	return err.Error()
}

// Classify maps a server-reported error message to AssetNotFound or AnalysisError.
func Classify(message string) ErrorCode {
	if strings.Contains(strings.ToLower(message), AssetNotFoundMarker) {
		return AssetNotFound
	}
	return AnalysisError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConnectionError: {
		{
			Type:        RunCommand,
			Command:     "jxscout",
			Description: "Start the jxscout server",
		},
		{
			Type:        ChangeSetting,
			Setting:     "server.host / server.port",
			Description: "Point the client at the running server",
		},
	},
	NotConnected: {
		{
			Type:        RunCommand,
			Command:     "jxscout config show",
			Description: "Check the configured endpoint",
		},
	},
	ConnectionLost: {
		{
			Type:        RunCommand,
			Command:     "jxscout analyze <file>",
			Description: "Retry once the connection is re-established",
		},
	},
	Timeout: {
		{
			Type:        ChangeSetting,
			Setting:     "link.requestTimeoutMs",
			Description: "Increase the request timeout for large files",
		},
	},
	AssetNotFound: {
		{
			Type:        OpenDocs,
			URL:         "https://github.com/francisconeves97/jxscout",
			Description: "Load the file through the jxscout proxy so it is tracked",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
