package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType is the "type" field of a frame.
type MessageType string

const (
	// GetAnalysisRequest asks for the analysis of one file
	GetAnalysisRequest MessageType = "getAnalysisRequest"
	// GetAnalysisResponse answers a GetAnalysisRequest with the same id
	GetAnalysisResponse MessageType = "getAnalysisResponse"
	// Error is an uncorrelated fault pushed by the server
	Error MessageType = "error"
)

// WireError is the error object carried by error-tagged frames.
type WireError struct {
	Message string `json:"message"`
}

// Message is the envelope of every frame in both directions.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// GetAnalysisPayload is the payload of a GetAnalysisRequest.
type GetAnalysisPayload struct {
	FilePath string `json:"filePath"`
}

// NewGetAnalysisRequest builds the request frame for filePath.
func NewGetAnalysisRequest(id, filePath string) (*Message, error) {
	payload, err := json.Marshal(GetAnalysisPayload{FilePath: filePath})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Message{
		Type:    GetAnalysisRequest,
		ID:      id,
		Payload: payload,
	}, nil
}

// Encode marshals a frame for the wire.
func Encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// Decode parses one inbound frame. Only the envelope is decoded; payloads are decoded by
// the consumer that recognises the type.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	return &msg, nil
}

// DecodeAnalysisResult decodes the payload of a successful GetAnalysisResponse.
func DecodeAnalysisResult(payload json.RawMessage) (*AnalysisResult, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("response has no payload")
	}
	var result AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &result, nil
}

// ErrorMessage returns the error text of msg, or "" when it carries no error.
func (m *Message) ErrorMessage() string {
	if m == nil || m.Error == nil {
		return ""
	}
	return m.Error.Message
}

// HasError reports whether msg is error-tagged.
func (m *Message) HasError() bool {
	return m != nil && m.Error != nil
}
