// Package telemetry decodes and routes inbound telemetry frames from the
// sensor backend stream.
package telemetry

import (
	"encoding/json"
	"fmt"
)

// Recognized inbound frame types. Unrecognized types are ignored so newer
// backends can add frame kinds without breaking older consumers.
const (
	TypeSpectrum = "spectrum"
	TypeProgress = "progress"
	TypeError    = "error"
	TypeStatus   = "status"
)

// Outbound frame types produced by a typical caller. The stream core does
// not enforce these; they document the wire vocabulary.
const (
	TypeConfig = "config"
	TypePause  = "pause"
	TypeResume = "resume"
)

// Frame is a decoded inbound message envelope. The payload stays raw until
// the dispatcher routes the frame by type.
type Frame struct {
	Type    string
	Payload json.RawMessage
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeFrame parses a raw JSON text frame into a typed envelope.
func DecodeFrame(data []byte) (*Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding frame envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("frame has no type field")
	}
	return &Frame{Type: env.Type, Payload: data}, nil
}

// ConfigRequest is the outbound configuration frame for the spectrum stream.
type ConfigRequest struct {
	Type       string  `json:"type"`
	DeviceID   *int64  `json:"device_id,omitempty"`
	CenterFreq float64 `json:"center_freq,omitempty"`
	Bandwidth  float64 `json:"bandwidth,omitempty"`
	Interval   float64 `json:"interval,omitempty"`
}

// NewConfigRequest builds a config frame with the correct type tag.
func NewConfigRequest() ConfigRequest {
	return ConfigRequest{Type: TypeConfig}
}
