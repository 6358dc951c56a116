package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/radiowatch/sigstream/internal/spectrum"
)

// SweepSink receives decoded spectrum sweeps.
type SweepSink func(*spectrum.Sweep)

// ProgressSink receives survey progress updates.
type ProgressSink func(*spectrum.SurveyProgress)

// ErrorSink receives backend-reported error messages. The message is data,
// not a Go error: the dispatcher never propagates it as one.
type ErrorSink func(message string)

// WithLogger sets the logger for the dispatcher.
func WithLogger(logger *slog.Logger) func(*Dispatcher) {
	return func(d *Dispatcher) {
		d.logger = logger.With(slog.String("component", "dispatcher"))
	}
}

// WithSweepSink routes spectrum frames to fn.
func WithSweepSink(fn SweepSink) func(*Dispatcher) {
	return func(d *Dispatcher) { d.onSweep = fn }
}

// WithProgressSink routes progress frames to fn.
func WithProgressSink(fn ProgressSink) func(*Dispatcher) {
	return func(d *Dispatcher) { d.onProgress = fn }
}

// WithErrorSink routes backend error frames to fn.
func WithErrorSink(fn ErrorSink) func(*Dispatcher) {
	return func(d *Dispatcher) { d.onError = fn }
}

// Dispatcher routes decoded frames by type to the appropriate analysis
// entry points. A malformed payload is logged and swallowed; one bad frame
// never stops processing of the frames behind it.
type Dispatcher struct {
	logger     *slog.Logger
	onSweep    SweepSink
	onProgress ProgressSink
	onError    ErrorSink
}

// NewDispatcher creates a dispatcher with a discard logger and no sinks.
func NewDispatcher(options ...func(*Dispatcher)) *Dispatcher {
	d := Dispatcher{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&d)
	}
	return &d
}

// Dispatch routes a single frame. Unknown types are ignored.
func (d *Dispatcher) Dispatch(frame *Frame) {
	switch frame.Type {
	case TypeSpectrum:
		d.dispatchSweep(frame.Payload)

	case TypeProgress:
		d.dispatchProgress(frame.Payload)

	case TypeError:
		d.dispatchError(frame.Payload)

	case TypeStatus:
		var msg struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(frame.Payload, &msg); err == nil {
			d.logger.Debug("stream status", slog.String("status", msg.Status))
		}

	default:
		d.logger.Debug("ignoring unknown frame type", slog.String("type", frame.Type))
	}
}

// DispatchRaw decodes a raw JSON frame and routes it. Decode failures are
// logged and dropped.
func (d *Dispatcher) DispatchRaw(data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		d.logger.Warn("dropping undecodable frame", slog.String("error", err.Error()))
		return
	}
	d.Dispatch(frame)
}

func (d *Dispatcher) dispatchSweep(payload json.RawMessage) {
	if d.onSweep == nil {
		return
	}

	var sweep spectrum.Sweep
	if err := json.Unmarshal(payload, &sweep); err != nil {
		d.logger.Warn("malformed spectrum frame", slog.String("error", err.Error()))
		return
	}
	if sweep.Len() < 2 {
		d.logger.Warn("spectrum frame too short",
			slog.Int("frequencies", len(sweep.Frequencies)),
			slog.Int("powers", len(sweep.Powers)))
		return
	}

	d.onSweep(&sweep)
}

func (d *Dispatcher) dispatchProgress(payload json.RawMessage) {
	if d.onProgress == nil {
		return
	}

	var progress spectrum.SurveyProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		d.logger.Warn("malformed progress frame", slog.String("error", err.Error()))
		return
	}

	d.onProgress(&progress)
}

func (d *Dispatcher) dispatchError(payload json.RawMessage) {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Message == "" {
		d.logger.Warn("malformed error frame")
		return
	}

	d.logger.Error("backend reported error", slog.String("message", msg.Message))
	if d.onError != nil {
		d.onError(msg.Message)
	}
}
