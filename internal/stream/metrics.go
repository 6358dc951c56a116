package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the stream instrumentation, labelled by channel path.
type Metrics struct {
	FramesTotal  *prometheus.CounterVec
	DecodeErrors *prometheus.CounterVec
	Reconnects   *prometheus.CounterVec
}

// NewMetrics registers the stream counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigstream_frames_total",
			Help: "Inbound frames received per channel path.",
		}, []string{"path"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigstream_frame_decode_errors_total",
			Help: "Inbound frames dropped because they could not be decoded.",
		}, []string{"path"}),
		Reconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigstream_reconnect_attempts_total",
			Help: "Reconnection attempts scheduled per channel path.",
		}, []string{"path"}),
	}
}
