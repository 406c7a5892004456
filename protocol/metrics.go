package protocol

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors an Engine updates. Two sessions
// in one process each own their own Metrics (backed by their own
// prometheus.Registerer) rather than sharing package-level collectors, so
// registration never collides.
type Metrics struct {
	FramesSent     *prometheus.CounterVec
	Retransmits    prometheus.Counter
	NaksSent       prometheus.Counter
	ChecksumErrors prometheus.Counter
	Buffered       prometheus.Gauge
}

// NewMetrics builds a Metrics set and registers it with reg. A nil
// registerer yields working-but-unregistered collectors, so callers that
// don't care about metrics don't need a no-op Registerer implementation.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serialrdt",
			Name:      "frames_sent_total",
			Help:      "Frames transmitted, by kind (data, ack, nak).",
		}, []string{"kind"}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serialrdt",
			Name:      "retransmits_total",
			Help:      "Data frames retransmitted due to timeout or NAK.",
		}),
		NaksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serialrdt",
			Name:      "naks_sent_total",
			Help:      "NAK frames emitted by the receiver.",
		}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serialrdt",
			Name:      "checksum_errors_total",
			Help:      "DATA frames dropped due to a checksum mismatch.",
		}),
		Buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "serialrdt",
			Name:      "sender_buffered",
			Help:      "Current count of unacknowledged outstanding frames (nbuffered).",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.FramesSent, m.Retransmits, m.NaksSent, m.ChecksumErrors, m.Buffered)
	}
	return m
}
