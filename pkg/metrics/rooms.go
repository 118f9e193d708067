package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RoomMetrics records ledger and pulse activity.
type RoomMetrics struct {
	claimsAccepted *prometheus.CounterVec
	claimsRejected *prometheus.CounterVec
	pulse          *prometheus.CounterVec
	settlement     prometheus.Histogram
}

// NewRoomMetrics registers the room metrics on the provided registerer.
func NewRoomMetrics(reg prometheus.Registerer) *RoomMetrics {
	if reg == nil {
		return &RoomMetrics{}
	}
	claimsAccepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claims_accepted_total",
		Help: "Committed claim mutations.",
	}, []string{"kind"})
	claimsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claims_rejected_total",
		Help: "Claim mutations rejected before commit.",
	}, []string{"reason"})
	pulse := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_responses_total",
		Help: "Pulse responses by outcome.",
	}, []string{"outcome"})
	settlement := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_compute_seconds",
		Help:    "Duration of settlement projections.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(claimsAccepted, claimsRejected, pulse, settlement)
	return &RoomMetrics{
		claimsAccepted: claimsAccepted,
		claimsRejected: claimsRejected,
		pulse:          pulse,
		settlement:     settlement,
	}
}

// IncClaimAccepted counts a committed claim mutation; kind is one of
// "upsert" or "remove".
func (m *RoomMetrics) IncClaimAccepted(kind string) {
	if m == nil || m.claimsAccepted == nil {
		return
	}
	m.claimsAccepted.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncClaimRejected counts a rejected claim mutation; reason is one of
// "overclaimed", "not_found", "locked".
func (m *RoomMetrics) IncClaimRejected(reason string) {
	if m == nil || m.claimsRejected == nil {
		return
	}
	m.claimsRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncPulse counts a pulse response; outcome is "changed" or "unchanged".
func (m *RoomMetrics) IncPulse(outcome string) {
	if m == nil || m.pulse == nil {
		return
	}
	m.pulse.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSettlement records the duration of one settlement projection.
func (m *RoomMetrics) ObserveSettlement(duration time.Duration) {
	if m == nil || m.settlement == nil {
		return
	}
	m.settlement.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
