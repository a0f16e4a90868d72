package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order state transitions by target status and trigger",
		},
		[]string{"status", "trigger"},
	)

	reservationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_rejections_total",
			Help: "Rejected inventory reservations by reason",
		},
		[]string{"reason"},
	)

	gatewayCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_callbacks_total",
			Help: "Inbound payment gateway callbacks by outcome code",
		},
		[]string{"channel", "rsp_code"},
	)

	ticketCheckins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_checkins_total",
			Help: "Gate check-in attempts by result",
		},
		[]string{"result"},
	)

	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of background expiry sweeps",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"sweep"},
	)

	sweepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_row_failures_total",
			Help: "Per-row failures inside background sweeps",
		},
		[]string{"sweep"},
	)
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// TrackOrderTransition records an order reaching status via trigger
// (api, gateway, sweep).
func (m *Monitor) TrackOrderTransition(status, trigger string) {
	orderTransitions.WithLabelValues(status, trigger).Inc()
}

func (m *Monitor) TrackReservationRejected(reason string) {
	reservationRejections.WithLabelValues(reason).Inc()
}

func (m *Monitor) TrackGatewayCallback(channel, rspCode string) {
	gatewayCallbacks.WithLabelValues(channel, rspCode).Inc()
}

func (m *Monitor) TrackCheckin(result string) {
	ticketCheckins.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackSweep(sweep string, d time.Duration) {
	sweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

func (m *Monitor) TrackSweepFailure(sweep string) {
	sweepFailures.WithLabelValues(sweep).Inc()
}
