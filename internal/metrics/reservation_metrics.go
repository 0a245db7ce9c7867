package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReservationMetrics counts lifecycle transitions and rejected requests.
// A nil *ReservationMetrics is valid and records nothing.
type ReservationMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	m := &ReservationMetrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_transitions_total",
				Help: "Reservation status transitions by source and target state",
			},
			[]string{"from", "to"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_rejections_total",
				Help: "Reservation and review operations refused by a business rule",
			},
			[]string{"code"},
		),
	}
	reg.MustRegister(m.transitions, m.rejections)
	return m
}

// Transition records from -> to.  Creation is recorded with from "".
func (m *ReservationMetrics) Transition(from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "NEW"
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// Rejection records a refused operation by error code.
func (m *ReservationMetrics) Rejection(code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(code).Inc()
}
