package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TokensIssued prometheus.Counter
	Redemptions  *prometheus.CounterVec
	Inconsistent prometheus.Counter
}

// New creates and registers all check-in metrics on the given registerer.
// Taking the registerer as a parameter keeps tests free of global-registry
// collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_checkin_tokens_issued_total",
			Help: "Total number of check-in tokens issued",
		}),
		Redemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_checkin_redemptions_total",
			Help: "Total number of token redemption attempts by outcome",
		}, []string{"outcome"}),
		Inconsistent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_checkin_inconsistent_total",
			Help: "Redemptions where the token was consumed but the store failed before an attendance record was written; requires manual reconciliation",
		}),
	}
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}

func (m *Metrics) IncrementRedemptions(outcome string) {
	m.Redemptions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementInconsistent() {
	m.Inconsistent.Inc()
}
