package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// Metrics bundles the domain counters exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	VerificationOutcomes *prometheus.CounterVec
	VerifierFailures     prometheus.Counter
	DonationsConfirmed   prometheus.Counter
	ProjectsCreated      prometheus.Counter
}

// New builds a registry with all application collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		VerificationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_outcomes_total",
			Help: "Automated verification decisions by outcome (approved, pending).",
		}, []string{"outcome"}),
		VerifierFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ai_verifier_failures_total",
			Help: "Verifier calls that failed and were downgraded to no-op.",
		}),
		DonationsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "donations_confirmed_total",
			Help: "Donations that reached the success state.",
		}),
		ProjectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "projects_created_total",
			Help: "Projects persisted through the creation endpoint.",
		}),
	}

	m.registry.MustRegister(
		m.VerificationOutcomes,
		m.VerifierFailures,
		m.DonationsConfirmed,
		m.ProjectsCreated,
	)

	return m
}

// Handler returns the gin handler serving the registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
