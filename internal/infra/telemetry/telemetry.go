package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
)

// Provider owns the service metric collectors.
type Provider struct {
	startedAt        time.Time
	submissions      prometheus.Counter
	decisions        *prometheus.CounterVec
	decisionDuration prometheus.Histogram
}

// Attach registers collectors with the provided registerer (the default one
// when nil) and returns a provider handle.
func Attach(reg prometheus.Registerer) (*Provider, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	provider := &Provider{
		startedAt: time.Now().UTC(),
		submissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "submissions_total",
			Help:      "Total number of submissions received.",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "decisions_total",
			Help:      "Total number of terminal decisions partitioned by outcome.",
		}, []string{"outcome"}),
		decisionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "decision_duration_seconds",
			Help:      "Latency of the admit/reject decision including store round trips.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	return provider, nil
}

// IncSubmission counts one received submission.
func (p *Provider) IncSubmission() {
	if p == nil {
		return
	}
	p.submissions.Inc()
}

// IncDecision counts one terminal decision by outcome.
func (p *Provider) IncDecision(outcome domain.Outcome) {
	if p == nil {
		return
	}
	p.decisions.WithLabelValues(string(outcome)).Inc()
}

// ObserveDecisionLatency records the time a decision took.
func (p *Provider) ObserveDecisionLatency(d time.Duration) {
	if p == nil {
		return
	}
	p.decisionDuration.Observe(d.Seconds())
}

// Uptime reports how long this instance has been serving.
func (p *Provider) Uptime() time.Duration {
	if p == nil {
		return 0
	}
	return time.Since(p.startedAt)
}

// FormatUptime renders the uptime as d:hh:mm:ss for the admin status view.
func (p *Provider) FormatUptime() string {
	uptime := p.Uptime()

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	return fmt.Sprintf("%d:%02d:%02d:%02d", days, hours, minutes, seconds)
}
