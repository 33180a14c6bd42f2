package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	FlowsStarted   *prometheus.CounterVec
	FlowsFinished  *prometheus.CounterVec
	Reprompts      *prometheus.CounterVec
	InterestEvents *prometheus.CounterVec
	ReviewsAdded   prometheus.Counter
	ActiveSessions prometheus.GaugeFunc
}

// New registers every collector on a fresh registry. activeSessions may be nil.
func New(activeSessions func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		FlowsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matchbot_flows_started_total",
			Help: "Flows entered, by flow",
		}, []string{"flow"}),
		FlowsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matchbot_flows_finished_total",
			Help: "Flows that ended, by flow and result (committed, aborted, cancelled)",
		}, []string{"flow", "result"}),
		Reprompts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matchbot_reprompts_total",
			Help: "Invalid inputs answered with the same prompt, by state",
		}, []string{"state"}),
		InterestEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "matchbot_interest_total",
			Help: "Recorded likes, by outcome",
		}, []string{"outcome"}),
		ReviewsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "matchbot_reviews_added_total",
			Help: "Reviews appended to the ledger",
		}),
	}
	if activeSessions != nil {
		m.ActiveSessions = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "matchbot_active_sessions",
			Help: "Sessions currently in progress",
		}, activeSessions)
	}
	return m
}

func (m *Metrics) IncFlowStarted(flow string) {
	m.FlowsStarted.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncFlowFinished(flow, result string) {
	m.FlowsFinished.WithLabelValues(flow, result).Inc()
}

func (m *Metrics) IncReprompt(state string) {
	m.Reprompts.WithLabelValues(state).Inc()
}

func (m *Metrics) IncInterest(outcome string) {
	m.InterestEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReviewAdded() {
	m.ReviewsAdded.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

