package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service and the gate depend on.
type Recorder interface {
	LoginAttempt(outcome string)
	Registration(outcome string)
	GateDecision(decision string)
	RateLimited(route string)
}

type Collector struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	gate          *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carrental_auth_login_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carrental_auth_register_total",
			Help: "Registrations by outcome.",
		}, []string{"outcome"}),
		gate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carrental_gate_decisions_total",
			Help: "Access gate decisions.",
		}, []string{"decision"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carrental_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}

	reg.MustRegister(c.logins, c.registrations, c.gate, c.rateLimited)
	return c
}

func (c *Collector) LoginAttempt(outcome string) { c.logins.WithLabelValues(outcome).Inc() }
func (c *Collector) Registration(outcome string) { c.registrations.WithLabelValues(outcome).Inc() }
func (c *Collector) GateDecision(decision string) { c.gate.WithLabelValues(decision).Inc() }
func (c *Collector) RateLimited(route string)     { c.rateLimited.WithLabelValues(route).Inc() }

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type Nop struct{}

func (Nop) LoginAttempt(string) {}
func (Nop) Registration(string) {}
func (Nop) GateDecision(string) {}
func (Nop) RateLimited(string)  {}
