// ABOUTME: Prometheus metrics collection and exposition for idgate
// ABOUTME: Counts processed updates, access denials, and handler errors

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the collection interface consumed by the gate and the bot.
type Recorder interface {
	RecordUpdate(command string)
	RecordDenial()
	RecordHandlerError(command string)
}

// Collector implements Recorder on a Prometheus registry.
type Collector struct {
	updates       *prometheus.CounterVec
	denials       prometheus.Counter
	handlerErrors *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idgate_updates_total",
			Help: "Processed updates by command",
		}, []string{"command"}),
		denials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "idgate_denials_total",
			Help: "Updates dropped by the access gate",
		}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idgate_handler_errors_total",
			Help: "Handler failures by command",
		}, []string{"command"}),
	}

	reg.MustRegister(c.updates, c.denials, c.handlerErrors)
	return c
}

// RecordUpdate counts one processed update for the given command.
func (c *Collector) RecordUpdate(command string) {
	c.updates.WithLabelValues(command).Inc()
}

// RecordDenial counts one silently dropped update.
func (c *Collector) RecordDenial() {
	c.denials.Inc()
}

// RecordHandlerError counts one failed handler invocation.
func (c *Collector) RecordHandlerError(command string) {
	c.handlerErrors.WithLabelValues(command).Inc()
}

// Handler returns the Prometheus scrape handler for the gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
