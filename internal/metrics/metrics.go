// Package metrics holds the Prometheus collectors of the clock daemon.
//
// All methods are safe on a nil *Recorder, so components can run
// without metrics wired.
package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nixieclock"

// Recorder records device metrics into a registry.
type Recorder struct {
	reg            *prom.Registry
	resyncs        *prom.CounterVec
	transitions    prom.Counter
	portalRequests prom.Counter
	offset         prom.Gauge
	synced         prom.Gauge
}

// New creates a Recorder registered into reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r := &Recorder{
		reg: reg,
		resyncs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Time resync cycles by result",
		}, []string{"result"}),
		transitions: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Supervisor transitions from configuration to clock mode",
		}),
		portalRequests: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "portal_requests_total",
			Help:      "Requests served by the configuration portal",
		}),
		offset: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "offset_seconds",
			Help:      "UTC offset currently applied to the displayed time",
		}),
		synced: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "synced",
			Help:      "1 once an offset has been established",
		}),
	}
	reg.MustRegister(r.resyncs, r.transitions, r.portalRequests, r.offset, r.synced)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveResync counts a resync and publishes the applied offset.
func (r *Recorder) ObserveResync(result string, offset int32, synced bool) {
	if r == nil {
		return
	}
	r.resyncs.WithLabelValues(result).Inc()
	r.offset.Set(float64(offset))
	if synced {
		r.synced.Set(1)
	}
}

// IncTransition counts a mode transition.
func (r *Recorder) IncTransition() {
	if r == nil {
		return
	}
	r.transitions.Inc()
}

// IncPortalRequest counts a portal request.
func (r *Recorder) IncPortalRequest() {
	if r == nil {
		return
	}
	r.portalRequests.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
