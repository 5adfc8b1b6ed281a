// Package metrics bundles Prometheus instrumentation for simulation runs.
// The collector is an event sink: it counts detections, track drops, state
// transitions, launches and kills as they happen, and tracks the active
// platform population. Like every sink it is a pure observer.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// Collector bundles the run metrics and wires them into an HTTP handler.
type Collector struct {
	gatherer prometheus.Gatherer
	world    *platform.World

	Events           *prometheus.CounterVec
	TracksConfirmed  prometheus.Counter
	TracksDropped    prometheus.Counter
	StateTransitions prometheus.Counter
	Launches         prometheus.Counter
	Kills            prometheus.Counter
	ActivePlatforms  *prometheus.GaugeVec
}

// NewCollector registers run metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer, world *platform.World) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_events_total",
		Help: "Total simulation events, labeled by event type.",
	}, []string{"type"})
	events, err := registerCounterVec(reg, events, "sim_events_total")
	if err != nil {
		return nil, err
	}

	c := &Collector{gatherer: gatherer, world: world, Events: events}

	counters := []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&c.TracksConfirmed, "sim_tracks_confirmed_total", "Tracks confirmed by radars and receivers."},
		{&c.TracksDropped, "sim_tracks_dropped_total", "Tracks dropped by sensors."},
		{&c.StateTransitions, "sim_state_transitions_total", "Site and battalion lifecycle transitions."},
		{&c.Launches, "sim_launches_total", "Missiles launched."},
		{&c.Kills, "sim_kills_total", "Platforms killed by weapon intercepts."},
	}
	for _, spec := range counters {
		ctr, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: spec.name,
			Help: spec.help,
		}), spec.name)
		if err != nil {
			return nil, err
		}
		*spec.dst = ctr
	}

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_active_platforms",
		Help: "Active platforms in the world, labeled by side.",
	}, []string{"side"})
	active, err = registerGaugeVec(reg, active, "sim_active_platforms")
	if err != nil {
		return nil, err
	}
	c.ActivePlatforms = active

	return c, nil
}

// Emit implements sim.EventSink.
func (c *Collector) Emit(ev sim.Event) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(string(ev.Type)).Inc()
	switch ev.Type {
	case sim.EventDetection:
		c.TracksConfirmed.Inc()
	case sim.EventTrackDrop:
		c.TracksDropped.Inc()
	case sim.EventStateChange:
		c.StateTransitions.Inc()
	case sim.EventLaunch:
		c.Launches.Inc()
	case sim.EventKill:
		c.Kills.Inc()
	}
	c.UpdatePopulation()
}

// UpdatePopulation recounts active platforms per side.
func (c *Collector) UpdatePopulation() {
	if c.world == nil {
		return
	}
	counts := make(map[string]int)
	for _, p := range c.world.All() {
		if p.Alive() {
			counts[p.Side]++
		}
	}
	c.ActivePlatforms.Reset()
	for side, n := range counts {
		c.ActivePlatforms.WithLabelValues(side).Set(float64(n))
	}
}

// Handler returns the exposition handler for the collector's gatherer.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. The returned server can
// be shut down by the caller.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, ctr prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(ctr); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return ctr, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
