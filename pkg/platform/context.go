package platform

import (
	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/logger"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// Observer is a pure read-only projection of simulation state (SIMDIS
// export, GUI feeds). The core calls Update at every state transition and
// emission toggle but must never depend on what observers do.
type Observer interface {
	Initialize()
	Update(t float64)
}

// Context carries the per-run services every component needs: earth model,
// terrain occlusion, the single random stream, the world, event sinks and
// observers. It replaces the original design's mutable global earth/terrain
// state so independent runs can coexist.
type Context struct {
	Earth     geom.Earth
	Terrain   geom.Terrain
	Rand      *sim.Stream
	World     *World
	Events    sim.EventSink
	Observers []Observer
	Log       logger.Logger
}

// NewContext returns a context with flat-earth geometry, smooth terrain, a
// no-op event sink and the default logger. Callers override fields as the
// scenario dictates.
func NewContext(seed int64) *Context {
	earth := geom.FlatEarth{}
	return &Context{
		Earth:   earth,
		Terrain: geom.NewSmoothTerrain(earth),
		Rand:    sim.NewStream(seed),
		World:   NewWorld(),
		Events:  sim.NopSink{},
		Log:     logger.New(),
	}
}

// Emit forwards an event to the configured sink.
func (c *Context) Emit(ev sim.Event) {
	if c.Events != nil {
		c.Events.Emit(ev)
	}
}

// Touch notifies all observers of a state change at time t.
func (c *Context) Touch(t float64) {
	for _, o := range c.Observers {
		o.Update(t)
	}
}

// InitializeObservers runs every observer's Initialize hook once, before the
// first event.
func (c *Context) InitializeObservers() {
	for _, o := range c.Observers {
		o.Initialize()
	}
}
