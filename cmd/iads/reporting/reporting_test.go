package reporting

import (
	"testing"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

func TestEngagementLogCounts(t *testing.T) {
	world := platform.NewWorld()
	if err := world.Add(platform.New("p", "blue", geom.Point{}, platform.StatusActive)); err != nil {
		t.Fatal(err)
	}
	l := NewEngagementLog(world)
	l.Narrate = false

	l.Emit(sim.Event{Time: 1, Type: sim.EventLaunch})
	l.Emit(sim.Event{Time: 2, Type: sim.EventLaunch})
	l.Emit(sim.Event{Time: 3, Type: sim.EventKill})

	if got := l.Count(sim.EventLaunch); got != 2 {
		t.Errorf("launch count = %d, want 2", got)
	}
	if got := l.Count(sim.EventKill); got != 1 {
		t.Errorf("kill count = %d, want 1", got)
	}
	if got := l.Count(sim.EventDetection); got != 0 {
		t.Errorf("detection count = %d, want 0", got)
	}

	events := l.Events()
	if len(events) != 3 || events[0].Time != 1 || events[2].Type != sim.EventKill {
		t.Errorf("event record = %+v", events)
	}

	// The returned slice is a copy.
	events[0].Time = 99
	if l.Events()[0].Time != 1 {
		t.Error("Events exposed internal state")
	}
}

func TestSummaryToleratesNilWorld(t *testing.T) {
	l := NewEngagementLog(nil)
	l.Narrate = false
	l.Emit(sim.Event{Type: sim.EventDetection})
	l.Summary(100, 7) // must not panic
}
