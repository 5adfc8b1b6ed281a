// Package reporting narrates engagement events as they happen and produces
// the end-of-run summary for the IADS simulation.
package reporting

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fatih/color"

	"github.com/jpr86/CHECKMATE-sub000/pkg/logger"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// EngagementLog is an event sink that narrates the kill chain at info level
// and accumulates the statistics for the after-action summary.
type EngagementLog struct {
	mu     sync.Mutex
	world  *platform.World
	events []sim.Event
	counts map[sim.EventType]int

	// Narrate toggles per-event console output; the summary always prints.
	Narrate bool
}

// NewEngagementLog returns a log over the given world.
func NewEngagementLog(world *platform.World) *EngagementLog {
	return &EngagementLog{
		world:   world,
		counts:  make(map[sim.EventType]int),
		Narrate: true,
	}
}

// Emit implements sim.EventSink.
func (l *EngagementLog) Emit(ev sim.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.counts[ev.Type]++
	l.mu.Unlock()

	if !l.Narrate {
		return
	}
	switch ev.Type {
	case sim.EventLaunch:
		logger.Infof("%s t=%7.1f  %s launched at %s",
			logger.IconLaunch, ev.Time, color.YellowString(ev.SubjectName), color.RedString(ev.ObjectName))
	case sim.EventKill:
		logger.Infof("%s t=%7.1f  %s killed by %s",
			logger.IconCross, ev.Time, color.RedString(ev.ObjectName), color.YellowString(ev.SubjectName))
	case sim.EventDetection:
		logger.Debugf("%s t=%7.1f  %s tracking %s", logger.IconRadar, ev.Time, ev.SubjectName, ev.ObjectName)
	case sim.EventAssignment:
		logger.Debugf("%s t=%7.1f  %s: %s", logger.IconArrow, ev.Time, ev.SubjectName, ev.Message)
	case sim.EventStateChange:
		logger.Debugf("%s t=%7.1f  %s %s", logger.IconDot, ev.Time, ev.SubjectName, ev.Message)
	}
}

// Count returns how many events of a type were seen.
func (l *EngagementLog) Count(t sim.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[t]
}

// Events returns a copy of the event record in emission order.
func (l *EngagementLog) Events() []sim.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]sim.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Summary prints the after-action summary: event totals and the surviving
// strength of every side.
func (l *EngagementLog) Summary(endTime float64, seed int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	logger.LogSection("After Action Summary")
	logger.LogKeyValue("Seed", fmt.Sprintf("%d", seed))
	logger.LogKeyValue("Duration", fmt.Sprintf("%.1f s", endTime))

	table := logger.NewTable("EVENT", "COUNT")
	types := make([]string, 0, len(l.counts))
	for t := range l.counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		table.AddRow(t, fmt.Sprintf("%d", l.counts[sim.EventType(t)]))
	}
	table.Print()

	if l.world == nil {
		return
	}
	logger.LogSubSection("Force Status")
	strength := make(map[string][3]int) // active, inactive, dead
	for _, p := range l.world.All() {
		s := strength[p.Side]
		switch p.Status {
		case platform.StatusActive:
			s[0]++
		case platform.StatusInactive:
			s[1]++
		default:
			s[2]++
		}
		strength[p.Side] = s
	}
	sides := make([]string, 0, len(strength))
	for side := range strength {
		sides = append(sides, side)
	}
	sort.Strings(sides)
	forces := logger.NewTable("SIDE", "ACTIVE", "INACTIVE", "DEAD")
	for _, side := range sides {
		s := strength[side]
		forces.AddRow(side, fmt.Sprintf("%d", s[0]), fmt.Sprintf("%d", s[1]), fmt.Sprintf("%d", s[2]))
	}
	forces.Print()
}
