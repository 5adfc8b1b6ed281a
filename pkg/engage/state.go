package engage

import (
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// SiteState is the engagement lifecycle state of a SAM site or battalion.
// Battalions never enter Firing; they delegate firing to subordinate sites.
type SiteState int

const (
	StateMoving SiteState = iota
	StateHiding
	StateSetup
	StateDeployed
	StateFiring
	StateTeardown
)

func (s SiteState) String() string {
	switch s {
	case StateMoving:
		return "Moving"
	case StateHiding:
		return "Hiding"
	case StateSetup:
		return "Setup"
	case StateDeployed:
		return "Deployed"
	case StateFiring:
		return "Firing"
	case StateTeardown:
		return "Teardown"
	default:
		return "Unknown"
	}
}

// StateDwells holds the per-state dwell samplers of the canonical cycle
// Teardown → Moving → {Hiding|Setup} → Deployed → {Firing|Teardown}. Firing
// has no dwell; it is entered and left by shoot and outcome events only.
type StateDwells struct {
	Moving   sim.Dwell
	Hiding   sim.Dwell
	Setup    sim.Dwell
	Deployed sim.Dwell
	Teardown sim.Dwell
}

// Validate checks every dwell pair.
func (d StateDwells) Validate() error {
	for _, dw := range []sim.Dwell{d.Moving, d.Hiding, d.Setup, d.Deployed, d.Teardown} {
		if err := dw.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// For returns the dwell sampler of a state.
func (d StateDwells) For(s SiteState) sim.Dwell {
	switch s {
	case StateMoving:
		return d.Moving
	case StateHiding:
		return d.Hiding
	case StateSetup:
		return d.Setup
	case StateDeployed:
		return d.Deployed
	case StateTeardown:
		return d.Teardown
	default:
		return sim.Dwell{}
	}
}

// CycleTime is the sum of mean dwells around the cycle, used for the
// initial-state draw. A non-positive cycle time skips the draw entirely.
func (d StateDwells) CycleTime() float64 {
	return d.Moving.Mean + d.Hiding.Mean + d.Setup.Mean + d.Deployed.Mean + d.Teardown.Mean
}

// StateMachine is the dwell-driven side of a site or battalion: the
// ChangeStateBehavior samples the current state's dwell and calls
// AdvanceState when it expires. Suspension (during Firing, or while a
// battalion waits out engaging subordinates) is purely logical and takes
// effect at the next scheduling query.
type StateMachine interface {
	MachineAlive() bool
	MachineSuspended() bool
	// AdvanceState performs the dwell-expiry transition at time t and
	// returns the dwell of the state entered. Returning ok=false leaves
	// the machine in place and resamples the current state's dwell.
	AdvanceState(t float64) (sim.Dwell, bool)
	CurrentDwell() sim.Dwell
}

// ChangeStateBehavior drives one StateMachine from the scheduler.
type ChangeStateBehavior struct {
	m       StateMachine
	rng     *sim.Stream
	next    float64
	started bool
}

// NewChangeStateBehavior wires a state machine to the scheduler.
func NewChangeStateBehavior(m StateMachine, rng *sim.Stream) *ChangeStateBehavior {
	return &ChangeStateBehavior{m: m, rng: rng}
}

func (b *ChangeStateBehavior) NextScheduledTime(now float64) float64 {
	if !b.m.MachineAlive() || b.m.MachineSuspended() {
		return sim.Never()
	}
	if !b.started {
		return now
	}
	return b.next
}

func (b *ChangeStateBehavior) Perform(t float64) {
	if !b.started {
		b.started = true
		b.next = t + b.m.CurrentDwell().Sample(b.rng)
		return
	}
	if t < b.next {
		return
	}
	d, ok := b.m.AdvanceState(t)
	if !ok {
		d = b.m.CurrentDwell()
	}
	b.next = t + d.Sample(b.rng)
}

// ScheduleFrom restarts the dwell clock after an event-driven transition
// (a forced teardown, leaving Firing) so the stale expiry time is not
// replayed.
func (b *ChangeStateBehavior) ScheduleFrom(t float64, d sim.Dwell) {
	b.started = true
	b.next = t + d.Sample(b.rng)
}
