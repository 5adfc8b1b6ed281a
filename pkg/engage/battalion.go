package engage

import (
	"fmt"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// BattalionConfig carries the battery-level cycle knobs.
type BattalionConfig struct {
	Dwells          StateDwells
	HideProbability float64
	Relocation      PointGenerator
}

// Validate fails fast on nonsensical configuration.
func (c BattalionConfig) Validate() error {
	if err := c.Dwells.Validate(); err != nil {
		return fmt.Errorf("battalion dwells: %w", err)
	}
	if c.HideProbability < 0 || c.HideProbability > 1 {
		return fmt.Errorf("battalion hide_probability %v must be in [0,1]", c.HideProbability)
	}
	if err := c.Relocation.Validate(); err != nil {
		return fmt.Errorf("battalion relocation: %w", err)
	}
	return nil
}

// SAMBattalion owns the move/hide/setup/deploy/teardown cycle for a battery
// of subordinate SAM sites. It samples relocation destinations, forwards
// state commands down, and refuses to leave Deployed while any site reports
// itself engaging.
type SAMBattalion struct {
	ctx *platform.Context
	p   *platform.Platform
	cfg BattalionConfig

	state    SiteState
	csb      *ChangeStateBehavior
	engaging int

	destination geom.Point
	moving      bool
}

// NewSAMBattalion creates the battalion agent and its dwell behavior.
func NewSAMBattalion(ctx *platform.Context, p *platform.Platform, cfg BattalionConfig) (*SAMBattalion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("battalion %s: %w", p.Name, err)
	}
	b := &SAMBattalion{ctx: ctx, p: p, cfg: cfg, state: StateDeployed}
	b.csb = NewChangeStateBehavior(b, ctx.Rand)
	p.Agent = b
	return b, nil
}

// Platform returns the battalion platform.
func (b *SAMBattalion) Platform() *platform.Platform { return b.p }

// State returns the battery lifecycle state.
func (b *SAMBattalion) State() SiteState { return b.state }

// SetInitialState places the battery and its sites in a state at scenario
// start without side effects.
func (b *SAMBattalion) SetInitialState(state SiteState) {
	b.state = state
	for _, s := range b.sites() {
		s.SetInitialState(state)
	}
}

// Register adds the battalion's dwell behavior to the scheduler.
func (b *SAMBattalion) Register(sched *sim.Scheduler) {
	sched.Register(b.csb)
}

func (b *SAMBattalion) sites() []*SAMSite {
	var out []*SAMSite
	for _, sub := range b.p.Subordinates {
		if s, ok := sub.Agent.(*SAMSite); ok {
			out = append(out, s)
		}
	}
	return out
}

// MachineAlive implements StateMachine.
func (b *SAMBattalion) MachineAlive() bool { return b.p.Alive() }

// MachineSuspended implements StateMachine; battalions never fire, so the
// dwell clock always runs.
func (b *SAMBattalion) MachineSuspended() bool { return false }

// CurrentDwell implements StateMachine.
func (b *SAMBattalion) CurrentDwell() sim.Dwell { return b.cfg.Dwells.For(b.state) }

// AdvanceState runs the battery cycle. Leaving Deployed is blocked while
// the engagement reference count is nonzero; the dwell resamples and the
// teardown is retried later.
func (b *SAMBattalion) AdvanceState(t float64) (sim.Dwell, bool) {
	switch b.state {
	case StateTeardown:
		b.destination = b.cfg.Relocation.Next(b.ctx, b.p.Location)
		b.moving = true
		b.setState(t, StateMoving)
	case StateMoving:
		if b.ctx.Rand.Float64() < b.cfg.HideProbability {
			b.setState(t, StateHiding)
		} else {
			b.setState(t, StateSetup)
		}
	case StateHiding:
		b.setState(t, StateSetup)
	case StateSetup:
		b.setState(t, StateDeployed)
	case StateDeployed:
		if b.engaging != 0 {
			return sim.Dwell{}, false
		}
		b.setState(t, StateTeardown)
	default:
		return sim.Dwell{}, false
	}
	return b.cfg.Dwells.For(b.state), true
}

// setState transitions the battery: exit side effects (the location commit
// when leaving Moving) run before the entry side effects, and the command
// forwards to every subordinate site.
func (b *SAMBattalion) setState(t float64, next SiteState) {
	prev := b.state
	if prev == next {
		return
	}
	if prev == StateMoving && b.moving {
		b.commitMove(t)
	}
	b.state = next
	b.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventStateChange,
		Subject:     b.p.ID,
		SubjectName: b.p.Name,
		Message:     prev.String() + " -> " + next.String(),
	})
	b.ctx.Touch(t)
	for _, s := range b.sites() {
		s.CommandState(t, next)
	}
}

// commitMove relocates the battalion and its sites to the sampled
// destination, preserving each site's offset from the battery center.
func (b *SAMBattalion) commitMove(t float64) {
	b.moving = false
	old := b.p.Location
	b.p.Location = b.destination
	for _, sub := range b.p.Subordinates {
		dx := sub.Location.X - old.X
		dy := sub.Location.Y - old.Y
		sub.Location.X = b.destination.X + dx
		sub.Location.Y = b.destination.Y + dy
		for _, tel := range sub.Subordinates {
			tdx := tel.Location.X - old.X
			tdy := tel.Location.Y - old.Y
			tel.Location.X = b.destination.X + tdx
			tel.Location.Y = b.destination.Y + tdy
		}
	}
	b.ctx.Touch(t)
}

// ReportActiveTracks consumes sensing results: new tracks are assigned to
// the first deployed site with capacity, then the report forwards upward.
func (b *SAMBattalion) ReportActiveTracks(t float64, tracks []platform.Track) {
	for _, tr := range tracks {
		for _, s := range b.sites() {
			if s.AssignTarget(t, tr.Target) {
				break
			}
		}
	}
	platform.ForwardActiveTracks(t, b.p, tracks)
}

// ReportDroppedTracks withdraws assignments for dropped tracks and forwards
// the report.
func (b *SAMBattalion) ReportDroppedTracks(t float64, tracks []platform.Track) {
	for _, tr := range tracks {
		for _, s := range b.sites() {
			s.UnassignTarget(t, tr.Target)
		}
	}
	platform.ForwardDroppedTracks(t, b.p, tracks)
}

// AssignTarget delegates to the first subordinate site that accepts.
func (b *SAMBattalion) AssignTarget(t float64, target *platform.Platform) bool {
	for _, s := range b.sites() {
		if s.AssignTarget(t, target) {
			return true
		}
	}
	return false
}

// PriorityAssignTarget preempts on the first deployed site.
func (b *SAMBattalion) PriorityAssignTarget(t float64, target *platform.Platform) {
	for _, s := range b.sites() {
		if s.State() == StateDeployed || s.State() == StateFiring {
			s.PriorityAssignTarget(t, target)
			return
		}
	}
}

// UnassignTarget withdraws the target from every site.
func (b *SAMBattalion) UnassignTarget(t float64, target *platform.Platform) {
	for _, s := range b.sites() {
		s.UnassignTarget(t, target)
	}
}

// TargetDestroyed relays the outcome upward.
func (b *SAMBattalion) TargetDestroyed(t float64, target *platform.Platform, killed bool) {
	if a, ok := platform.AssignerOf(b.p.Superior); ok {
		a.TargetDestroyed(t, target, killed)
	}
}

// Engaging adjusts and returns the battery's engagement reference count;
// sites call it as they enter and leave engagements.
func (b *SAMBattalion) Engaging(delta int) int {
	b.engaging += delta
	if b.engaging < 0 {
		b.ctx.Log.Warnf("%s: engaging count went negative, clamping", b.p.Name)
		b.engaging = 0
	}
	return b.engaging
}

// RandomStartState draws the initial lifecycle state weighted by mean
// dwell so a cold start does not synchronize every battery. A non-positive
// cycle time skips the draw and starts Deployed.
func RandomStartState(d StateDwells, rng *sim.Stream) SiteState {
	cycle := d.CycleTime()
	if cycle <= 0 {
		return StateDeployed
	}
	u := rng.Float64() * cycle
	for _, s := range []SiteState{StateMoving, StateHiding, StateSetup, StateDeployed, StateTeardown} {
		u -= d.For(s).Mean
		if u < 0 {
			return s
		}
	}
	return StateDeployed
}
