package engage

import (
	"fmt"
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sensing"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
	"github.com/jpr86/CHECKMATE-sub000/pkg/weapon"
)

// ModeThresholds are engageability crossings for one kill-chain policy.
// Thresholds compare against range over lethal range, so smaller means
// closer.
type ModeThresholds struct {
	Acquisition float64 // acquisition radar turn-on
	Tracking    float64 // tracking radar turn-on (fully guided)
	Firing      float64
}

// SiteConfig carries every numeric knob of one SAM site.
type SiteConfig struct {
	LethalRange         float64
	EngagementThreshold float64

	// Guidance policy probabilities; the unguided probability is the
	// remainder. One draw per engagement.
	ProbFullyGuided float64
	ProbSemiGuided  float64

	FullyGuided ModeThresholds
	SemiGuided  ModeThresholds
	Unguided    ModeThresholds

	// TerminalTrackWindow is how many seconds of tracking-radar
	// illumination a semi-guided shot gets before predicted intercept.
	TerminalTrackWindow float64

	ProcessPeriod   float64
	Dwells          StateDwells
	HideProbability float64

	// MaxAssigned caps the assigned-target list; zero means unlimited.
	MaxAssigned int
}

// Validate fails fast on nonsensical configuration.
func (c SiteConfig) Validate() error {
	if c.LethalRange <= 0 {
		return fmt.Errorf("site lethal_range %v must be positive", c.LethalRange)
	}
	if c.EngagementThreshold <= 0 {
		return fmt.Errorf("site engagement_threshold %v must be positive", c.EngagementThreshold)
	}
	if c.ProbFullyGuided < 0 || c.ProbSemiGuided < 0 || c.ProbFullyGuided+c.ProbSemiGuided > 1 {
		return fmt.Errorf("guidance probabilities %v/%v must be non-negative and sum to at most 1",
			c.ProbFullyGuided, c.ProbSemiGuided)
	}
	if c.ProcessPeriod <= 0 {
		return fmt.Errorf("site process_period %v must be positive", c.ProcessPeriod)
	}
	if c.HideProbability < 0 || c.HideProbability > 1 {
		return fmt.Errorf("site hide_probability %v must be in [0,1]", c.HideProbability)
	}
	if err := c.Dwells.Validate(); err != nil {
		return fmt.Errorf("site dwells: %w", err)
	}
	return nil
}

// SAMSite is the engagement agent of one SAM battery position. It cycles
// Teardown → Moving → {Hiding|Setup} → Deployed on stochastic dwells,
// pursues assigned targets while Deployed, and fires through subordinate
// SAMTELs.
type SAMSite struct {
	ctx *platform.Context
	p   *platform.Platform
	cfg SiteConfig

	state    SiteState
	csb      *ChangeStateBehavior
	tar, ttr *sensing.Radar

	assigned []*platform.Platform
	engaged  *EngagedTarget
	engaging int
}

// NewSAMSite creates the site agent, attaches it to its platform and builds
// its dwell behavior.
func NewSAMSite(ctx *platform.Context, p *platform.Platform, cfg SiteConfig) (*SAMSite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("site %s: %w", p.Name, err)
	}
	s := &SAMSite{ctx: ctx, p: p, cfg: cfg, state: StateDeployed}
	s.csb = NewChangeStateBehavior(s, ctx.Rand)
	p.Agent = s
	return s, nil
}

// Platform returns the site platform.
func (s *SAMSite) Platform() *platform.Platform { return s.p }

// State returns the current lifecycle state.
func (s *SAMSite) State() SiteState { return s.state }

// Engaged returns the in-progress engagement, nil when idle.
func (s *SAMSite) Engaged() *EngagedTarget { return s.engaged }

// AttachRadars wires the site's acquisition and tracking radars. Either may
// be nil for degraded sites.
func (s *SAMSite) AttachRadars(tar, ttr *sensing.Radar) {
	s.tar = tar
	s.ttr = ttr
}

// SetInitialState places the site in a state at scenario start without side
// effects. Battalions and the initial-state draw use it before time zero.
func (s *SAMSite) SetInitialState(state SiteState) { s.state = state }

// Register adds the site's behaviors to the scheduler.
func (s *SAMSite) Register(sched *sim.Scheduler) {
	sched.Register(s.csb)
	sched.Register(&processTracksBehavior{s: s})
}

// MachineAlive implements StateMachine.
func (s *SAMSite) MachineAlive() bool { return s.p.Alive() }

// MachineSuspended implements StateMachine: Firing is entered and left only
// by shoot and outcome events, so the dwell clock stops there. A site under
// battalion command never advances on its own dwell clock either; the
// battalion owns the battery cycle and commands transitions down.
func (s *SAMSite) MachineSuspended() bool {
	return s.state == StateFiring || !s.autonomous()
}

// CurrentDwell implements StateMachine.
func (s *SAMSite) CurrentDwell() sim.Dwell { return s.cfg.Dwells.For(s.state) }

// AdvanceState implements StateMachine: the dwell-expiry transition.
func (s *SAMSite) AdvanceState(t float64) (sim.Dwell, bool) {
	switch s.state {
	case StateTeardown:
		s.setState(t, StateMoving)
	case StateMoving:
		if s.ctx.Rand.Float64() < s.cfg.HideProbability {
			s.setState(t, StateHiding)
		} else {
			s.setState(t, StateSetup)
		}
	case StateHiding:
		s.setState(t, StateSetup)
	case StateSetup:
		s.setState(t, StateDeployed)
	case StateDeployed:
		if s.engaged != nil {
			// Engagement in progress; the dwell clock resamples.
			return sim.Dwell{}, false
		}
		s.setState(t, StateTeardown)
	default:
		return sim.Dwell{}, false
	}
	return s.cfg.Dwells.For(s.state), true
}

// autonomous reports whether no higher echelon assigns targets to this
// site; autonomous sites turn their radars on as soon as they deploy.
func (s *SAMSite) autonomous() bool {
	_, ok := platform.AssignerOf(s.p.Superior)
	return !ok
}

// setState transitions the lifecycle state: exit side effects run before
// entry side effects.
func (s *SAMSite) setState(t float64, next SiteState) {
	prev := s.state
	if prev == next {
		return
	}
	leavingEmissionStates := prev == StateDeployed || prev == StateFiring
	if leavingEmissionStates && next != StateDeployed && next != StateFiring {
		s.deactivateRadars(t)
	}
	s.state = next
	s.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventStateChange,
		Subject:     s.p.ID,
		SubjectName: s.p.Name,
		Message:     prev.String() + " -> " + next.String(),
	})
	s.ctx.Touch(t)

	if next == StateDeployed && s.autonomous() && s.tar != nil {
		s.tar.SetActive(t, true)
	}
}

// CommandState is the battalion's explicit cue: transition now and restart
// the dwell clock.
func (s *SAMSite) CommandState(t float64, state SiteState) {
	s.setState(t, state)
	s.csb.ScheduleFrom(t, s.cfg.Dwells.For(state))
}

func (s *SAMSite) deactivateRadars(t float64) {
	if s.ttr != nil {
		s.ttr.SlaveTo(nil)
		s.ttr.SetActive(t, false)
	}
	if s.tar != nil {
		s.tar.SetActive(t, false)
	}
}

// Engageability is target range over lethal range; at or below 1 the target
// is inside the envelope. Monotone in range for a fixed lethal range.
func (s *SAMSite) Engageability(target *platform.Platform) float64 {
	if s.cfg.LethalRange <= 0 {
		return math.Inf(1)
	}
	return s.ctx.Earth.Distance(s.p.Location, target.Location) / s.cfg.LethalRange
}

// processTracksBehavior polls the engagement logic on a fixed period.
type processTracksBehavior struct {
	s       *SAMSite
	last    float64
	started bool
}

func (b *processTracksBehavior) NextScheduledTime(now float64) float64 {
	if !b.s.p.Alive() {
		return sim.Never()
	}
	if !b.started {
		return now
	}
	return b.last + b.s.cfg.ProcessPeriod
}

func (b *processTracksBehavior) Perform(t float64) {
	b.started = true
	b.last = t
	b.s.ProcessTracks(t)
}

// ProcessTracks runs one engagement-logic poll: target selection, radar
// sequencing per guidance mode, firing, home-on-jam and disengagement.
func (s *SAMSite) ProcessTracks(t float64) {
	// A pending semi-guided terminal illumination fires even while Firing.
	if e := s.engaged; e != nil && !math.IsInf(e.ttActivateAt, 1) && t >= e.ttActivateAt {
		e.ttActivateAt = math.Inf(1)
		s.activateTTR(t, e)
	}
	if s.state != StateDeployed {
		return
	}
	if s.engaged == nil {
		s.selectTarget(t)
	}
	e := s.engaged
	if e == nil {
		return
	}
	if e.Target.Status == platform.StatusDead || e.Target.Status == platform.StatusInactive {
		s.disengage(t, "target lost")
		return
	}

	eng := s.Engageability(e.Target)
	if eng > s.cfg.EngagementThreshold {
		s.disengage(t, "target receding")
		return
	}

	// Home-on-jam: our emitting tracking radar is being jammed, so the
	// engagement redirects onto the jamming source.
	if !e.HomeOnJam && s.ttr != nil && s.ttr.Emitting() {
		if src := sensing.StrongestJammerAgainst(s.ctx, s.p); src != nil && src != e.Target {
			e.Target = src
			e.HomeOnJam = true
			s.ttr.SlaveTo(src)
			s.ctx.Emit(sim.Event{
				Time:        t,
				Type:        sim.EventAssignment,
				Subject:     s.p.ID,
				SubjectName: s.p.Name,
				Object:      src.ID,
				ObjectName:  src.Name,
				Message:     "home-on-jam redirect",
			})
			eng = s.Engageability(src)
		}
	}

	switch e.Mode {
	case Unguided:
		if eng <= s.cfg.Unguided.Firing {
			s.fire(t, e)
		}
	case FullyGuided:
		th := s.cfg.FullyGuided
		if s.tar != nil && !s.tar.Emitting() && eng <= th.Acquisition {
			s.activateTAR(t, e)
		}
		if s.ttr != nil && !s.ttr.Emitting() && eng <= th.Tracking &&
			s.tar != nil && s.tar.HasTrackOn(e.Target) {
			s.activateTTR(t, e)
		}
		if eng <= th.Firing && s.ttr != nil && s.ttr.HasTrackOn(e.Target) {
			s.fire(t, e)
		}
	case SemiGuided:
		th := s.cfg.SemiGuided
		if s.tar != nil && !s.tar.Emitting() && eng <= th.Acquisition {
			s.activateTAR(t, e)
		}
		if !e.Fired && s.tar != nil && s.tar.HasTrackOn(e.Target) {
			// Ballistic launch on acquisition; terminal tracking is cued
			// late in the flyout. Flyout time comes from the first missile
			// found among subordinates, whichever launcher ends up firing.
			flyout := s.firstSAMFlyout(e.Target)
			at := t + flyout - s.cfg.TerminalTrackWindow
			if at < t {
				at = t
			}
			e.ttActivateAt = at
			s.fire(t, e)
		}
	}
}

func (s *SAMSite) activateTAR(t float64, e *EngagedTarget) {
	s.tar.SetActive(t, true)
	e.HasEmitted = true
}

func (s *SAMSite) activateTTR(t float64, e *EngagedTarget) {
	if s.ttr == nil {
		return
	}
	s.ttr.SlaveTo(e.Target)
	s.ttr.SetActive(t, true)
	e.HasEmitted = true
}

// selectTarget commits to the first assigned target inside the engagement
// threshold, drawing the guidance policy with a single stream draw.
func (s *SAMSite) selectTarget(t float64) {
	for i, tgt := range s.assigned {
		if !tgt.Alive() {
			continue
		}
		if s.Engageability(tgt) > s.cfg.EngagementThreshold {
			continue
		}
		s.assigned = append(s.assigned[:i], s.assigned[i+1:]...)
		s.engaged = &EngagedTarget{
			Target:       tgt,
			Mode:         s.drawMode(),
			TAR:          s.tar,
			TTR:          s.ttr,
			ttActivateAt: math.Inf(1),
			AssignedAt:   t,
		}
		s.superiorEngaging(1)
		s.ctx.Emit(sim.Event{
			Time:        t,
			Type:        sim.EventAssignment,
			Subject:     s.p.ID,
			SubjectName: s.p.Name,
			Object:      tgt.ID,
			ObjectName:  tgt.Name,
			Message:     "engaging " + s.engaged.Mode.String(),
		})
		return
	}
}

func (s *SAMSite) drawMode() EngagementMode {
	u := s.ctx.Rand.Float64()
	switch {
	case u < s.cfg.ProbFullyGuided:
		return FullyGuided
	case u < s.cfg.ProbFullyGuided+s.cfg.ProbSemiGuided:
		return SemiGuided
	default:
		return Unguided
	}
}

// selectShooter picks the subordinate launcher with minimum engageability,
// requiring it to be inside its own envelope.
func (s *SAMSite) selectShooter(target *platform.Platform) *SAMTEL {
	var best *SAMTEL
	bestEng := math.Inf(1)
	for _, sub := range s.p.Subordinates {
		tel, ok := sub.Agent.(*SAMTEL)
		if !ok || !sub.Alive() || tel.ReadySAM() == nil {
			continue
		}
		if eng := tel.Engageability(target); eng <= 1 && eng < bestEng {
			bestEng = eng
			best = tel
		}
	}
	return best
}

// firstSAMFlyout estimates flyout seconds using the first missile found
// among subordinates, regardless of which launcher is eventually selected.
func (s *SAMSite) firstSAMFlyout(target *platform.Platform) float64 {
	for _, sub := range s.p.Subordinates {
		tel, ok := sub.Agent.(*SAMTEL)
		if !ok || len(tel.SAMs()) == 0 {
			continue
		}
		return tel.SAMs()[0].FlyoutTime(sub.Location, target)
	}
	return 0
}

func (s *SAMSite) fire(t float64, e *EngagedTarget) {
	if e.Fired {
		return
	}
	tel := s.selectShooter(e.Target)
	if tel == nil {
		s.ctx.Log.Warnf("%s: no launcher can engage %s", s.p.Name, e.Target.Name)
		return
	}
	mode := weapon.Semiactive
	switch {
	case e.HomeOnJam:
		mode = weapon.HomeOnJam
	case e.Mode != FullyGuided:
		mode = weapon.Ballistic
	}
	if !tel.Fire(t, e.Target, mode) {
		return
	}
	e.Shooter = tel
	e.Fired = true
	s.setState(t, StateFiring)
}

// disengage abandons the current engagement. Having radiated for it forces
// a teardown to relocate; a silent disengage keeps the site deployed.
func (s *SAMSite) disengage(t float64, why string) {
	e := s.engaged
	if e == nil {
		return
	}
	emitted := e.HasEmitted
	s.engaged = nil
	s.superiorEngaging(-1)
	s.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventDisengage,
		Subject:     s.p.ID,
		SubjectName: s.p.Name,
		Object:      e.Target.ID,
		ObjectName:  e.Target.Name,
		Message:     why,
	})
	if emitted {
		s.forceTeardown(t)
	} else {
		s.deactivateRadars(t)
	}
}

// forceTeardown is the event-driven Teardown entry used by outcomes,
// unassignment and post-emission disengagement.
func (s *SAMSite) forceTeardown(t float64) {
	s.setState(t, StateTeardown)
	s.csb.ScheduleFrom(t, s.cfg.Dwells.Teardown)
}

func (s *SAMSite) superiorEngaging(delta int) {
	if a, ok := platform.AssignerOf(s.p.Superior); ok {
		a.Engaging(delta)
	}
}

// ReportActiveTracks consumes sensing results and forwards them verbatim up
// the chain. Engagement sequencing polls the radars directly, so local
// consumption only refreshes the engagement timestamp.
func (s *SAMSite) ReportActiveTracks(t float64, tracks []platform.Track) {
	if e := s.engaged; e != nil {
		for _, tr := range tracks {
			if tr.Target == e.Target && tr.Time > e.LastTrackAt {
				e.LastTrackAt = tr.Time
			}
		}
	}
	platform.ForwardActiveTracks(t, s.p, tracks)
}

// ReportDroppedTracks forwards drops verbatim; they arrive before actives
// within a timestamp.
func (s *SAMSite) ReportDroppedTracks(t float64, tracks []platform.Track) {
	platform.ForwardDroppedTracks(t, s.p, tracks)
}

// AssignTarget queues a target. Only deployed sites accept assignments; a
// firing site refuses and the caller retries the next site.
func (s *SAMSite) AssignTarget(t float64, target *platform.Platform) bool {
	if s.state != StateDeployed {
		return false
	}
	if s.isAssigned(target) {
		return true
	}
	if s.cfg.MaxAssigned > 0 && len(s.assigned) >= s.cfg.MaxAssigned {
		return false
	}
	s.assigned = append(s.assigned, target)
	s.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventAssignment,
		Subject:     s.p.ID,
		SubjectName: s.p.Name,
		Object:      target.ID,
		ObjectName:  target.Name,
		Message:     "target assigned",
	})
	return true
}

// PriorityAssignTarget preempts: the current engagement is cleared without
// re-queuing its target and the new target goes to the head of the list.
func (s *SAMSite) PriorityAssignTarget(t float64, target *platform.Platform) {
	if s.engaged != nil {
		s.engaged = nil
		s.superiorEngaging(-1)
	}
	s.assigned = append([]*platform.Platform{target}, s.removeAssigned(target)...)
	s.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventAssignment,
		Subject:     s.p.ID,
		SubjectName: s.p.Name,
		Object:      target.ID,
		ObjectName:  target.Name,
		Message:     "priority target assigned",
	})
}

// UnassignTarget removes a target; if it was being engaged with emissions
// the site tears down.
func (s *SAMSite) UnassignTarget(t float64, target *platform.Platform) {
	s.assigned = s.removeAssigned(target)
	if e := s.engaged; e != nil && e.Target == target {
		s.disengage(t, "target unassigned")
	}
}

// TargetDestroyed receives the engagement outcome from a launcher. The
// outcome relays to the superior and always forces a teardown.
func (s *SAMSite) TargetDestroyed(t float64, target *platform.Platform, killed bool) {
	s.assigned = s.removeAssigned(target)
	if e := s.engaged; e != nil && e.Target == target {
		s.engaged = nil
		s.superiorEngaging(-1)
	}
	if a, ok := platform.AssignerOf(s.p.Superior); ok {
		a.TargetDestroyed(t, target, killed)
	}
	s.forceTeardown(t)
}

// Engaging adjusts and returns the site's own engagement reference count.
func (s *SAMSite) Engaging(delta int) int {
	s.engaging += delta
	return s.engaging
}

func (s *SAMSite) isAssigned(target *platform.Platform) bool {
	for _, a := range s.assigned {
		if a == target {
			return true
		}
	}
	return false
}

func (s *SAMSite) removeAssigned(target *platform.Platform) []*platform.Platform {
	out := s.assigned[:0]
	for _, a := range s.assigned {
		if a != target {
			out = append(out, a)
		}
	}
	return out
}
