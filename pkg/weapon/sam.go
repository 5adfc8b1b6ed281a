package weapon

import (
	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// GuidanceMode is how the missile is guided to its target.
type GuidanceMode int

const (
	// Semiactive is the conventional kill chain: the launcher's tracking
	// radar illuminates the target through intercept.
	Semiactive GuidanceMode = iota
	// Ballistic launches without a continuous track; terminal tracking may
	// be cued later in the flyout.
	Ballistic
	// HomeOnJam homes on a jamming emitter instead of a radar track.
	HomeOnJam
)

func (g GuidanceMode) String() string {
	switch g {
	case Semiactive:
		return "SEMIACTIVE"
	case Ballistic:
		return "BALLISTIC"
	case HomeOnJam:
		return "HOJ"
	default:
		return "UNKNOWN"
	}
}

// Evaluator resolves a terminal endgame into hit or miss. The default is a
// single-shot Pk draw; richer lethality models plug in here.
type Evaluator interface {
	Assess(rng *sim.Stream, sam *SAM, target *platform.Platform) bool
}

// PkEvaluator kills with fixed single-shot probability.
type PkEvaluator struct {
	Pk float64
}

func (e PkEvaluator) Assess(rng *sim.Stream, _ *SAM, _ *platform.Platform) bool {
	return rng.Float64() < e.Pk
}

// OutcomeReporter receives the engagement outcome when the missile resolves.
// The launcher's agent implements this to drive its teardown.
type OutcomeReporter interface {
	WeaponOutcome(t float64, sam *SAM, target *platform.Platform, killed bool)
}

// SAM is one missile on a launcher. Its platform carries kinematic state and
// the INACTIVE (on rail) → ACTIVE (flying) → DEAD (expended) lifecycle; the
// SAM itself is the flyout behavior.
type SAM struct {
	ctx      *platform.Context
	p        *platform.Platform
	launcher *platform.Platform

	Speed        float64 // knots
	MaxRange     float64 // nmi of flight before self-destruct
	LethalRadius float64 // intercept distance, nmi

	evaluator Evaluator
	reporter  OutcomeReporter

	target     *platform.Platform
	mode       GuidanceMode
	launchLoc  geom.Point
	launchTime float64
	flown      float64
	last       float64
	tick       float64
}

// NewSAM builds a missile for the given launcher. The missile's platform is
// registered in the world so sensors can see it in flight.
func NewSAM(ctx *platform.Context, launcher *platform.Platform, name string, speed, maxRange, lethalRadius, tick float64, ev Evaluator, rep OutcomeReporter) (*SAM, error) {
	p := platform.New(name, launcher.Side, launcher.Location, platform.StatusInactive)
	p.Speed = speed
	p.MaxRange = maxRange
	if err := ctx.World.Add(p); err != nil {
		return nil, err
	}
	s := &SAM{
		ctx:          ctx,
		p:            p,
		launcher:     launcher,
		Speed:        speed,
		MaxRange:     maxRange,
		LethalRadius: lethalRadius,
		evaluator:    ev,
		reporter:     rep,
		tick:         tick,
	}
	launcher.Attach(s)
	return s, nil
}

func (s *SAM) SystemName() string        { return s.p.Name }
func (s *SAM) Owner() *platform.Platform { return s.launcher }

// Platform returns the missile's own platform.
func (s *SAM) Platform() *platform.Platform { return s.p }

// Target returns the platform the missile is flying at, nil when on rail.
func (s *SAM) Target() *platform.Platform { return s.target }

// Mode returns the guidance mode of the current flyout.
func (s *SAM) Mode() GuidanceMode { return s.mode }

// Ready reports whether the missile is still on the rail.
func (s *SAM) Ready() bool { return s.p.Status == platform.StatusInactive }

// Flying reports whether the missile is in the air.
func (s *SAM) Flying() bool { return s.p.Status == platform.StatusActive }

// FlyoutTime estimates seconds of flight from a launch point to the target's
// current position. The engagement layer uses it to time delayed
// terminal-tracking activation.
func (s *SAM) FlyoutTime(from geom.Point, target *platform.Platform) float64 {
	if s.Speed <= 0 {
		return 0
	}
	return s.ctx.Earth.Distance(from, target.Location) / s.Speed * 3600
}

// ShootTarget launches the missile: heading and elevation are set toward the
// target at launch and straight-line pursuit begins.
func (s *SAM) ShootTarget(t float64, target *platform.Platform, mode GuidanceMode) {
	if !s.Ready() || target == nil {
		return
	}
	s.target = target
	s.mode = mode
	s.launchLoc = s.launcher.Location
	s.launchTime = t
	s.flown = 0
	s.last = t

	s.p.Status = platform.StatusActive
	s.p.Location = s.launcher.Location
	s.p.Heading = s.ctx.Earth.Azimuth(s.p.Location, target.Location)
	s.p.Elevation = s.ctx.Earth.Elevation(s.p.Location, target.Location, 0)

	s.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventLaunch,
		Subject:     s.launcher.ID,
		SubjectName: s.launcher.Name,
		Object:      target.ID,
		ObjectName:  target.Name,
		Message:     s.p.Name + " launched " + mode.String(),
	})
	s.ctx.Touch(t)
}

func (s *SAM) NextScheduledTime(now float64) float64 {
	if !s.Flying() {
		return sim.Never()
	}
	return s.last + s.tick
}

// Perform advances the flyout one tick: re-aim at the target's current
// position, fly straight, and resolve the endgame once within a tick's
// travel or the lethal radius.
func (s *SAM) Perform(t float64) {
	if !s.Flying() {
		return
	}
	elapsed := t - s.last
	s.last = t
	if elapsed <= 0 {
		return
	}

	if s.target == nil || s.target.Status == platform.StatusDead {
		s.resolve(t, false)
		return
	}

	dist := elapsed * s.Speed / 3600
	if s.flown+dist > s.MaxRange {
		s.resolve(t, false)
		return
	}
	s.flown += dist

	s.p.Heading = s.ctx.Earth.Azimuth(s.p.Location, s.target.Location)
	s.p.Elevation = s.ctx.Earth.Elevation(s.p.Location, s.target.Location, 0)

	remaining := s.ctx.Earth.Distance(s.p.Location, s.target.Location)
	if remaining <= dist || remaining <= s.LethalRadius {
		s.p.Location = s.target.Location
		s.terminal(t)
		return
	}
	s.p.Location = s.ctx.Earth.Interpolate(s.p.Location, s.target.Location, dist)
}

// terminal resolves the endgame through the evaluator.
func (s *SAM) terminal(t float64) {
	killed := false
	if s.evaluator != nil {
		killed = s.evaluator.Assess(s.ctx.Rand, s, s.target)
	}
	if killed {
		s.target.Kill()
		s.ctx.Emit(sim.Event{
			Time:        t,
			Type:        sim.EventKill,
			Subject:     s.p.ID,
			SubjectName: s.p.Name,
			Object:      s.target.ID,
			ObjectName:  s.target.Name,
			Message:     "target destroyed",
		})
	}
	s.resolve(t, killed)
}

// resolve expends the missile and reports the outcome to the launcher.
func (s *SAM) resolve(t float64, killed bool) {
	target := s.target
	s.p.Kill()
	s.target = nil
	s.ctx.Touch(t)
	if s.reporter != nil {
		s.reporter.WeaponOutcome(t, s, target, killed)
	}
}
