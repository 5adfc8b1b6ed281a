package kinematics

import (
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// Physical constants used by the turn and orbit models. Speeds are knots,
// distances nautical miles, altitudes feet.
const (
	gravityFPS2 = 32.12
	fpsPerKnot  = 1.68781
)

// MoverState is the kinematic state of a route-following platform.
type MoverState int

const (
	MoverInactive MoverState = iota
	MoverEnRoute
	MoverOrbiting
)

func (s MoverState) String() string {
	switch s {
	case MoverInactive:
		return "Inactive"
	case MoverEnRoute:
		return "MovingToWaypoint"
	case MoverOrbiting:
		return "Orbiting"
	default:
		return "Unknown"
	}
}

// Mover advances a platform along its route with instantaneous heading
// changes. It runs as a scheduler behavior on a fixed update period.
type Mover struct {
	ctx   *platform.Context
	p     *platform.Platform
	route Route
	tick  float64

	state      MoverState
	index      int
	last       float64
	started    bool
	orbitUntil float64
	orbitPhase float64 // bearing from orbit center to platform
	orbitR     float64 // orbit radius, nmi
}

// defaultOrbitBank is used when a route point carries no bank limit; a
// 30 degree standard-rate turn.
const defaultOrbitBank = math.Pi / 6

// NewMover creates a route follower updating every tick seconds.
func NewMover(ctx *platform.Context, p *platform.Platform, route Route, tick float64) (*Mover, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return &Mover{
		ctx:   ctx,
		p:     p,
		route: route,
		tick:  tick,
		state: MoverEnRoute,
	}, nil
}

// State returns the current kinematic state.
func (m *Mover) State() MoverState { return m.state }

// NextScheduledTime schedules the next kinematic update, or never when the
// platform is inactive or the route is exhausted.
func (m *Mover) NextScheduledTime(now float64) float64 {
	if m.state == MoverInactive || !m.p.Alive() {
		return sim.Never()
	}
	if !m.started {
		return now
	}
	return m.last + m.tick
}

// Perform advances the platform to time t.
func (m *Mover) Perform(t float64) {
	if !m.started {
		m.started = true
		m.last = t
		m.aim()
		return
	}
	elapsed := t - m.last
	m.last = t
	if elapsed <= 0 || m.state == MoverInactive || !m.p.Alive() {
		return
	}
	if m.p.Speed <= 0 {
		return
	}
	// Zero max range means the platform cannot move at all.
	if m.p.MaxRange == 0 {
		return
	}
	dist := elapsed * m.p.Speed / 3600

	if m.p.Accrued+dist > m.p.MaxRange {
		// Range exhaustion deactivates mid-leg instead of completing it.
		remaining := m.p.MaxRange - m.p.Accrued
		if remaining > 0 {
			m.advance(t, remaining)
		}
		m.p.Accrued = m.p.MaxRange
		m.deactivate(t, "max range exhausted")
		return
	}
	m.p.Accrued += dist
	m.advance(t, dist)
}

// advance moves the platform dist nmi, consuming waypoints and recursing
// with leftover distance.
func (m *Mover) advance(t, dist float64) {
	if m.state == MoverOrbiting {
		if t < m.orbitUntil {
			m.orbitStep(dist)
			return
		}
		m.state = MoverEnRoute
		if !m.nextIndex(t) {
			return
		}
		m.aim()
		m.ctx.Touch(t)
	}

	wp := m.route.Points[m.index]
	remaining := m.ctx.Earth.GroundDistance(m.p.Location, wp.Point)
	if dist >= remaining || remaining <= wp.Slop {
		m.p.Location = wp.Point
		leftover := dist - remaining
		m.arrive(t, leftover)
		return
	}
	m.aim()
	m.p.Location = m.ctx.Earth.Interpolate(m.p.Location, wp.Point, dist)
}

// aim points heading and elevation at the current waypoint.
func (m *Mover) aim() {
	wp := m.route.Points[m.index]
	m.p.Heading = m.ctx.Earth.Azimuth(m.p.Location, wp.Point)
	m.p.Elevation = m.ctx.Earth.Elevation(m.p.Location, wp.Point, 0)
}

// arrive handles waypoint consumption at time t with leftover distance still
// to travel this tick.
func (m *Mover) arrive(t, leftover float64) {
	wp := m.route.Points[m.index]
	if wp.Type == PointOrbit {
		m.enterOrbit(t, wp)
		return
	}
	if !m.nextIndex(t) {
		return
	}
	m.aim()
	if leftover > 0 {
		m.advance(t, leftover)
	}
}

// nextIndex advances the route index, wrapping for periodic routes. It
// returns false when a one-way route is exhausted and the platform has been
// deactivated.
func (m *Mover) nextIndex(t float64) bool {
	m.index++
	if m.index < len(m.route.Points) {
		return true
	}
	if m.route.Periodic {
		m.index = 0
		return true
	}
	m.deactivate(t, "route complete")
	return false
}

func (m *Mover) deactivate(t float64, why string) {
	m.state = MoverInactive
	m.p.Deactivate()
	m.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventDeactivate,
		Subject:     m.p.ID,
		SubjectName: m.p.Name,
		Message:     why,
	})
	m.ctx.Touch(t)
}

// enterOrbit switches to the circular orbit integrator. The orbit circle is
// offset to the platform's right so the entry is continuous.
func (m *Mover) enterOrbit(t float64, wp RoutePoint) {
	bank := wp.MaxBank
	if bank <= 0 {
		bank = defaultOrbitBank
	}
	m.orbitR = orbitRadius(m.p.Speed, bank)
	center := m.ctx.Earth.Project(m.p.Location, m.p.Heading+math.Pi/2, m.orbitR)
	m.orbitPhase = m.ctx.Earth.Azimuth(center, m.p.Location)
	m.orbitUntil = t + wp.OrbitDuration
	m.state = MoverOrbiting
	m.p.Elevation = 0
	m.ctx.Touch(t)
}

// orbitStep advances the platform dist nmi around the orbit circle.
func (m *Mover) orbitStep(dist float64) {
	if m.orbitR <= 0 {
		return
	}
	center := m.ctx.Earth.Project(m.p.Location, m.orbitPhase+math.Pi, m.orbitR)
	m.orbitPhase += dist / m.orbitR
	m.p.Location = m.ctx.Earth.Project(center, m.orbitPhase, m.orbitR)
	m.p.Heading = normalizeHeading(m.orbitPhase + math.Pi/2)
}

// orbitRadius returns the turn radius in nmi for a coordinated turn at the
// given speed (knots) and bank angle (radians): v_fps² / (g·tan(bank)).
func orbitRadius(speedKnots, bank float64) float64 {
	if speedKnots <= 0 || bank <= 0 {
		return 0
	}
	vfps := speedKnots * fpsPerKnot
	feet := vfps * vfps / (gravityFPS2 * math.Tan(bank))
	return feet / geom.FeetPerNmi
}

// maxHeadingDelta returns the largest heading change (radians) achievable in
// dt seconds at the given speed and bank limit. The load factor is
// g = 1/cos(bank); the turn rate is g·√(n²−1)/v.
func maxHeadingDelta(dt, speedKnots, bank float64) float64 {
	if speedKnots <= 0 || bank <= 0 {
		return 0
	}
	n := 1 / math.Cos(bank)
	return dt * gravityFPS2 * math.Sqrt(n*n-1) / fpsPerKnot / speedKnots
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// angleError returns the signed smallest rotation from current to desired in
// (−π, π].
func angleError(desired, current float64) float64 {
	d := math.Mod(desired-current, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
