package kinematics

import (
	"fmt"
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// BankedMover advances a platform along its route with a bounded turn rate
// derived from each route point's bank limit. Unlike Mover it cannot snap
// onto a new leg, so waypoint arrival uses the point's slop tolerance.
type BankedMover struct {
	ctx   *platform.Context
	p     *platform.Platform
	route Route
	tick  float64

	state      MoverState
	index      int
	last       float64
	started    bool
	orbitUntil float64
}

// NewBankedMover creates a turn-rate-limited route follower. Every route
// point must carry a positive bank limit; a point without one is a
// configuration error, not a fallback to instantaneous turning.
func NewBankedMover(ctx *platform.Context, p *platform.Platform, route Route, tick float64) (*BankedMover, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}
	for i, pt := range route.Points {
		if pt.MaxBank <= 0 {
			return nil, fmt.Errorf("banked route point %d has no bank limit", i)
		}
	}
	return &BankedMover{
		ctx:   ctx,
		p:     p,
		route: route,
		tick:  tick,
		state: MoverEnRoute,
	}, nil
}

// State returns the current kinematic state.
func (m *BankedMover) State() MoverState { return m.state }

// NextScheduledTime schedules the next kinematic update.
func (m *BankedMover) NextScheduledTime(now float64) float64 {
	if m.state == MoverInactive || !m.p.Alive() {
		return sim.Never()
	}
	if !m.started {
		return now
	}
	return m.last + m.tick
}

// Perform advances the platform to time t.
func (m *BankedMover) Perform(t float64) {
	if !m.started {
		m.started = true
		m.last = t
		return
	}
	elapsed := t - m.last
	m.last = t
	if elapsed <= 0 || m.state == MoverInactive || !m.p.Alive() {
		return
	}
	if m.p.Speed <= 0 || m.p.MaxRange == 0 {
		return
	}
	dist := elapsed * m.p.Speed / 3600

	if m.p.Accrued+dist > m.p.MaxRange {
		remaining := m.p.MaxRange - m.p.Accrued
		if remaining > 0 {
			m.step(t, remaining, remaining/dist*elapsed)
		}
		m.p.Accrued = m.p.MaxRange
		m.deactivate(t, "max range exhausted")
		return
	}
	m.p.Accrued += dist
	m.step(t, dist, elapsed)
}

func (m *BankedMover) step(t, dist, elapsed float64) {
	if m.state == MoverOrbiting {
		if t < m.orbitUntil {
			m.orbitStep(dist, elapsed)
			return
		}
		m.state = MoverEnRoute
		if !m.nextIndex(t) {
			return
		}
		m.ctx.Touch(t)
	}

	wp := m.route.Points[m.index]
	desired := m.ctx.Earth.Azimuth(m.p.Location, wp.Point)
	err := angleError(desired, m.p.Heading)
	turnCap := maxHeadingDelta(elapsed, m.p.Speed, wp.MaxBank)

	if math.Abs(err) > turnCap {
		// Bank at the limit and turn at the capped rate; forward progress
		// continues along the new heading.
		m.p.Heading = normalizeHeading(m.p.Heading + math.Copysign(turnCap, err))
		m.moveStraight(dist, wp)
		return
	}

	m.p.Heading = desired
	remaining := m.ctx.Earth.GroundDistance(m.p.Location, wp.Point)
	slop := wp.Slop
	if slop <= 0 {
		slop = dist
	}
	if remaining <= dist+slop {
		m.p.Location = wp.Point
		m.arrive(t)
		return
	}
	m.p.Elevation = m.ctx.Earth.Elevation(m.p.Location, wp.Point, 0)
	m.p.Location = m.ctx.Earth.Interpolate(m.p.Location, wp.Point, dist)
}

// moveStraight projects the platform dist nmi along its current heading,
// closing the altitude gap to the target waypoint proportionally.
func (m *BankedMover) moveStraight(dist float64, wp RoutePoint) {
	loc := m.ctx.Earth.Project(m.p.Location, m.p.Heading, dist)
	remaining := m.ctx.Earth.GroundDistance(m.p.Location, wp.Point)
	if remaining > dist {
		loc.Z += (wp.Point.Z - loc.Z) * dist / remaining
	} else {
		loc.Z = wp.Point.Z
	}
	m.p.Location = loc
}

func (m *BankedMover) arrive(t float64) {
	wp := m.route.Points[m.index]
	if wp.Type == PointOrbit {
		m.orbitUntil = t + wp.OrbitDuration
		m.state = MoverOrbiting
		m.p.Elevation = 0
		m.ctx.Touch(t)
		return
	}
	m.nextIndex(t)
}

func (m *BankedMover) nextIndex(t float64) bool {
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

func (m *BankedMover) deactivate(t float64, why string) {
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

// orbitStep spirals the platform toward the commanded orbit radius around
// the orbit waypoint. The inward steering term is a zeroth order correction,
// exact for a circle rather than a spiral; downstream timing depends on its
// specific behavior, so it stays as-is.
func (m *BankedMover) orbitStep(dist, elapsed float64) {
	wp := m.route.Points[m.index]
	r := orbitRadius(m.p.Speed, wp.MaxBank)
	if r <= 0 {
		return
	}
	center := wp.Point
	cur := m.ctx.Earth.GroundDistance(m.p.Location, center)
	var desired float64
	if cur == 0 {
		desired = m.p.Heading
	} else {
		tangent := m.ctx.Earth.Azimuth(center, m.p.Location) + math.Pi/2
		correction := clamp((cur-r)/r, -math.Pi/4, math.Pi/4)
		desired = normalizeHeading(tangent + correction)
	}
	turnCap := maxHeadingDelta(elapsed, m.p.Speed, wp.MaxBank)
	err := angleError(desired, m.p.Heading)
	if math.Abs(err) > turnCap {
		m.p.Heading = normalizeHeading(m.p.Heading + math.Copysign(turnCap, err))
	} else {
		m.p.Heading = desired
	}
	loc := m.ctx.Earth.Project(m.p.Location, m.p.Heading, dist)
	loc.Z = closeAltitude(loc.Z, center.Z, dist)
	m.p.Location = loc
}

// closeAltitude moves z toward target at a shallow fixed gradient so orbit
// entry altitude mismatches settle out.
func closeAltitude(z, target, dist float64) float64 {
	maxDz := dist * geom.FeetPerNmi * 0.05
	dz := target - z
	if math.Abs(dz) <= maxDz {
		return target
	}
	return z + math.Copysign(maxDz, dz)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
