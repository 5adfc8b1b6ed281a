package platform

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
)

// Status is the platform lifecycle state.
type Status int

const (
	StatusInactive Status = iota
	StatusActive
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusActive:
		return "ACTIVE"
	case StatusDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// System is anything owned by a platform that the sensing layer can discover
// by walking the world: radars, jammers, receivers, weapons.
type System interface {
	SystemName() string
	Owner() *Platform
}

// Agent is the role strategy attached to a platform: a SAM site, a
// battalion, a TEL. Capability interfaces (TrackReceiver,
// TargetAssignmentC2) are asserted against the Agent, which replaces the
// original design's type-cast chains up an inheritance tree.
type Agent interface {
	Platform() *Platform
}

// Platform is the single mobile/stationary entity type. Roles are attached
// by composition: an Agent strategy plus optional System sets, selected per
// scenario rather than by subclassing.
type Platform struct {
	ID     uuid.UUID
	Name   string
	Side   string
	Status Status

	Location  geom.Point
	Heading   float64 // radians clockwise from north
	Elevation float64 // pitch, radians
	Speed     float64 // knots

	// MaxRange limits total travel in nmi; zero means the platform cannot
	// move at all. Accrued is distance travelled since activation.
	MaxRange float64
	Accrued  float64

	// RCS in m². Zero means the platform never produces a radar blip.
	RCS float64

	Superior     *Platform
	Subordinates []*Platform

	Agent   Agent
	Systems []System

	initLocation geom.Point
	initStatus   Status
}

// New creates a platform in the given initial state. The initial location
// and status are remembered for Reset.
func New(name, side string, loc geom.Point, status Status) *Platform {
	return &Platform{
		ID:           uuid.New(),
		Name:         name,
		Side:         side,
		Status:       status,
		Location:     loc,
		initLocation: loc,
		initStatus:   status,
	}
}

// Reset restores the platform to its scenario-load state for the next run.
func (p *Platform) Reset() {
	p.Status = p.initStatus
	p.Location = p.initLocation
	p.Heading = 0
	p.Elevation = 0
	p.Accrued = 0
}

// AddSubordinate links sub under p. A platform has at most one superior;
// relinking and cycles are construction errors.
func (p *Platform) AddSubordinate(sub *Platform) error {
	if sub == nil {
		return fmt.Errorf("nil subordinate")
	}
	if sub.Superior != nil {
		return fmt.Errorf("platform %s already has superior %s", sub.Name, sub.Superior.Name)
	}
	for up := p; up != nil; up = up.Superior {
		if up == sub {
			return fmt.Errorf("linking %s under %s would create a cycle", sub.Name, p.Name)
		}
	}
	sub.Superior = p
	p.Subordinates = append(p.Subordinates, sub)
	return nil
}

// Attach registers a system on the platform.
func (p *Platform) Attach(s System) {
	p.Systems = append(p.Systems, s)
}

// Alive reports whether the platform is active.
func (p *Platform) Alive() bool { return p.Status == StatusActive }

// Deactivate marks the platform inactive (fuel/range exhaustion, route end).
func (p *Platform) Deactivate() {
	if p.Status == StatusActive {
		p.Status = StatusInactive
	}
}

// Kill marks the platform dead. Dead platforms never reactivate within a run.
func (p *Platform) Kill() { p.Status = StatusDead }

// World is the set of platforms in one simulation run.
type World struct {
	platforms []*Platform
	byID      map[uuid.UUID]*Platform
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{byID: make(map[uuid.UUID]*Platform)}
}

// Add registers a platform. Duplicate IDs are a construction error.
func (w *World) Add(p *Platform) error {
	if _, exists := w.byID[p.ID]; exists {
		return fmt.Errorf("platform %s (%s) already in world", p.Name, p.ID)
	}
	w.platforms = append(w.platforms, p)
	w.byID[p.ID] = p
	return nil
}

// All returns every platform in registration order.
func (w *World) All() []*Platform { return w.platforms }

// ByID looks up a platform, returning nil when absent.
func (w *World) ByID(id uuid.UUID) *Platform { return w.byID[id] }

// Hostiles returns active platforms not on the given side.
func (w *World) Hostiles(side string) []*Platform {
	var out []*Platform
	for _, p := range w.platforms {
		if p.Alive() && p.Side != side {
			out = append(out, p)
		}
	}
	return out
}

// Reset restores every platform for a new run.
func (w *World) Reset() {
	for _, p := range w.platforms {
		p.Reset()
	}
}
