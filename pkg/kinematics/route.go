package kinematics

import (
	"fmt"
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
)

// PointType distinguishes fly-through waypoints from orbit anchors.
type PointType int

const (
	PointWaypoint PointType = iota
	PointOrbit
)

func (pt PointType) String() string {
	switch pt {
	case PointWaypoint:
		return "WAYPOINT"
	case PointOrbit:
		return "ORBIT"
	default:
		return "UNKNOWN"
	}
}

// RoutePoint is one leg endpoint. MaxBank (radians) and Slop (nmi arrival
// tolerance) are only consulted by the banked mover; OrbitDuration (seconds)
// only when Type is PointOrbit.
type RoutePoint struct {
	Point         geom.Point
	Type          PointType
	OrbitDuration float64
	MaxBank       float64
	Slop          float64
}

// Route is an ordered sequence of route points. Periodic routes wrap from the
// last point back to the first; one-way routes deactivate the platform at the
// end.
type Route struct {
	Points   []RoutePoint
	Periodic bool
}

// Validate rejects empty routes and nonsensical point parameters.
func (r Route) Validate() error {
	if len(r.Points) == 0 {
		return fmt.Errorf("route has no points")
	}
	for i, p := range r.Points {
		if p.Type == PointOrbit && p.OrbitDuration <= 0 {
			return fmt.Errorf("route point %d: orbit duration %v must be positive", i, p.OrbitDuration)
		}
		if p.MaxBank < 0 || p.MaxBank >= math.Pi/2 {
			return fmt.Errorf("route point %d: max bank %v out of range [0, π/2)", i, p.MaxBank)
		}
		if p.Slop < 0 {
			return fmt.Errorf("route point %d: slop %v is negative", i, p.Slop)
		}
	}
	return nil
}

// TotalDistance returns the ground length of the route in nmi, measured on
// the given earth model. Periodic routes include the closing leg.
func (r Route) TotalDistance(e geom.Earth) float64 {
	var total float64
	for i := 1; i < len(r.Points); i++ {
		total += e.GroundDistance(r.Points[i-1].Point, r.Points[i].Point)
	}
	if r.Periodic && len(r.Points) > 1 {
		total += e.GroundDistance(r.Points[len(r.Points)-1].Point, r.Points[0].Point)
	}
	return total
}
