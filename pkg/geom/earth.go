package geom

import "math"

// Unit conversion constants shared by the kinematics and sensing layers.
const (
	FeetPerNmi     = 6076.11549
	EarthRadiusNmi = 3443.918
)

// Point is a simulation-space position. X and Y are nautical miles on the
// flat-earth model, or longitude/latitude in radians on the round-earth
// model. Z is altitude in feet in both models.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Earth provides the geometry primitives every other layer builds on. One
// implementation is selected per scenario and shared through the simulation
// context; implementations must be stateless.
type Earth interface {
	// GroundDistance returns the horizontal distance in nautical miles.
	GroundDistance(a, b Point) float64

	// Distance returns the true (slant) distance in nautical miles,
	// including the altitude difference.
	Distance(a, b Point) float64

	// DistanceSq returns the squared true distance. Cheaper than Distance
	// for range comparisons; callers square the threshold instead.
	DistanceSq(a, b Point) float64

	// Azimuth returns the bearing from a to b in radians, measured
	// clockwise from north in [0, 2π).
	Azimuth(a, b Point) float64

	// Elevation returns the elevation angle in radians of b as seen from a.
	// The earth factor k scales the effective earth radius for the
	// curvature droop term (4/3 for EM propagation, 1 for optical).
	Elevation(a, b Point, k float64) float64

	// Project returns the point at the given bearing (radians) and ground
	// distance (nmi) from a, keeping a's altitude.
	Project(a Point, bearing, dist float64) Point

	// Interpolate returns the point dist nautical miles along the ground
	// path from a toward b, with altitude interpolated linearly.
	Interpolate(a, b Point, dist float64) Point
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// AngleDiff returns the signed smallest rotation from b to a in (−π, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// elevationAngle is the shared slope-minus-droop form used by both earth
// models. ground is in nmi, dz in feet.
func elevationAngle(ground, dz, k float64) float64 {
	dzNmi := dz / FeetPerNmi
	if ground == 0 {
		if dzNmi > 0 {
			return math.Pi / 2
		}
		if dzNmi < 0 {
			return -math.Pi / 2
		}
		return 0
	}
	elev := math.Atan2(dzNmi, ground)
	if k > 0 {
		elev -= ground / (2 * k * EarthRadiusNmi)
	}
	return elev
}

// FlatEarth is the Cartesian earth model: X east, Y north, both in nautical
// miles.
type FlatEarth struct{}

func (FlatEarth) GroundDistance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func (e FlatEarth) Distance(a, b Point) float64 {
	return math.Sqrt(e.DistanceSq(a, b))
}

func (FlatEarth) DistanceSq(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := (b.Z - a.Z) / FeetPerNmi
	return dx*dx + dy*dy + dz*dz
}

func (FlatEarth) Azimuth(a, b Point) float64 {
	return normalizeAngle(math.Atan2(b.X-a.X, b.Y-a.Y))
}

func (e FlatEarth) Elevation(a, b Point, k float64) float64 {
	return elevationAngle(e.GroundDistance(a, b), b.Z-a.Z, k)
}

func (FlatEarth) Project(a Point, bearing, dist float64) Point {
	return Point{
		X: a.X + dist*math.Sin(bearing),
		Y: a.Y + dist*math.Cos(bearing),
		Z: a.Z,
	}
}

func (e FlatEarth) Interpolate(a, b Point, dist float64) Point {
	ground := e.GroundDistance(a, b)
	if ground == 0 {
		return Point{X: a.X, Y: a.Y, Z: b.Z}
	}
	f := dist / ground
	return Point{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
		Z: a.Z + (b.Z-a.Z)*f,
	}
}

// RoundEarth is the great-circle earth model: X longitude and Y latitude in
// radians. Slant distance treats the altitude difference as a straight
// offset from the ground arc, which is the simplification the sensing layer
// expects; this is not a true 3D chord.
type RoundEarth struct{}

func (RoundEarth) GroundDistance(a, b Point) float64 {
	dLat := b.Y - a.Y
	dLon := b.X - a.X
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Y)*math.Cos(b.Y)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusNmi * math.Asin(math.Min(1, math.Sqrt(s)))
}

func (e RoundEarth) Distance(a, b Point) float64 {
	return math.Sqrt(e.DistanceSq(a, b))
}

func (e RoundEarth) DistanceSq(a, b Point) float64 {
	g := e.GroundDistance(a, b)
	dz := (b.Z - a.Z) / FeetPerNmi
	return g*g + dz*dz
}

func (RoundEarth) Azimuth(a, b Point) float64 {
	dLon := b.X - a.X
	y := math.Sin(dLon) * math.Cos(b.Y)
	x := math.Cos(a.Y)*math.Sin(b.Y) - math.Sin(a.Y)*math.Cos(b.Y)*math.Cos(dLon)
	return normalizeAngle(math.Atan2(y, x))
}

func (e RoundEarth) Elevation(a, b Point, k float64) float64 {
	return elevationAngle(e.GroundDistance(a, b), b.Z-a.Z, k)
}

func (RoundEarth) Project(a Point, bearing, dist float64) Point {
	d := dist / EarthRadiusNmi
	lat := math.Asin(math.Sin(a.Y)*math.Cos(d) +
		math.Cos(a.Y)*math.Sin(d)*math.Cos(bearing))
	lon := a.X + math.Atan2(
		math.Sin(bearing)*math.Sin(d)*math.Cos(a.Y),
		math.Cos(d)-math.Sin(a.Y)*math.Sin(lat))
	return Point{X: lon, Y: lat, Z: a.Z}
}

func (e RoundEarth) Interpolate(a, b Point, dist float64) Point {
	ground := e.GroundDistance(a, b)
	if ground == 0 {
		return Point{X: a.X, Y: a.Y, Z: b.Z}
	}
	p := e.Project(a, e.Azimuth(a, b), dist)
	p.Z = a.Z + (b.Z-a.Z)*(dist/ground)
	return p
}
