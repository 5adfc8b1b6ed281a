package engage

import (
	"fmt"
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
)

// PointGenerator samples relocation destinations for uncertain-location
// batteries. Headings are biased toward a centroid so a battalion wanders
// its assigned area instead of drifting off the map.
type PointGenerator struct {
	Centroid geom.Point
	// Radius is the maximum hop distance per relocation, nmi.
	Radius float64
	// CentroidBias in [0,1] narrows the heading spread around the bearing
	// to the centroid; 0 is a uniform draw, 1 heads straight there.
	CentroidBias float64
}

// Validate fails fast on a nonsensical generator.
func (g PointGenerator) Validate() error {
	if g.Radius <= 0 {
		return fmt.Errorf("relocation radius %v must be positive", g.Radius)
	}
	if g.CentroidBias < 0 || g.CentroidBias > 1 {
		return fmt.Errorf("centroid bias %v must be in [0,1]", g.CentroidBias)
	}
	return nil
}

// Next samples the next destination from the given location. Two stream
// draws: hop distance, then heading. A platform sitting exactly on the
// centroid cannot bias its heading, so that branch draws uniformly.
func (g PointGenerator) Next(ctx *platform.Context, from geom.Point) geom.Point {
	dist := ctx.Rand.Range(0, g.Radius)
	var bearing float64
	if ctx.Earth.GroundDistance(from, g.Centroid) == 0 {
		bearing = ctx.Rand.Bearing()
	} else {
		toward := ctx.Earth.Azimuth(from, g.Centroid)
		spread := (1 - g.CentroidBias) * math.Pi
		bearing = toward + ctx.Rand.Range(-spread, spread)
	}
	dest := ctx.Earth.Project(from, bearing, dist)
	dest.Z = from.Z
	return dest
}
