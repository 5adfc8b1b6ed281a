package geom

import "math"

// Horizon constants in nmi per √ft. The EM factor models the 4/3-earth radio
// horizon; the optical factor is the tighter true horizon. Downstream
// detection thresholds depend on these exact values.
const (
	EMHorizonFactor      = 1.23
	OpticalHorizonFactor = 1.06
)

// EarthFactorEM is the standard 4/3 effective earth radius multiplier for
// radio propagation.
const EarthFactorEM = 4.0 / 3.0

// HorizonLOS reports whether a and b are mutually visible over a smooth
// earth: unobstructed iff slant range < factor·(√z1 + √z2). Negative
// altitudes are treated as zero.
func HorizonLOS(e Earth, a, b Point, factor float64) bool {
	za := math.Sqrt(math.Max(a.Z, 0))
	zb := math.Sqrt(math.Max(b.Z, 0))
	return e.Distance(a, b) < factor*(za+zb)
}

// Terrain is the occlusion capability consumed by the sensing layer. The
// earth factor k matches Earth.Elevation. Implementations backed by an
// elevation grid plug in here; the default is the bare horizon test.
type Terrain interface {
	HasLOS(a, b Point, k float64) bool
}

// SmoothTerrain is the default Terrain: horizon test only, no occlusion.
type SmoothTerrain struct {
	Earth  Earth
	Factor float64
}

// NewSmoothTerrain returns a Terrain using the EM horizon over e.
func NewSmoothTerrain(e Earth) SmoothTerrain {
	return SmoothTerrain{Earth: e, Factor: EMHorizonFactor}
}

func (t SmoothTerrain) HasLOS(a, b Point, _ float64) bool {
	return HorizonLOS(t.Earth, a, b, t.Factor)
}
