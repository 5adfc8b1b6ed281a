package sensing

import (
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
)

// Lobe classifies where an observer sits in an antenna's pattern.
type Lobe int

const (
	LobeMain Lobe = iota
	LobeSide
	LobeAverageSide
)

func (l Lobe) String() string {
	switch l {
	case LobeMain:
		return "MAIN"
	case LobeSide:
		return "SIDE"
	case LobeAverageSide:
		return "AVERAGE_SIDE"
	default:
		return "UNKNOWN"
	}
}

// Antenna is a directional radar antenna. EW and TA antennas circularly scan
// at RotationRate; TT antennas are slaved onto the engaged target each scan
// instead. A nil Antenna on a radar means omnidirectional coverage.
type Antenna struct {
	Boresight     float64 // radians clockwise from north
	HalfBeamwidth float64 // radians
	RotationRate  float64 // radians per second
}

// Rotate advances a circularly scanning boresight by dt seconds.
func (a *Antenna) Rotate(dt float64) {
	if a.RotationRate == 0 {
		return
	}
	a.Boresight = math.Mod(a.Boresight+a.RotationRate*dt, 2*math.Pi)
	if a.Boresight < 0 {
		a.Boresight += 2 * math.Pi
	}
}

// SlaveTo points the boresight at the given bearing.
func (a *Antenna) SlaveTo(bearing float64) {
	a.Boresight = bearing
}

// InMainlobe reports whether a target at the given elevation angle is
// detectable. The beam is a fan: the full azimuth circle is covered over a
// scan period, so only elevation gates detection, at or below twice the
// half-beamwidth.
func (a *Antenna) InMainlobe(elevation float64) bool {
	return elevation <= 2*a.HalfBeamwidth
}

// LobeAt classifies the antenna lobe containing the given bearing, as seen
// by a receiver: mainlobe within one half-beamwidth of boresight, first
// sidelobes within three, average sidelobes beyond.
func (a *Antenna) LobeAt(bearing float64) Lobe {
	off := math.Abs(geom.AngleDiff(bearing, a.Boresight))
	switch {
	case off <= a.HalfBeamwidth:
		return LobeMain
	case off <= 3*a.HalfBeamwidth:
		return LobeSide
	default:
		return LobeAverageSide
	}
}
