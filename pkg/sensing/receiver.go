package sensing

import (
	"sort"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// RangePolicy decides how far a receiver can detect a given emitter. The
// three variants mirror increasing fidelity: a fixed cookie-cutter range, a
// per-classification table, and the table refined by which antenna lobe the
// receiver sits in.
type RangePolicy interface {
	DetectionRange(rcv *Receiver, r *Radar) float64
}

// CookieCutter detects every emitter within one fixed range.
type CookieCutter struct {
	Range float64 // nmi
}

func (c CookieCutter) DetectionRange(*Receiver, *Radar) float64 { return c.Range }

// ClassificationTable looks detection range up by emitter classification,
// falling back to Default for unknown classes.
type ClassificationTable struct {
	Ranges  map[string]float64
	Default float64
}

func (c ClassificationTable) DetectionRange(_ *Receiver, r *Radar) float64 {
	if rng, ok := c.Ranges[r.Classification]; ok {
		return rng
	}
	return c.Default
}

// LobeAware refines a classification table by the emitter antenna lobe the
// receiver falls within, computed from the angular offset between the
// radar's boresight and the bearing to the receiver. Sidelobe factors scale
// the table range down.
type LobeAware struct {
	Table             ClassificationTable
	SideFactor        float64
	AverageSideFactor float64
}

func (l LobeAware) DetectionRange(rcv *Receiver, r *Radar) float64 {
	base := l.Table.DetectionRange(rcv, r)
	if r.Antenna == nil {
		return base
	}
	bearing := rcv.ctx.Earth.Azimuth(r.owner.Location, rcv.owner.Location)
	switch r.Antenna.LobeAt(bearing) {
	case LobeMain:
		return base
	case LobeSide:
		return base * l.SideFactor
	default:
		return base * l.AverageSideFactor
	}
}

// Receiver is a passive angle-of-arrival sensor: it scans every hostile
// emitting radar in the world and confirms a track per radar whose emission
// reaches it. A platform carrying two emitters yields two tracks.
// Detections require line of sight; tracks drop as soon as the emitter
// falls silent or out of range.
type Receiver struct {
	ctx   *platform.Context
	owner *platform.Platform
	name  string

	ScanPeriod float64
	Policy     RangePolicy

	tracks map[*Radar]platform.Track

	last    float64
	started bool
}

// NewReceiver attaches a passive receiver system to its owner.
func NewReceiver(ctx *platform.Context, owner *platform.Platform, name string, scanPeriod float64, policy RangePolicy) *Receiver {
	r := &Receiver{
		ctx:        ctx,
		owner:      owner,
		name:       name,
		ScanPeriod: scanPeriod,
		Policy:     policy,
		tracks:     make(map[*Radar]platform.Track),
	}
	owner.Attach(r)
	return r
}

func (r *Receiver) SystemName() string        { return r.name }
func (r *Receiver) Owner() *platform.Platform { return r.owner }

// HasTrackOn reports whether the receiver holds a track on any emitter
// carried by the target platform.
func (r *Receiver) HasTrackOn(target *platform.Platform) bool {
	if target == nil {
		return false
	}
	for radar := range r.tracks {
		if radar.owner == target {
			return true
		}
	}
	return false
}

// Tracks returns the confirmed emitter tracks ordered by carrier platform,
// then emitter name.
func (r *Receiver) Tracks() []platform.Track {
	radars := make([]*Radar, 0, len(r.tracks))
	for radar := range r.tracks {
		radars = append(radars, radar)
	}
	sort.Slice(radars, func(i, j int) bool {
		if radars[i].owner.Name != radars[j].owner.Name {
			return radars[i].owner.Name < radars[j].owner.Name
		}
		return radars[i].name < radars[j].name
	})
	out := make([]platform.Track, 0, len(radars))
	for _, radar := range radars {
		out = append(out, r.tracks[radar])
	}
	return out
}

func (r *Receiver) NextScheduledTime(now float64) float64 {
	if !r.owner.Alive() {
		return sim.Never()
	}
	if !r.started {
		return now
	}
	return r.last + r.ScanPeriod
}

func (r *Receiver) Perform(t float64) {
	r.started = true
	r.last = t
	r.scan(t)
}

func (r *Receiver) scan(t float64) {
	confirmed := make(map[*Radar]platform.Track)
	for _, p := range r.ctx.World.All() {
		if !p.Alive() || p.Side == r.owner.Side {
			continue
		}
		for _, s := range p.Systems {
			radar, ok := s.(*Radar)
			if !ok || !radar.Emitting() {
				continue
			}
			if !r.ctx.Terrain.HasLOS(p.Location, r.owner.Location, geom.EarthFactorEM) {
				continue
			}
			rng := r.Policy.DetectionRange(r, radar)
			if rng <= 0 {
				continue
			}
			if r.ctx.Earth.DistanceSq(p.Location, r.owner.Location) >= rng*rng {
				continue
			}
			if prev, held := r.tracks[radar]; held {
				confirmed[radar] = prev
			} else {
				confirmed[radar] = platform.Track{
					Target:   p,
					Sensor:   r,
					Function: "RWR",
					Time:     t,
				}
				r.ctx.Emit(sim.Event{
					Time:        t,
					Type:        sim.EventDetection,
					Subject:     r.owner.ID,
					SubjectName: r.owner.Name,
					Object:      p.ID,
					ObjectName:  p.Name,
					Message:     r.name + " detected " + radar.name,
				})
			}
		}
	}

	var dropped []platform.Track
	for radar, tr := range r.tracks {
		if _, still := confirmed[radar]; !still {
			dropped = append(dropped, tr)
		}
	}
	sort.Slice(dropped, func(i, j int) bool {
		return dropped[i].Target.Name < dropped[j].Target.Name
	})

	r.tracks = confirmed

	if len(dropped) > 0 {
		if tr, ok := platform.TrackReceiverOf(r.owner); ok {
			tr.ReportDroppedTracks(t, dropped)
		} else {
			platform.ForwardDroppedTracks(t, r.owner, dropped)
		}
	}
	if len(confirmed) > 0 {
		active := r.Tracks()
		if tr, ok := platform.TrackReceiverOf(r.owner); ok {
			tr.ReportActiveTracks(t, active)
		} else {
			platform.ForwardActiveTracks(t, r.owner, active)
		}
	}
}
