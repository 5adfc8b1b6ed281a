package sensing

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// Function is the radar's role in the kill chain.
type Function int

const (
	FunctionEW Function = iota // early warning search
	FunctionTA                 // target acquisition
	FunctionTT                 // target tracking / fire control
)

func (f Function) String() string {
	switch f {
	case FunctionEW:
		return "EW"
	case FunctionTA:
		return "TA"
	case FunctionTT:
		return "TT"
	default:
		return "UNKNOWN"
	}
}

// Radar is an emitting sensor owned by one platform. Two coupled cycles
// drive it: the emission machine (Emitting ⇄ Silent, externally commanded
// or dwell-scheduled) and the scan cycle, which only detects while emitting.
type Radar struct {
	ctx   *platform.Context
	owner *platform.Platform
	name  string

	Function       Function
	Classification string  // emitter class for receiver lookup tables
	RefRange       float64 // reference detection range, nmi
	ScanPeriod     float64 // seconds between scans
	Antenna        *Antenna

	// Dwell pairs for self-scheduled emission cycling. A radar with
	// SelfScheduled false only toggles on explicit SetActive commands.
	SelfScheduled bool
	EmitDwell     sim.Dwell
	SilentDwell   sim.Dwell

	emitting  bool
	prevBlips map[uuid.UUID]*platform.Platform
	tracks    map[uuid.UUID]platform.Track
	slaved    *platform.Platform
}

// NewRadar attaches a radar system to its owner platform.
func NewRadar(ctx *platform.Context, owner *platform.Platform, name string, fn Function, refRange, scanPeriod float64) *Radar {
	r := &Radar{
		ctx:        ctx,
		owner:      owner,
		name:       name,
		Function:   fn,
		RefRange:   refRange,
		ScanPeriod: scanPeriod,
		prevBlips:  make(map[uuid.UUID]*platform.Platform),
		tracks:     make(map[uuid.UUID]platform.Track),
	}
	owner.Attach(r)
	return r
}

func (r *Radar) SystemName() string        { return r.name }
func (r *Radar) Owner() *platform.Platform { return r.owner }

// Emitting reports whether the radar is radiating.
func (r *Radar) Emitting() bool { return r.emitting && r.owner.Alive() }

// SlaveTo points a tracking radar at the engaged target; each scan the
// boresight follows it. Pass nil to release.
func (r *Radar) SlaveTo(target *platform.Platform) { r.slaved = target }

// HasTrackOn reports whether the radar currently holds a confirmed track on
// the target.
func (r *Radar) HasTrackOn(target *platform.Platform) bool {
	if target == nil {
		return false
	}
	_, ok := r.tracks[target.ID]
	return ok
}

// Tracks returns the confirmed track set in a stable order.
func (r *Radar) Tracks() []platform.Track {
	out := make([]platform.Track, 0, len(r.tracks))
	for _, tr := range r.tracks {
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target.Name < out[j].Target.Name
	})
	return out
}

// SetActive commands the emission machine. Deactivation clears every
// confirmed track and reports the set as dropped before anything else
// happens at this timestamp.
func (r *Radar) SetActive(t float64, on bool) {
	if r.emitting == on {
		return
	}
	r.emitting = on
	state := "silent"
	if on {
		state = "emitting"
	}
	r.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventEmission,
		Subject:     r.owner.ID,
		SubjectName: r.owner.Name,
		Message:     r.name + " " + state,
	})
	if !on {
		dropped := r.Tracks()
		r.prevBlips = make(map[uuid.UUID]*platform.Platform)
		r.tracks = make(map[uuid.UUID]platform.Track)
		if len(dropped) > 0 {
			r.deliverDropped(t, dropped)
		}
	}
	r.ctx.Touch(t)
}

// JammedRange returns the detection range after jamming:
// reference·(1 − total effectiveness of radiating jammers with LOS).
func (r *Radar) JammedRange() float64 {
	return r.RefRange * (1 - jammingAgainst(r.ctx, r.owner))
}

// scan runs one detection sweep at time t.
func (r *Radar) scan(t float64) {
	if r.Antenna != nil {
		if r.Function == FunctionTT && r.slaved != nil {
			r.Antenna.SlaveTo(r.ctx.Earth.Azimuth(r.owner.Location, r.slaved.Location))
		} else {
			r.Antenna.Rotate(r.ScanPeriod)
		}
	}

	jammed := r.JammedRange()
	jammedSq := jammed * jammed

	blips := make(map[uuid.UUID]*platform.Platform)
	for _, target := range r.ctx.World.Hostiles(r.owner.Side) {
		if target.RCS <= 0 {
			continue
		}
		if !r.ctx.Terrain.HasLOS(r.owner.Location, target.Location, geom.EarthFactorEM) {
			continue
		}
		if r.Antenna != nil &&
			!r.Antenna.InMainlobe(r.ctx.Earth.Elevation(r.owner.Location, target.Location, geom.EarthFactorEM)) {
			continue
		}
		if r.ctx.Earth.DistanceSq(r.owner.Location, target.Location) < jammedSq*math.Sqrt(target.RCS) {
			blips[target.ID] = target
		}
	}

	// A track needs the same target blipped on two consecutive scans.
	confirmed := make(map[uuid.UUID]platform.Track)
	for id, target := range blips {
		if _, seen := r.prevBlips[id]; !seen {
			continue
		}
		if prev, held := r.tracks[id]; held {
			confirmed[id] = prev
			continue
		}
		confirmed[id] = platform.Track{
			Target:   target,
			Sensor:   r,
			Function: r.Function.String(),
			Time:     t,
		}
		r.ctx.Emit(sim.Event{
			Time:        t,
			Type:        sim.EventDetection,
			Subject:     r.owner.ID,
			SubjectName: r.owner.Name,
			Object:      target.ID,
			ObjectName:  target.Name,
			Message:     r.name + " track confirmed",
		})
	}

	var dropped []platform.Track
	for id, tr := range r.tracks {
		if _, still := confirmed[id]; !still {
			dropped = append(dropped, tr)
			r.ctx.Emit(sim.Event{
				Time:        t,
				Type:        sim.EventTrackDrop,
				Subject:     r.owner.ID,
				SubjectName: r.owner.Name,
				Object:      tr.Target.ID,
				ObjectName:  tr.Target.Name,
				Message:     r.name + " track dropped",
			})
		}
	}
	sort.Slice(dropped, func(i, j int) bool {
		return dropped[i].Target.Name < dropped[j].Target.Name
	})

	r.prevBlips = blips
	r.tracks = confirmed

	// Drops go up the chain before actives so assignment capacity frees
	// before new assignments are considered.
	if len(dropped) > 0 {
		r.deliverDropped(t, dropped)
	}
	if len(confirmed) > 0 {
		r.deliverActive(t, r.Tracks())
	}
}

func (r *Radar) deliverDropped(t float64, tracks []platform.Track) {
	if tr, ok := platform.TrackReceiverOf(r.owner); ok {
		tr.ReportDroppedTracks(t, tracks)
		return
	}
	platform.ForwardDroppedTracks(t, r.owner, tracks)
}

func (r *Radar) deliverActive(t float64, tracks []platform.Track) {
	if tr, ok := platform.TrackReceiverOf(r.owner); ok {
		tr.ReportActiveTracks(t, tracks)
		return
	}
	platform.ForwardActiveTracks(t, r.owner, tracks)
}

// EmissionCycle is the self-scheduled emission machine behavior. It samples
// the current state's dwell, then toggles when the dwell expires. Radars
// without self-scheduling never run it.
type EmissionCycle struct {
	r       *Radar
	next    float64
	started bool
}

// NewEmissionCycle returns the behavior driving r's dwell-based toggling.
func NewEmissionCycle(r *Radar) *EmissionCycle {
	return &EmissionCycle{r: r}
}

func (b *EmissionCycle) NextScheduledTime(now float64) float64 {
	if !b.r.SelfScheduled || !b.r.owner.Alive() {
		return sim.Never()
	}
	if !b.started {
		return now
	}
	return b.next
}

func (b *EmissionCycle) Perform(t float64) {
	if b.started {
		b.r.SetActive(t, !b.r.emitting)
	}
	b.started = true
	b.next = t + b.currentDwell().Sample(b.r.ctx.Rand)
}

func (b *EmissionCycle) currentDwell() sim.Dwell {
	if b.r.emitting {
		return b.r.EmitDwell
	}
	return b.r.SilentDwell
}

// ScanCycle ticks the radar's detection sweep every scan period. It keeps
// ticking while silent so the schedule stays aligned, but only emitting
// radars detect.
type ScanCycle struct {
	r       *Radar
	last    float64
	started bool
}

// NewScanCycle returns the behavior driving r's periodic sweep.
func NewScanCycle(r *Radar) *ScanCycle {
	return &ScanCycle{r: r}
}

func (b *ScanCycle) NextScheduledTime(now float64) float64 {
	if !b.r.owner.Alive() {
		return sim.Never()
	}
	if !b.started {
		return now
	}
	return b.last + b.r.ScanPeriod
}

func (b *ScanCycle) Perform(t float64) {
	b.started = true
	b.last = t
	if !b.r.Emitting() {
		return
	}
	b.r.scan(t)
}
