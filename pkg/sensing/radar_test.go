package sensing

import (
	"testing"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// recordingAgent captures track reports in arrival order.
type recordingAgent struct {
	p      *platform.Platform
	order  []string
	active []platform.Track
}

func (a *recordingAgent) Platform() *platform.Platform { return a.p }

func (a *recordingAgent) ReportActiveTracks(t float64, tracks []platform.Track) {
	a.order = append(a.order, "active")
	a.active = tracks
}

func (a *recordingAgent) ReportDroppedTracks(t float64, tracks []platform.Track) {
	a.order = append(a.order, "dropped")
}

func newSite(ctx *platform.Context, name, side string, x float64) *platform.Platform {
	p := platform.New(name, side, geom.Point{X: x, Z: 10000}, platform.StatusActive)
	p.RCS = 1
	if err := ctx.World.Add(p); err != nil {
		panic(err)
	}
	return p
}

func TestJammedRangeExactReduction(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)

	carrier := newSite(ctx, "jam-bird", "blue", 20)
	j := NewJammer(ctx, carrier, "pod", 0.4)
	j.SetOn(0, true)

	if got := radar.JammedRange(); got != 30 {
		t.Errorf("jammed range = %v, want exactly 30 (50·0.6)", got)
	}
}

func TestJammingEffectivenessClampsAtOne(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)

	for i, eff := range []float64{0.7, 0.8} {
		carrier := newSite(ctx, "jam-bird", "blue", float64(10+i))
		NewJammer(ctx, carrier, "pod", eff).SetOn(0, true)
	}

	if got := radar.JammedRange(); got != 0 {
		t.Errorf("jammed range = %v, want 0 when summed effectiveness exceeds 1", got)
	}
}

func TestTrackNeedsTwoConsecutiveBlips(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)
	radar.SetActive(0, true)

	target := newSite(ctx, "striker", "blue", 20)

	scan := NewScanCycle(radar)
	scan.Perform(0)
	if radar.HasTrackOn(target) {
		t.Fatal("track confirmed after a single blip")
	}
	scan.Perform(5)
	if !radar.HasTrackOn(target) {
		t.Fatal("no track after two consecutive blips")
	}
	// Idempotent across further identical scans.
	scan.Perform(10)
	scan.Perform(15)
	if !radar.HasTrackOn(target) {
		t.Error("track lost across repeated identical scans")
	}
	if n := len(radar.Tracks()); n != 1 {
		t.Errorf("track count = %d, want 1", n)
	}
}

func TestBlipRequiresConsecutiveScans(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)
	radar.SetActive(0, true)

	target := newSite(ctx, "striker", "blue", 20)

	scan := NewScanCycle(radar)
	scan.Perform(0)
	// Target slips out of detection range for one scan.
	target.Location.X = 200
	scan.Perform(5)
	target.Location.X = 20
	scan.Perform(10)
	if radar.HasTrackOn(target) {
		t.Fatal("track confirmed from non-consecutive blips")
	}
	scan.Perform(15)
	if !radar.HasTrackOn(target) {
		t.Fatal("track should confirm once blips are consecutive again")
	}
}

func TestDeactivationDropsTracks(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	agent := &recordingAgent{p: site}
	site.Agent = agent

	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)
	radar.SetActive(0, true)
	target := newSite(ctx, "striker", "blue", 20)

	scan := NewScanCycle(radar)
	scan.Perform(0)
	scan.Perform(5)
	if !radar.HasTrackOn(target) {
		t.Fatal("expected a confirmed track before deactivation")
	}

	agent.order = nil
	radar.SetActive(10, false)
	if radar.HasTrackOn(target) {
		t.Error("deactivation must clear confirmed tracks")
	}
	if len(agent.order) != 1 || agent.order[0] != "dropped" {
		t.Errorf("report order = %v, want one dropped-tracks report", agent.order)
	}
}

func TestDroppedTracksReportedBeforeActive(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	agent := &recordingAgent{p: site}
	site.Agent = agent

	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)
	radar.SetActive(0, true)

	stayer := newSite(ctx, "stayer", "blue", 20)
	leaver := newSite(ctx, "leaver", "blue", 25)

	scan := NewScanCycle(radar)
	scan.Perform(0)
	scan.Perform(5)
	if !radar.HasTrackOn(stayer) || !radar.HasTrackOn(leaver) {
		t.Fatal("expected tracks on both targets")
	}

	leaver.Location.X = 400
	agent.order = nil
	scan.Perform(10)

	if len(agent.order) != 2 || agent.order[0] != "dropped" || agent.order[1] != "active" {
		t.Errorf("report order = %v, want [dropped active]", agent.order)
	}
	if len(agent.active) != 1 || agent.active[0].Target != stayer {
		t.Errorf("active tracks = %v, want just the remaining target", agent.active)
	}
}

func TestSilentRadarNeverDetects(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)
	target := newSite(ctx, "striker", "blue", 20)

	scan := NewScanCycle(radar)
	scan.Perform(0)
	scan.Perform(5)
	scan.Perform(10)

	if radar.HasTrackOn(target) {
		t.Error("silent radar produced a track")
	}
}

func TestZeroRCSTargetInvisible(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "acq", FunctionTA, 50, 5)
	radar.SetActive(0, true)

	target := newSite(ctx, "stealth", "blue", 5)
	target.RCS = 0

	scan := NewScanCycle(radar)
	scan.Perform(0)
	scan.Perform(5)

	if radar.HasTrackOn(target) {
		t.Error("zero-RCS target produced a track")
	}
}

func TestMainlobeGatesOnElevation(t *testing.T) {
	ctx := platform.NewContext(1)
	site := newSite(ctx, "sa-site", "red", 0)
	radar := NewRadar(ctx, site, "track", FunctionTT, 50, 5)
	// Fan covers elevation angles up to 0.1 rad.
	radar.Antenna = &Antenna{HalfBeamwidth: 0.05}
	radar.SetActive(0, true)

	// 5 nmi out and 30000 ft above the radar is about 0.78 rad elevation,
	// far above the fan.
	high := platform.New("striker-high", "blue", geom.Point{Y: 5, Z: 40000}, platform.StatusActive)
	high.RCS = 1
	// 20 nmi out co-altitude is essentially zero elevation, inside the fan.
	low := platform.New("striker-low", "blue", geom.Point{Y: 20, Z: 10000}, platform.StatusActive)
	low.RCS = 1
	for _, p := range []*platform.Platform{high, low} {
		if err := ctx.World.Add(p); err != nil {
			t.Fatal(err)
		}
	}

	scan := NewScanCycle(radar)
	scan.Perform(0)
	scan.Perform(5)
	if radar.HasTrackOn(high) {
		t.Error("target above the elevation fan produced a track")
	}
	if !radar.HasTrackOn(low) {
		t.Error("target inside the elevation fan should be tracked")
	}
}

func TestEmissionCycleTogglesOnDwells(t *testing.T) {
	ctx := platform.NewContext(3)
	site := newSite(ctx, "ew-site", "red", 0)
	radar := NewRadar(ctx, site, "search", FunctionEW, 100, 5)
	radar.SelfScheduled = true
	radar.EmitDwell = sim.Dwell{Min: 10, Mean: 10}
	radar.SilentDwell = sim.Dwell{Min: 5, Mean: 5}

	sched := sim.NewScheduler()
	sched.Register(NewEmissionCycle(radar))

	sched.Run(4)
	if radar.Emitting() {
		t.Fatal("radar should start silent")
	}
	sched.Run(6)
	if !radar.Emitting() {
		t.Fatal("silent dwell expired at t=5, radar should be emitting")
	}
	sched.Run(14)
	if !radar.Emitting() {
		t.Fatal("emit dwell still running at t=14")
	}
	sched.Run(16)
	if radar.Emitting() {
		t.Fatal("emit dwell expired at t=15, radar should be silent")
	}
	sched.Run(21)
	if !radar.Emitting() {
		t.Error("radar should toggle back on after the second silent dwell")
	}
}

func TestEmissionCycleSkipsCommandedRadars(t *testing.T) {
	ctx := platform.NewContext(3)
	site := newSite(ctx, "ttr-site", "red", 0)
	radar := NewRadar(ctx, site, "track", FunctionTT, 80, 5)

	sched := sim.NewScheduler()
	sched.Register(NewEmissionCycle(radar))
	sched.Run(100)

	if radar.Emitting() {
		t.Error("radar without self-scheduling toggled on its own")
	}
}

func TestMainlobeElevationLimit(t *testing.T) {
	a := &Antenna{HalfBeamwidth: 0.05}
	if !a.InMainlobe(0.1) {
		t.Error("elevation equal to twice the half-beamwidth should detect")
	}
	if a.InMainlobe(0.11) {
		t.Error("elevation above twice the half-beamwidth should not detect")
	}
	if !a.InMainlobe(0) {
		t.Error("zero elevation should detect")
	}
}
