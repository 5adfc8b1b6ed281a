package engage

import (
	"math"
	"testing"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/kinematics"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sensing"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
	"github.com/jpr86/CHECKMATE-sub000/pkg/weapon"
)

type captureSink struct {
	events []sim.Event
}

func (c *captureSink) Emit(ev sim.Event) { c.events = append(c.events, ev) }

func (c *captureSink) firstTime(typ sim.EventType, substr string) float64 {
	for _, ev := range c.events {
		if ev.Type != typ {
			continue
		}
		if substr == "" || contains(ev.Message, substr) {
			return ev.Time
		}
	}
	return -1
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// quietDwells parks every state on a dwell too long to expire in a test.
func quietDwells() StateDwells {
	long := sim.Dwell{Min: 1e9, Mean: 1e9}
	return StateDwells{Moving: long, Hiding: long, Setup: long, Deployed: long, Teardown: long}
}

func baseConfig() SiteConfig {
	return SiteConfig{
		LethalRange:         20,
		EngagementThreshold: 3,
		ProbFullyGuided:     1,
		FullyGuided:         ModeThresholds{Acquisition: 2.5, Tracking: 2.0, Firing: 1.5},
		SemiGuided:          ModeThresholds{Acquisition: 2.5},
		Unguided:            ModeThresholds{Firing: 1.2},
		TerminalTrackWindow: 10,
		ProcessPeriod:       1,
		Dwells:              quietDwells(),
	}
}

func newSitePlatform(ctx *platform.Context, name string) *platform.Platform {
	p := platform.New(name, "red", geom.Point{Z: 100}, platform.StatusActive)
	if err := ctx.World.Add(p); err != nil {
		panic(err)
	}
	return p
}

func TestEngageabilityMonotoneInRange(t *testing.T) {
	ctx := platform.NewContext(1)
	site, err := NewSAMSite(ctx, newSitePlatform(ctx, "sa-site"), baseConfig())
	if err != nil {
		t.Fatal(err)
	}

	prev := -1.0
	for _, x := range []float64{1, 5, 10, 20, 40, 80} {
		tgt := platform.New("tgt", "blue", geom.Point{X: x, Z: 100}, platform.StatusActive)
		eng := site.Engageability(tgt)
		if eng <= prev {
			t.Fatalf("engageability at range %v = %v, not increasing past %v", x, eng, prev)
		}
		prev = eng
	}
}

func TestFullyGuidedKillChain(t *testing.T) {
	ctx := platform.NewContext(7)
	sink := &captureSink{}
	ctx.Events = sink
	sched := sim.NewScheduler()

	sitePlat := newSitePlatform(ctx, "sa-site")
	site, err := NewSAMSite(ctx, sitePlat, baseConfig())
	if err != nil {
		t.Fatal(err)
	}

	tar := sensing.NewRadar(ctx, sitePlat, "acq", sensing.FunctionTA, 100, 1)
	ttr := sensing.NewRadar(ctx, sitePlat, "track", sensing.FunctionTT, 80, 1)
	site.AttachRadars(tar, ttr)

	telPlat := platform.New("tel-1", "red", geom.Point{Z: 100}, platform.StatusActive)
	if err := ctx.World.Add(telPlat); err != nil {
		t.Fatal(err)
	}
	if err := sitePlat.AddSubordinate(telPlat); err != nil {
		t.Fatal(err)
	}
	tel := NewSAMTEL(ctx, telPlat, 20)
	sam, err := weapon.NewSAM(ctx, telPlat, "sam-1", 3600, 50, 0.1, 1, weapon.PkEvaluator{Pk: 1}, tel)
	if err != nil {
		t.Fatal(err)
	}
	tel.Arm(sam)

	target := platform.New("striker", "blue", geom.Point{X: 70, Z: 10000}, platform.StatusActive)
	target.RCS = 1
	target.Speed = 1800
	target.MaxRange = 1000
	if err := ctx.World.Add(target); err != nil {
		t.Fatal(err)
	}
	mover, err := kinematics.NewMover(ctx, target, kinematics.Route{
		Points: []kinematics.RoutePoint{{Point: geom.Point{X: -50, Z: 10000}}},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}

	site.Register(sched)
	sched.Register(sensing.NewScanCycle(tar))
	sched.Register(sensing.NewScanCycle(ttr))
	sched.Register(mover)
	sched.Register(sam)

	if !site.AssignTarget(0, target) {
		t.Fatal("deployed site refused assignment")
	}

	sched.Run(600)

	if target.Status != platform.StatusDead {
		t.Fatalf("target status = %v, want DEAD", target.Status)
	}
	if got := site.State(); got == StateFiring || got == StateDeployed {
		t.Errorf("site state after outcome = %v, want torn down", got)
	}

	tTA := sink.firstTime(sim.EventEmission, "acq emitting")
	tTT := sink.firstTime(sim.EventEmission, "track emitting")
	tLaunch := sink.firstTime(sim.EventLaunch, "")
	tKill := sink.firstTime(sim.EventKill, "")
	if tTA < 0 || tTT < 0 || tLaunch < 0 || tKill < 0 {
		t.Fatalf("missing chain events: TA=%v TT=%v launch=%v kill=%v", tTA, tTT, tLaunch, tKill)
	}
	if !(tTA < tTT && tTT < tLaunch && tLaunch < tKill) {
		t.Errorf("kill chain out of order: TA=%v TT=%v launch=%v kill=%v", tTA, tTT, tLaunch, tKill)
	}
}

func TestSemiGuidedDelaysTerminalTracking(t *testing.T) {
	ctx := platform.NewContext(3)
	sitePlat := newSitePlatform(ctx, "sa-site")

	cfg := baseConfig()
	cfg.ProbFullyGuided = 0
	cfg.ProbSemiGuided = 1
	site, err := NewSAMSite(ctx, sitePlat, cfg)
	if err != nil {
		t.Fatal(err)
	}

	tar := sensing.NewRadar(ctx, sitePlat, "acq", sensing.FunctionTA, 100, 1)
	ttr := sensing.NewRadar(ctx, sitePlat, "track", sensing.FunctionTT, 80, 1)
	site.AttachRadars(tar, ttr)

	// Two launchers; the flyout estimate must come from the first one's
	// first missile even if the second ends up closer to the shot.
	telA := platform.New("tel-a", "red", geom.Point{Z: 100}, platform.StatusActive)
	telB := platform.New("tel-b", "red", geom.Point{X: 1, Z: 100}, platform.StatusActive)
	for _, tp := range []*platform.Platform{telA, telB} {
		if err := ctx.World.Add(tp); err != nil {
			t.Fatal(err)
		}
		if err := sitePlat.AddSubordinate(tp); err != nil {
			t.Fatal(err)
		}
	}
	slow := NewSAMTEL(ctx, telA, 20)
	slowSAM, err := weapon.NewSAM(ctx, telA, "sam-slow", 900, 50, 0.1, 1, weapon.PkEvaluator{Pk: 1}, slow)
	if err != nil {
		t.Fatal(err)
	}
	slow.Arm(slowSAM)
	fast := NewSAMTEL(ctx, telB, 20)
	fastSAM, err := weapon.NewSAM(ctx, telB, "sam-fast", 3600, 50, 0.1, 1, weapon.PkEvaluator{Pk: 1}, fast)
	if err != nil {
		t.Fatal(err)
	}
	fast.Arm(fastSAM)

	// Inside every launcher's envelope so the shot is not held back.
	target := platform.New("striker", "blue", geom.Point{X: 15, Z: 10000}, platform.StatusActive)
	target.RCS = 1
	if err := ctx.World.Add(target); err != nil {
		t.Fatal(err)
	}

	if !site.AssignTarget(0, target) {
		t.Fatal("assignment refused")
	}
	scan := sensing.NewScanCycle(tar)

	site.ProcessTracks(0) // selects target, turns acquisition radar on
	scan.Perform(0)
	scan.Perform(1)
	site.ProcessTracks(1) // two blips confirmed, ballistic launch

	e := site.Engaged()
	if e == nil || !e.Fired {
		t.Fatal("semi-guided engagement should launch on acquisition")
	}
	if site.State() != StateFiring {
		t.Fatalf("site state = %v, want Firing", site.State())
	}
	if ttr.Emitting() {
		t.Fatal("tracking radar must stay silent until the terminal window")
	}

	wantAt := 1 + slowSAM.FlyoutTime(telA.Location, target) - cfg.TerminalTrackWindow
	if math.Abs(e.ttActivateAt-wantAt) > 1e-9 {
		t.Errorf("terminal tracking cue at %v, want %v (first launcher's missile)", e.ttActivateAt, wantAt)
	}

	site.ProcessTracks(wantAt)
	if !ttr.Emitting() {
		t.Error("tracking radar should activate at the terminal window")
	}
}

func TestHomeOnJamRedirectsEngagement(t *testing.T) {
	ctx := platform.NewContext(7)
	sink := &captureSink{}
	ctx.Events = sink
	sched := sim.NewScheduler()

	sitePlat := newSitePlatform(ctx, "sa-site")
	site, err := NewSAMSite(ctx, sitePlat, baseConfig())
	if err != nil {
		t.Fatal(err)
	}

	tar := sensing.NewRadar(ctx, sitePlat, "acq", sensing.FunctionTA, 100, 1)
	ttr := sensing.NewRadar(ctx, sitePlat, "track", sensing.FunctionTT, 80, 1)
	site.AttachRadars(tar, ttr)

	telPlat := platform.New("tel-1", "red", geom.Point{Z: 100}, platform.StatusActive)
	if err := ctx.World.Add(telPlat); err != nil {
		t.Fatal(err)
	}
	if err := sitePlat.AddSubordinate(telPlat); err != nil {
		t.Fatal(err)
	}
	tel := NewSAMTEL(ctx, telPlat, 20)
	sam, err := weapon.NewSAM(ctx, telPlat, "sam-1", 3600, 50, 0.1, 1, weapon.PkEvaluator{Pk: 1}, tel)
	if err != nil {
		t.Fatal(err)
	}
	tel.Arm(sam)

	// Assigned target holds outside the firing threshold so the chain
	// stalls with the tracking radar emitting.
	striker := platform.New("striker", "blue", geom.Point{X: 35, Z: 10000}, platform.StatusActive)
	striker.RCS = 1
	if err := ctx.World.Add(striker); err != nil {
		t.Fatal(err)
	}

	// A second hostile inside the envelope radiates a jammer against the
	// emitting tracker; it never appears in the assigned list.
	carrier := platform.New("jammer-1", "blue", geom.Point{X: 15, Z: 10000}, platform.StatusActive)
	carrier.RCS = 1
	if err := ctx.World.Add(carrier); err != nil {
		t.Fatal(err)
	}
	jam := sensing.NewJammer(ctx, carrier, "pod", 0.4)
	jam.SetOn(0, true)

	site.Register(sched)
	sched.Register(sensing.NewScanCycle(tar))
	sched.Register(sensing.NewScanCycle(ttr))
	sched.Register(sam)

	if !site.AssignTarget(0, striker) {
		t.Fatal("deployed site refused assignment")
	}

	sched.Run(120)

	tRedirect := sink.firstTime(sim.EventAssignment, "home-on-jam redirect")
	tLaunch := sink.firstTime(sim.EventLaunch, "")
	if tRedirect < 0 {
		t.Fatal("engagement never redirected onto the jamming source")
	}
	if tLaunch < tRedirect {
		t.Fatalf("launch at %v precedes redirect at %v", tLaunch, tRedirect)
	}
	if sam.Mode() != weapon.HomeOnJam {
		t.Errorf("missile mode = %v, want HomeOnJam", sam.Mode())
	}
	if carrier.Status != platform.StatusDead {
		t.Errorf("jamming carrier status = %v, want DEAD", carrier.Status)
	}
	if striker.Status == platform.StatusDead {
		t.Error("original target should survive the redirected shot")
	}
}

func TestDisengageAfterEmissionForcesTeardown(t *testing.T) {
	ctx := platform.NewContext(5)
	sitePlat := newSitePlatform(ctx, "sa-site")
	site, err := NewSAMSite(ctx, sitePlat, baseConfig())
	if err != nil {
		t.Fatal(err)
	}
	tar := sensing.NewRadar(ctx, sitePlat, "acq", sensing.FunctionTA, 100, 1)
	site.AttachRadars(tar, nil)

	target := platform.New("striker", "blue", geom.Point{X: 40, Z: 10000}, platform.StatusActive)
	target.RCS = 1
	if err := ctx.World.Add(target); err != nil {
		t.Fatal(err)
	}

	site.AssignTarget(0, target)
	site.ProcessTracks(0) // select, acquisition radar on (eng = ~2 ≤ 2.5)
	if !tar.Emitting() {
		t.Fatal("acquisition radar should be emitting")
	}

	target.Location.X = 100 // receding beyond the engagement threshold
	site.ProcessTracks(1)

	if site.Engaged() != nil {
		t.Error("engagement should be abandoned on a receding target")
	}
	if site.State() != StateTeardown {
		t.Errorf("state = %v, want Teardown after emitting during an engagement", site.State())
	}
	if tar.Emitting() {
		t.Error("radars must deactivate on teardown")
	}
}

func TestSilentDisengageStaysDeployed(t *testing.T) {
	ctx := platform.NewContext(5)
	sitePlat := newSitePlatform(ctx, "sa-site")
	cfg := baseConfig()
	cfg.FullyGuided.Acquisition = 0.1 // radar never activates in this test
	site, err := NewSAMSite(ctx, sitePlat, cfg)
	if err != nil {
		t.Fatal(err)
	}

	target := platform.New("striker", "blue", geom.Point{X: 40, Z: 10000}, platform.StatusActive)
	target.RCS = 1
	if err := ctx.World.Add(target); err != nil {
		t.Fatal(err)
	}

	site.AssignTarget(0, target)
	site.ProcessTracks(0)
	if site.Engaged() == nil {
		t.Fatal("expected an engagement")
	}

	target.Location.X = 100
	site.ProcessTracks(1)

	if site.State() != StateDeployed {
		t.Errorf("state = %v, want Deployed after a silent disengage", site.State())
	}
}

func TestPriorityAssignPreemptsWithoutRequeue(t *testing.T) {
	ctx := platform.NewContext(5)
	sitePlat := newSitePlatform(ctx, "sa-site")
	site, err := NewSAMSite(ctx, sitePlat, baseConfig())
	if err != nil {
		t.Fatal(err)
	}

	first := platform.New("first", "blue", geom.Point{X: 40, Z: 10000}, platform.StatusActive)
	first.RCS = 1
	second := platform.New("second", "blue", geom.Point{X: 35, Z: 10000}, platform.StatusActive)
	second.RCS = 1
	for _, p := range []*platform.Platform{first, second} {
		if err := ctx.World.Add(p); err != nil {
			t.Fatal(err)
		}
	}

	site.AssignTarget(0, first)
	site.ProcessTracks(0)
	if e := site.Engaged(); e == nil || e.Target != first {
		t.Fatal("expected engagement on the first target")
	}

	site.PriorityAssignTarget(1, second)
	if site.Engaged() != nil {
		t.Fatal("priority assignment must clear the current engagement")
	}
	site.ProcessTracks(2)
	if e := site.Engaged(); e == nil || e.Target != second {
		t.Fatal("priority target should be engaged next")
	}
	// The preempted target was not re-queued.
	if site.isAssigned(first) {
		t.Error("preempted target must not be re-queued")
	}
}

func TestAssignTargetOnlyWhileDeployed(t *testing.T) {
	ctx := platform.NewContext(5)
	sitePlat := newSitePlatform(ctx, "sa-site")
	site, err := NewSAMSite(ctx, sitePlat, baseConfig())
	if err != nil {
		t.Fatal(err)
	}
	target := platform.New("striker", "blue", geom.Point{X: 40, Z: 10000}, platform.StatusActive)

	site.SetInitialState(StateMoving)
	if site.AssignTarget(0, target) {
		t.Error("a moving site must refuse assignments")
	}

	site.SetInitialState(StateFiring)
	if site.AssignTarget(0, target) {
		t.Error("a firing site must refuse assignments")
	}

	site.SetInitialState(StateDeployed)
	if !site.AssignTarget(0, target) {
		t.Error("a deployed site must accept assignments")
	}
}

func TestRandomStartState(t *testing.T) {
	rng := sim.NewStream(1)

	if got := RandomStartState(StateDwells{}, rng); got != StateDeployed {
		t.Errorf("zero cycle time start = %v, want Deployed", got)
	}

	d := StateDwells{
		Moving:   sim.Dwell{Min: 10, Mean: 10},
		Deployed: sim.Dwell{Min: 90, Mean: 90},
	}
	counts := map[SiteState]int{}
	for i := 0; i < 1000; i++ {
		counts[RandomStartState(d, rng)]++
	}
	if counts[StateDeployed] < counts[StateMoving] {
		t.Errorf("draw should favor the longer state: %v", counts)
	}
	if counts[StateHiding]+counts[StateSetup]+counts[StateTeardown] != 0 {
		t.Errorf("states with zero mean dwell were drawn: %v", counts)
	}
}

func TestPointGeneratorZeroDistanceBranch(t *testing.T) {
	ctx := platform.NewContext(9)
	g := PointGenerator{Centroid: geom.Point{X: 5, Y: 5}, Radius: 10, CentroidBias: 0.5}

	// Sitting exactly on the centroid: heading cannot be biased, but the
	// draw must stay finite and within the hop radius.
	for i := 0; i < 100; i++ {
		p := g.Next(ctx, geom.Point{X: 5, Y: 5})
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			t.Fatal("NaN destination from the zero-distance branch")
		}
		if d := ctx.Earth.GroundDistance(geom.Point{X: 5, Y: 5}, p); d > 10 {
			t.Fatalf("hop distance %v exceeds radius", d)
		}
	}
}
