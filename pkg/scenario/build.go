package scenario

import (
	"fmt"
	"strings"

	"github.com/jpr86/CHECKMATE-sub000/pkg/engage"
	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/kinematics"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sensing"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
	"github.com/jpr86/CHECKMATE-sub000/pkg/weapon"
)

type kinRoute = kinematics.Route

// Runtime is a scenario instantiated against a scheduler: the shared
// context, every behavior registered, ready to run.
type Runtime struct {
	Scenario *Scenario
	Ctx      *platform.Context
	Sched    *sim.Scheduler

	Battalions []*engage.SAMBattalion
	Aircraft   []*platform.Platform
	EWRadars   []*sensing.Radar
}

// Build instantiates the scenario. The seed argument wins over the
// scenario's own seed when nonzero.
func (s *Scenario) Build(seed int64) (*Runtime, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = s.Seed
	}
	ctx := platform.NewContext(seed)
	if s.Earth == "round" {
		earth := geom.RoundEarth{}
		ctx.Earth = earth
		ctx.Terrain = geom.NewSmoothTerrain(earth)
	}
	rt := &Runtime{Scenario: s, Ctx: ctx, Sched: sim.NewScheduler()}

	battalionsByName := make(map[string]*platform.Platform)
	for _, spec := range s.Battalions {
		bp, err := rt.buildBattalion(spec)
		if err != nil {
			return nil, err
		}
		battalionsByName[spec.Name] = bp
	}
	for _, spec := range s.Aircraft {
		if err := rt.buildAircraft(spec); err != nil {
			return nil, err
		}
	}
	for _, spec := range s.EWSites {
		if err := rt.buildEWSite(spec, battalionsByName); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// Run steps the scheduler to the scenario end time.
func (rt *Runtime) Run() float64 {
	rt.Ctx.InitializeObservers()
	return rt.Sched.Run(rt.Scenario.EndTime)
}

func (rt *Runtime) buildBattalion(spec BattalionSpec) (*platform.Platform, error) {
	loc := spec.Location.Point()
	bp := platform.New(spec.Name, spec.Side, loc, platform.StatusActive)
	if err := rt.Ctx.World.Add(bp); err != nil {
		return nil, err
	}
	bn, err := engage.NewSAMBattalion(rt.Ctx, bp, spec.Config())
	if err != nil {
		return nil, err
	}

	for _, siteSpec := range spec.Sites {
		if err := rt.buildSite(bp, loc, siteSpec); err != nil {
			return nil, err
		}
	}

	if strings.ToLower(spec.InitialState) == "random" {
		bn.SetInitialState(engage.RandomStartState(spec.Dwells.Dwells(), rt.Ctx.Rand))
	} else {
		state, err := ParseState(spec.InitialState)
		if err != nil {
			return nil, err
		}
		bn.SetInitialState(state)
	}

	bn.Register(rt.Sched)
	rt.Battalions = append(rt.Battalions, bn)
	return bp, nil
}

func (rt *Runtime) buildSite(bp *platform.Platform, origin geom.Point, spec SiteSpec) error {
	loc := offsetPoint(origin, spec.Offset)
	sp := platform.New(spec.Name, bp.Side, loc, platform.StatusActive)
	if err := rt.Ctx.World.Add(sp); err != nil {
		return err
	}
	if err := bp.AddSubordinate(sp); err != nil {
		return err
	}
	site, err := engage.NewSAMSite(rt.Ctx, sp, spec.SiteConfig())
	if err != nil {
		return err
	}

	var tar, ttr *sensing.Radar
	if spec.TAR != nil {
		tar = rt.buildRadar(sp, *spec.TAR)
	}
	if spec.TTR != nil {
		ttr = rt.buildRadar(sp, *spec.TTR)
	}
	site.AttachRadars(tar, ttr)

	for _, telSpec := range spec.TELs {
		if err := rt.buildTEL(sp, loc, telSpec); err != nil {
			return err
		}
	}

	if state, err := ParseState(spec.InitialState); err == nil {
		site.SetInitialState(state)
	}
	site.Register(rt.Sched)
	return nil
}

func (rt *Runtime) buildTEL(sp *platform.Platform, origin geom.Point, spec TELSpec) error {
	loc := offsetPoint(origin, spec.Offset)
	tp := platform.New(spec.Name, sp.Side, loc, platform.StatusActive)
	if err := rt.Ctx.World.Add(tp); err != nil {
		return err
	}
	if err := sp.AddSubordinate(tp); err != nil {
		return err
	}
	tel := engage.NewSAMTEL(rt.Ctx, tp, spec.LethalRange)
	for i := 0; i < spec.SAMs.Count; i++ {
		name := fmt.Sprintf("%s-sam-%d", spec.Name, i+1)
		sam, err := weapon.NewSAM(rt.Ctx, tp, name,
			spec.SAMs.Speed, spec.SAMs.MaxRange, spec.SAMs.LethalRadius, spec.SAMs.Tick,
			weapon.PkEvaluator{Pk: spec.SAMs.Pk}, tel)
		if err != nil {
			return err
		}
		tel.Arm(sam)
		rt.Sched.Register(sam)
	}
	return nil
}

func (rt *Runtime) buildRadar(owner *platform.Platform, spec RadarSpec) *sensing.Radar {
	var fn sensing.Function
	switch strings.ToUpper(spec.Function) {
	case "EW":
		fn = sensing.FunctionEW
	case "TA":
		fn = sensing.FunctionTA
	default:
		fn = sensing.FunctionTT
	}
	r := sensing.NewRadar(rt.Ctx, owner, spec.Name, fn, spec.RefRange, spec.ScanPeriod)
	r.Classification = spec.Classification
	if spec.HalfBeamwidthDeg > 0 {
		r.Antenna = &sensing.Antenna{
			Boresight:     degToRad(spec.BoresightDeg),
			HalfBeamwidth: degToRad(spec.HalfBeamwidthDeg),
			RotationRate:  degToRad(spec.RotationRateDeg),
		}
	}
	if spec.SelfScheduled {
		r.SelfScheduled = true
		r.EmitDwell = spec.EmitDwell.Dwell()
		r.SilentDwell = spec.SilentDwell.Dwell()
		rt.Sched.Register(sensing.NewEmissionCycle(r))
	}
	rt.Sched.Register(sensing.NewScanCycle(r))
	return r
}

func (rt *Runtime) buildAircraft(spec AircraftSpec) error {
	route, err := spec.buildRoute()
	if err != nil {
		return fmt.Errorf("aircraft %s: %w", spec.Name, err)
	}
	start := route.Points[0].Point
	ap := platform.New(spec.Name, spec.Side, start, platform.StatusActive)
	ap.Speed = spec.Speed
	ap.MaxRange = spec.MaxRange
	ap.RCS = spec.RCS
	if err := rt.Ctx.World.Add(ap); err != nil {
		return err
	}

	if spec.Banked {
		mover, err := kinematics.NewBankedMover(rt.Ctx, ap, route, spec.Tick)
		if err != nil {
			return fmt.Errorf("aircraft %s: %w", spec.Name, err)
		}
		rt.Sched.Register(mover)
	} else {
		mover, err := kinematics.NewMover(rt.Ctx, ap, route, spec.Tick)
		if err != nil {
			return fmt.Errorf("aircraft %s: %w", spec.Name, err)
		}
		rt.Sched.Register(mover)
	}

	if spec.Jammer != nil {
		j := sensing.NewJammer(rt.Ctx, ap, spec.Name+"-jammer", spec.Jammer.Effectiveness)
		if spec.Jammer.On {
			j.SetOn(0, true)
		}
	}
	if spec.Receiver != nil {
		rcv := sensing.NewReceiver(rt.Ctx, ap, spec.Name+"-rwr",
			spec.Receiver.ScanPeriod, receiverPolicy(*spec.Receiver))
		rt.Sched.Register(rcv)
	}

	rt.Aircraft = append(rt.Aircraft, ap)
	return nil
}

func receiverPolicy(spec ReceiverSpec) sensing.RangePolicy {
	switch spec.Policy {
	case "table":
		return sensing.ClassificationTable{Ranges: spec.Table, Default: spec.DefaultRange}
	case "lobe":
		return sensing.LobeAware{
			Table:             sensing.ClassificationTable{Ranges: spec.Table, Default: spec.DefaultRange},
			SideFactor:        spec.SideFactor,
			AverageSideFactor: spec.AverageSideFactor,
		}
	default:
		return sensing.CookieCutter{Range: spec.Range}
	}
}

func (rt *Runtime) buildEWSite(spec EWSiteSpec, battalions map[string]*platform.Platform) error {
	ep := platform.New(spec.Name, spec.Side, spec.Location.Point(), platform.StatusActive)
	if err := rt.Ctx.World.Add(ep); err != nil {
		return err
	}
	if spec.ReportTo != "" {
		if err := battalions[spec.ReportTo].AddSubordinate(ep); err != nil {
			return err
		}
	}
	r := rt.buildRadar(ep, spec.Radar)
	if !spec.Radar.SelfScheduled {
		r.SetActive(0, true)
	}
	rt.EWRadars = append(rt.EWRadars, r)
	return nil
}

func (p RoutePointSpec) routePoint() (kinematics.RoutePoint, error) {
	rp := kinematics.RoutePoint{
		Point:   p.PointSpec.Point(),
		MaxBank: degToRad(p.BankDeg),
		Slop:    p.SlopNmi,
	}
	switch strings.ToLower(p.Type) {
	case "", "waypoint":
		rp.Type = kinematics.PointWaypoint
	case "orbit":
		rp.Type = kinematics.PointOrbit
		rp.OrbitDuration = p.OrbitS
	default:
		return rp, fmt.Errorf("unknown point type %q", p.Type)
	}
	return rp, nil
}

func offsetPoint(origin geom.Point, off PointSpec) geom.Point {
	return geom.Point{X: origin.X + off.X, Y: origin.Y + off.Y, Z: off.Alt}
}
