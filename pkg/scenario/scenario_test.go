package scenario

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpr86/CHECKMATE-sub000/pkg/engage"
)

func sampleScenario() *Scenario {
	return &Scenario{
		Name:    "test-raid",
		EndTime: 1800,
		Seed:    7,
		Origin:  Origin{LatDeg: 36.25, LonDeg: -115.75},
		Sides:   []string{"red", "blue"},
		Battalions: []BattalionSpec{{
			Name:     "bn-1",
			Side:     "red",
			Location: PointSpec{X: 0, Y: 0},
			Dwells: StateDwellsSpec{
				Moving:   DwellSpec{Min: 300, Mean: 600},
				Hiding:   DwellSpec{Min: 600, Mean: 1200},
				Setup:    DwellSpec{Min: 120, Mean: 240},
				Deployed: DwellSpec{Min: 1800, Mean: 3600},
				Teardown: DwellSpec{Min: 120, Mean: 180},
			},
			HideProbability: 0.25,
			Relocation: RelocationSpec{
				Centroid:     PointSpec{X: 5, Y: 5},
				Radius:       10,
				CentroidBias: 0.5,
			},
			InitialState: "deployed",
			Sites: []SiteSpec{{
				Name:                "site-1",
				Offset:              PointSpec{X: 1, Y: 0},
				LethalRange:         20,
				EngagementThreshold: 3,
				ProbFullyGuided:     0.6,
				ProbSemiGuided:      0.3,
				FullyGuided:         ThresholdsSpec{Acquisition: 2.5, Tracking: 2.0, Firing: 1.5},
				SemiGuided:          ThresholdsSpec{Acquisition: 2.5, Firing: 2.0},
				Unguided:            ThresholdsSpec{Acquisition: 1.5, Firing: 1.2},
				TerminalTrackWindow: 10,
				ProcessPeriod:       2,
				Dwells: StateDwellsSpec{
					Moving:   DwellSpec{Min: 300, Mean: 600},
					Hiding:   DwellSpec{Min: 600, Mean: 1200},
					Setup:    DwellSpec{Min: 120, Mean: 240},
					Deployed: DwellSpec{Min: 1800, Mean: 3600},
					Teardown: DwellSpec{Min: 120, Mean: 180},
				},
				HideProbability: 0.25,
				TAR: &RadarSpec{
					Name:             "site-1-tar",
					Function:         "TA",
					Classification:   "FLAP LID A",
					RefRange:         60,
					ScanPeriod:       10,
					HalfBeamwidthDeg: 5,
					RotationRateDeg:  36,
				},
				TTR: &RadarSpec{
					Name:             "site-1-ttr",
					Function:         "TT",
					Classification:   "FLAP LID B",
					RefRange:         40,
					ScanPeriod:       2,
					HalfBeamwidthDeg: 2,
				},
				TELs: []TELSpec{{
					Name:        "tel-1",
					Offset:      PointSpec{X: 0.2, Y: 0.1},
					LethalRange: 25,
					SAMs: SAMSpec{
						Count:        4,
						Speed:        1800,
						MaxRange:     30,
						LethalRadius: 0.05,
						Pk:           0.7,
						Tick:         1,
					},
				}},
			}},
		}},
		Aircraft: []AircraftSpec{{
			Name:     "striker-1",
			Side:     "blue",
			Speed:    480,
			MaxRange: 2000,
			RCS:      4,
			Tick:     5,
			Route: RouteSpec{Points: []RoutePointSpec{
				{PointSpec: PointSpec{X: -80, Y: 0, Alt: 20000}},
				{PointSpec: PointSpec{X: -20, Y: 0, Alt: 20000}, Type: "orbit", OrbitS: 300},
				{PointSpec: PointSpec{X: 10, Y: 0, Alt: 15000}},
			}},
			Jammer:   &JammerSpec{Effectiveness: 0.3, On: true},
			Receiver: &ReceiverSpec{ScanPeriod: 5, Policy: "cookie", Range: 80},
		}},
		EWSites: []EWSiteSpec{{
			Name:     "ew-1",
			Side:     "red",
			Location: PointSpec{X: -5, Y: 10},
			ReportTo: "bn-1",
			Radar: RadarSpec{
				Name:       "ew-1-radar",
				Function:   "EW",
				RefRange:   120,
				ScanPeriod: 12,
			},
		}},
	}
}

func TestScenarioRoundTrip(t *testing.T) {
	s := sampleScenario()
	path := filepath.Join(t.TempDir(), "raid.yaml")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Name != s.Name || loaded.Seed != s.Seed {
		t.Errorf("identity fields changed: got %q/%d, want %q/%d", loaded.Name, loaded.Seed, s.Name, s.Seed)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"end_time", loaded.EndTime, s.EndTime},
		{"origin lat", loaded.Origin.LatDeg, s.Origin.LatDeg},
		{"site lethal range", loaded.Battalions[0].Sites[0].LethalRange, 20},
		{"deployed dwell mean", loaded.Battalions[0].Dwells.Deployed.Mean, 3600},
		{"tar half beamwidth", loaded.Battalions[0].Sites[0].TAR.HalfBeamwidthDeg, 5},
		{"sam pk", loaded.Battalions[0].Sites[0].TELs[0].SAMs.Pk, 0.7},
		{"orbit duration", loaded.Aircraft[0].Route.Points[1].OrbitS, 300},
		{"jammer effectiveness", loaded.Aircraft[0].Jammer.Effectiveness, 0.3},
		{"relocation bias", loaded.Battalions[0].Relocation.CentroidBias, 0.5},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestValidateNamesOffendingNode(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"bad side", func(s *Scenario) { s.Aircraft[0].Side = "green" }, "striker-1"},
		{"bad radar function", func(s *Scenario) { s.Battalions[0].Sites[0].TAR.Function = "FC" }, "site-1-tar"},
		{"negative lethal range", func(s *Scenario) { s.Battalions[0].Sites[0].LethalRange = -1 }, "site-1"},
		{"zero sam count", func(s *Scenario) { s.Battalions[0].Sites[0].TELs[0].SAMs.Count = 0 }, "tel-1"},
		{"bad dwell", func(s *Scenario) { s.Battalions[0].Dwells.Moving = DwellSpec{Min: 10, Mean: 5} }, "bn-1"},
		{"unknown report_to", func(s *Scenario) { s.EWSites[0].ReportTo = "bn-9" }, "ew-1"},
		{"empty route", func(s *Scenario) { s.Aircraft[0].Route.Points = nil }, "striker-1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := sampleScenario()
			c.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not name %q", err, c.want)
			}
		})
	}
}

func TestPlatformCount(t *testing.T) {
	s := sampleScenario()
	// battalion + site + tel + aircraft + ew site
	if got := s.PlatformCount(); got != 5 {
		t.Errorf("PlatformCount = %d, want 5", got)
	}
}

func TestBuildWiresWorld(t *testing.T) {
	s := sampleScenario()
	rt, err := s.Build(0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 5 scenario platforms plus 4 missiles.
	if got := len(rt.Ctx.World.All()); got != 9 {
		t.Errorf("world has %d platforms, want 9", got)
	}
	if rt.Ctx.Rand.Seed() != 7 {
		t.Errorf("seed = %d, want scenario seed 7", rt.Ctx.Rand.Seed())
	}
	if len(rt.Battalions) != 1 || rt.Battalions[0].State() != engage.StateDeployed {
		t.Fatalf("battalion not built deployed")
	}

	// The EW site reports up to the battalion.
	ew := rt.EWRadars[0]
	if ew.Owner().Superior != rt.Battalions[0].Platform() {
		t.Error("ew site not subordinate to battalion")
	}
	if !ew.Emitting() {
		t.Error("non-self-scheduled ew radar should start emitting")
	}

	// Seed argument wins over the scenario seed.
	rt2, err := s.Build(99)
	if err != nil {
		t.Fatalf("Build with seed: %v", err)
	}
	if rt2.Ctx.Rand.Seed() != 99 {
		t.Errorf("seed = %d, want override 99", rt2.Ctx.Rand.Seed())
	}
}

func TestBuildRunSmoke(t *testing.T) {
	s := sampleScenario()
	s.EndTime = 120
	rt, err := s.Build(0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	end := rt.Run()
	if end != 120 {
		t.Errorf("Run ended at %v, want 120", end)
	}
	// The striker moves east along its one-way route.
	ac := rt.Aircraft[0]
	if ac.Location.X <= -80 {
		t.Errorf("aircraft never moved: X = %v", ac.Location.X)
	}
}
