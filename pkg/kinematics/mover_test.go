package kinematics

import (
	"math"
	"testing"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
)

func testContext() *platform.Context {
	return platform.NewContext(1)
}

func wp(x, y float64) RoutePoint {
	return RoutePoint{Point: geom.Point{X: x, Y: y, Z: 10000}}
}

func drive(m interface{ Perform(float64) }, from, to, tick float64) {
	for t := from; t <= to; t += tick {
		m.Perform(t)
	}
}

func TestRouteValidate(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		wantErr bool
	}{
		{"empty", Route{}, true},
		{"ok", Route{Points: []RoutePoint{wp(1, 0)}}, false},
		{"orbit without duration", Route{Points: []RoutePoint{{Type: PointOrbit}}}, true},
		{"negative slop", Route{Points: []RoutePoint{{Slop: -1}}}, true},
		{"bank out of range", Route{Points: []RoutePoint{{MaxBank: math.Pi}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.route.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMoverDeactivatesWhenMaxRangeExhausted(t *testing.T) {
	ctx := testContext()
	p := platform.New("striker", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 3600 // 1 nmi per second
	p.MaxRange = 5

	route := Route{Points: []RoutePoint{wp(10, 0), wp(20, 0), wp(30, 0)}}
	m, err := NewMover(ctx, p, route, 1)
	if err != nil {
		t.Fatalf("NewMover: %v", err)
	}

	drive(m, 0, 100, 1)

	if p.Status != platform.StatusInactive {
		t.Fatalf("status = %v, want INACTIVE", p.Status)
	}
	if p.Accrued != p.MaxRange {
		t.Errorf("accrued = %v, want %v", p.Accrued, p.MaxRange)
	}
	if p.Location.X >= 10 {
		t.Errorf("platform reached first waypoint (x=%v) despite max range %v", p.Location.X, p.MaxRange)
	}
	if got := m.State(); got != MoverInactive {
		t.Errorf("mover state = %v, want Inactive", got)
	}
}

func TestMoverZeroMaxRangeNeverMoves(t *testing.T) {
	ctx := testContext()
	p := platform.New("static", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 600
	p.MaxRange = 0

	m, err := NewMover(ctx, p, Route{Points: []RoutePoint{wp(10, 0)}}, 1)
	if err != nil {
		t.Fatalf("NewMover: %v", err)
	}

	drive(m, 0, 50, 1)

	if p.Location.X != 0 || p.Location.Y != 0 {
		t.Errorf("platform moved to (%v, %v), want origin", p.Location.X, p.Location.Y)
	}
	if p.Status != platform.StatusActive {
		t.Errorf("status = %v, want ACTIVE", p.Status)
	}
}

func TestMoverConsumesMultipleWaypointsWithLeftover(t *testing.T) {
	ctx := testContext()
	p := platform.New("fast", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 3600
	p.MaxRange = 1000

	route := Route{Points: []RoutePoint{wp(1, 0), wp(2, 0), wp(3, 0)}}
	m, err := NewMover(ctx, p, route, 4)
	if err != nil {
		t.Fatalf("NewMover: %v", err)
	}

	m.Perform(0)
	m.Perform(4) // 4 nmi in one tick, route is 3 nmi long

	if p.Location.X != 3 {
		t.Errorf("location.X = %v, want 3 (final waypoint)", p.Location.X)
	}
	if p.Status != platform.StatusInactive {
		t.Errorf("status = %v, want INACTIVE after one-way route end", p.Status)
	}
}

func TestMoverPeriodicRouteWraps(t *testing.T) {
	ctx := testContext()
	p := platform.New("patrol", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 3600
	p.MaxRange = 1000

	route := Route{Points: []RoutePoint{wp(1, 0), wp(1, 1), wp(0, 1), wp(0, 0)}, Periodic: true}
	m, err := NewMover(ctx, p, route, 1)
	if err != nil {
		t.Fatalf("NewMover: %v", err)
	}

	drive(m, 0, 10, 1) // 10 nmi over a 4 nmi loop

	if p.Status != platform.StatusActive {
		t.Fatalf("status = %v, want ACTIVE on periodic route", p.Status)
	}
	if p.Accrued != 10 {
		t.Errorf("accrued = %v, want 10", p.Accrued)
	}
}

func TestMoverOrbitSuspendsRouteMotion(t *testing.T) {
	ctx := testContext()
	p := platform.New("loiter", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 360 // 0.1 nmi per second
	p.MaxRange = 1000

	route := Route{Points: []RoutePoint{
		{Point: geom.Point{X: 1, Z: 10000}, Type: PointOrbit, OrbitDuration: 30},
		{Point: geom.Point{X: 5, Z: 10000}},
	}}
	m, err := NewMover(ctx, p, route, 1)
	if err != nil {
		t.Fatalf("NewMover: %v", err)
	}

	drive(m, 0, 20, 1) // reaches orbit point at t=10, orbits until t=40

	if got := m.State(); got != MoverOrbiting {
		t.Fatalf("state at t=20 = %v, want Orbiting", got)
	}

	drive(m, 21, 300, 1)

	if p.Status != platform.StatusInactive {
		t.Errorf("status = %v, want INACTIVE after route end", p.Status)
	}
}

func TestMaxHeadingDelta(t *testing.T) {
	// 300 knots at a 30 degree bank limit: g = 1/cos(30°),
	// Δψ = dt·32.12·√(g²−1)/1.68781/v.
	n := 1 / math.Cos(math.Pi/6)
	want := 32.12 * math.Sqrt(n*n-1) / 1.68781 / 300
	got := maxHeadingDelta(1, 300, math.Pi/6)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("maxHeadingDelta = %v, want %v", got, want)
	}
	if maxHeadingDelta(1, 0, math.Pi/6) != 0 {
		t.Error("zero speed should yield zero turn rate, not a division blowup")
	}
}

func TestOrbitRadius(t *testing.T) {
	vfps := 360 * 1.68781
	want := vfps * vfps / (32.12 * math.Tan(math.Pi/6)) / geom.FeetPerNmi
	got := orbitRadius(360, math.Pi/6)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("orbitRadius = %v, want %v", got, want)
	}
}

func TestBankedMoverRequiresBankLimit(t *testing.T) {
	ctx := testContext()
	p := platform.New("banked", "red", geom.Point{}, platform.StatusActive)

	_, err := NewBankedMover(ctx, p, Route{Points: []RoutePoint{wp(1, 0)}}, 1)
	if err == nil {
		t.Fatal("expected error for banked route point without a bank limit")
	}
}

func TestBankedMoverCapsTurnRate(t *testing.T) {
	ctx := testContext()
	p := platform.New("banked", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 300
	p.MaxRange = 1000
	p.Heading = 0 // due north, target due south

	route := Route{Points: []RoutePoint{{
		Point:   geom.Point{Y: -50, Z: 10000},
		MaxBank: math.Pi / 6,
		Slop:    0.5,
	}}}
	m, err := NewBankedMover(ctx, p, route, 1)
	if err != nil {
		t.Fatalf("NewBankedMover: %v", err)
	}

	wantTurn := maxHeadingDelta(1, 300, math.Pi/6)
	m.Perform(0)
	m.Perform(1)

	turned := math.Abs(angleError(p.Heading, 0))
	if math.Abs(turned-wantTurn) > 1e-9 {
		t.Errorf("heading change after one tick = %v, want cap %v", turned, wantTurn)
	}
}

func TestBankedMoverEventuallyReachesWaypoint(t *testing.T) {
	ctx := testContext()
	p := platform.New("banked", "red", geom.Point{Z: 10000}, platform.StatusActive)
	p.Speed = 300
	p.MaxRange = 10000
	p.Heading = math.Pi // due south, target due north

	route := Route{Points: []RoutePoint{{
		Point:   geom.Point{Y: 40, Z: 10000},
		MaxBank: math.Pi / 6,
		Slop:    0.5,
	}}}
	m, err := NewBankedMover(ctx, p, route, 1)
	if err != nil {
		t.Fatalf("NewBankedMover: %v", err)
	}

	drive(m, 0, 3600, 1)

	if p.Status != platform.StatusInactive {
		t.Fatalf("status = %v, want INACTIVE after one-way route end", p.Status)
	}
	if d := ctx.Earth.GroundDistance(p.Location, route.Points[0].Point); d > 0.5 {
		t.Errorf("final distance to waypoint = %v, want within slop 0.5", d)
	}
}

func TestAngleError(t *testing.T) {
	tests := []struct {
		desired, current, want float64
	}{
		{0, 0, 0},
		{math.Pi / 2, 0, math.Pi / 2},
		{0, math.Pi / 2, -math.Pi / 2},
		{0.1, 2*math.Pi - 0.1, 0.2},
	}
	for _, tt := range tests {
		got := angleError(tt.desired, tt.current)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("angleError(%v, %v) = %v, want %v", tt.desired, tt.current, got, tt.want)
		}
	}
}
