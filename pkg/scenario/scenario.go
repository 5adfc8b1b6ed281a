package scenario

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jpr86/CHECKMATE-sub000/pkg/engage"
	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// Scenario is the on-disk description of one simulation run: the force
// laydown, every platform's systems and numeric knobs, and run control.
// Angles are degrees in the file and radians in memory; distances are nmi,
// altitudes feet, speeds knots, times seconds.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	EndTime     float64 `yaml:"end_time_s"`
	Seed        int64   `yaml:"seed,omitempty"`
	Earth       string  `yaml:"earth,omitempty"` // flat (default) or round

	// Origin anchors the flat grid for geodetic export.
	Origin Origin `yaml:"origin,omitempty"`

	Sides      []string        `yaml:"sides"`
	Battalions []BattalionSpec `yaml:"battalions,omitempty"`
	Aircraft   []AircraftSpec  `yaml:"aircraft,omitempty"`
	EWSites    []EWSiteSpec    `yaml:"ew_sites,omitempty"`
}

// Origin is the geodetic location of grid point (0,0).
type Origin struct {
	LatDeg float64 `yaml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg"`
}

// PointSpec is a grid position.
type PointSpec struct {
	X   float64 `yaml:"x_nmi"`
	Y   float64 `yaml:"y_nmi"`
	Alt float64 `yaml:"alt_ft,omitempty"`
}

// Point converts to the internal representation.
func (p PointSpec) Point() geom.Point { return geom.Point{X: p.X, Y: p.Y, Z: p.Alt} }

// DwellSpec is a min/mean dwell pair in seconds.
type DwellSpec struct {
	Min  float64 `yaml:"min_s"`
	Mean float64 `yaml:"mean_s"`
}

// Dwell converts to the internal sampler.
func (d DwellSpec) Dwell() sim.Dwell { return sim.Dwell{Min: d.Min, Mean: d.Mean} }

// StateDwellsSpec holds the dwell pair of every lifecycle state.
type StateDwellsSpec struct {
	Moving   DwellSpec `yaml:"moving"`
	Hiding   DwellSpec `yaml:"hiding"`
	Setup    DwellSpec `yaml:"setup"`
	Deployed DwellSpec `yaml:"deployed"`
	Teardown DwellSpec `yaml:"teardown"`
}

// Dwells converts to the engage representation.
func (s StateDwellsSpec) Dwells() engage.StateDwells {
	return engage.StateDwells{
		Moving:   s.Moving.Dwell(),
		Hiding:   s.Hiding.Dwell(),
		Setup:    s.Setup.Dwell(),
		Deployed: s.Deployed.Dwell(),
		Teardown: s.Teardown.Dwell(),
	}
}

// RadarSpec configures one radar.
type RadarSpec struct {
	Name             string  `yaml:"name"`
	Function         string  `yaml:"function"` // EW, TA, TT
	Classification   string  `yaml:"classification,omitempty"`
	RefRange         float64 `yaml:"ref_range_nmi"`
	ScanPeriod       float64 `yaml:"scan_period_s"`
	BoresightDeg     float64 `yaml:"boresight_deg,omitempty"`
	HalfBeamwidthDeg float64 `yaml:"half_beamwidth_deg,omitempty"`
	RotationRateDeg  float64 `yaml:"rotation_rate_deg_s,omitempty"`

	// SelfScheduled radars toggle emission on their own dwell pairs
	// instead of waiting for site state commands.
	SelfScheduled bool      `yaml:"self_scheduled,omitempty"`
	EmitDwell     DwellSpec `yaml:"emit_dwell,omitempty"`
	SilentDwell   DwellSpec `yaml:"silent_dwell,omitempty"`
}

func (r RadarSpec) validate() error {
	switch strings.ToUpper(r.Function) {
	case "EW", "TA", "TT":
	default:
		return fmt.Errorf("radar %s: function %q must be EW, TA or TT", r.Name, r.Function)
	}
	if r.RefRange <= 0 {
		return fmt.Errorf("radar %s: ref_range_nmi %v must be positive", r.Name, r.RefRange)
	}
	if r.ScanPeriod <= 0 {
		return fmt.Errorf("radar %s: scan_period_s %v must be positive", r.Name, r.ScanPeriod)
	}
	if r.HalfBeamwidthDeg < 0 || r.HalfBeamwidthDeg > 180 {
		return fmt.Errorf("radar %s: half_beamwidth_deg %v must be in [0,180]", r.Name, r.HalfBeamwidthDeg)
	}
	if r.SelfScheduled {
		if err := r.EmitDwell.Dwell().Validate(); err != nil {
			return fmt.Errorf("radar %s: emit_dwell: %w", r.Name, err)
		}
		if err := r.SilentDwell.Dwell().Validate(); err != nil {
			return fmt.Errorf("radar %s: silent_dwell: %w", r.Name, err)
		}
	}
	return nil
}

// SAMSpec configures the missiles on one launcher.
type SAMSpec struct {
	Count        int     `yaml:"count"`
	Speed        float64 `yaml:"speed_kts"`
	MaxRange     float64 `yaml:"max_range_nmi"`
	LethalRadius float64 `yaml:"lethal_radius_nmi"`
	Pk           float64 `yaml:"pk"`
	Tick         float64 `yaml:"tick_s"`
}

func (s SAMSpec) validate(owner string) error {
	if s.Count <= 0 {
		return fmt.Errorf("tel %s: sam count %d must be positive", owner, s.Count)
	}
	if s.Speed <= 0 {
		return fmt.Errorf("tel %s: sam speed_kts %v must be positive", owner, s.Speed)
	}
	if s.MaxRange <= 0 {
		return fmt.Errorf("tel %s: sam max_range_nmi %v must be positive", owner, s.MaxRange)
	}
	if s.Pk < 0 || s.Pk > 1 {
		return fmt.Errorf("tel %s: sam pk %v must be in [0,1]", owner, s.Pk)
	}
	if s.Tick <= 0 {
		return fmt.Errorf("tel %s: sam tick_s %v must be positive", owner, s.Tick)
	}
	return nil
}

// TELSpec configures one launcher under a site.
type TELSpec struct {
	Name        string    `yaml:"name"`
	Offset      PointSpec `yaml:"offset"`
	LethalRange float64   `yaml:"lethal_range_nmi"`
	SAMs        SAMSpec   `yaml:"sams"`
}

// ThresholdsSpec is the per-guidance-mode engageability ladder.
type ThresholdsSpec struct {
	Acquisition float64 `yaml:"acquisition"`
	Tracking    float64 `yaml:"tracking,omitempty"`
	Firing      float64 `yaml:"firing"`
}

func (t ThresholdsSpec) thresholds() engage.ModeThresholds {
	return engage.ModeThresholds{Acquisition: t.Acquisition, Tracking: t.Tracking, Firing: t.Firing}
}

// SiteSpec configures one SAM site under a battalion.
type SiteSpec struct {
	Name   string    `yaml:"name"`
	Offset PointSpec `yaml:"offset"`

	LethalRange         float64 `yaml:"lethal_range_nmi"`
	EngagementThreshold float64 `yaml:"engagement_threshold"`
	ProbFullyGuided     float64 `yaml:"prob_fully_guided"`
	ProbSemiGuided      float64 `yaml:"prob_semi_guided"`

	FullyGuided ThresholdsSpec `yaml:"fully_guided"`
	SemiGuided  ThresholdsSpec `yaml:"semi_guided"`
	Unguided    ThresholdsSpec `yaml:"unguided"`

	TerminalTrackWindow float64 `yaml:"terminal_track_window_s"`
	ProcessPeriod       float64 `yaml:"process_period_s"`

	Dwells          StateDwellsSpec `yaml:"dwells"`
	HideProbability float64         `yaml:"hide_probability"`
	MaxAssigned     int             `yaml:"max_assigned,omitempty"`
	InitialState    string          `yaml:"initial_state,omitempty"`

	TAR  *RadarSpec `yaml:"tar,omitempty"`
	TTR  *RadarSpec `yaml:"ttr,omitempty"`
	TELs []TELSpec  `yaml:"tels"`
}

// SiteConfig converts to the engage representation.
func (s SiteSpec) SiteConfig() engage.SiteConfig {
	return engage.SiteConfig{
		LethalRange:         s.LethalRange,
		EngagementThreshold: s.EngagementThreshold,
		ProbFullyGuided:     s.ProbFullyGuided,
		ProbSemiGuided:      s.ProbSemiGuided,
		FullyGuided:         s.FullyGuided.thresholds(),
		SemiGuided:          s.SemiGuided.thresholds(),
		Unguided:            s.Unguided.thresholds(),
		TerminalTrackWindow: s.TerminalTrackWindow,
		ProcessPeriod:       s.ProcessPeriod,
		Dwells:              s.Dwells.Dwells(),
		HideProbability:     s.HideProbability,
		MaxAssigned:         s.MaxAssigned,
	}
}

func (s SiteSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("site has no name")
	}
	if err := s.SiteConfig().Validate(); err != nil {
		return fmt.Errorf("site %s: %w", s.Name, err)
	}
	if s.TAR != nil {
		if err := s.TAR.validate(); err != nil {
			return fmt.Errorf("site %s: tar: %w", s.Name, err)
		}
	}
	if s.TTR != nil {
		if err := s.TTR.validate(); err != nil {
			return fmt.Errorf("site %s: ttr: %w", s.Name, err)
		}
	}
	if len(s.TELs) == 0 {
		return fmt.Errorf("site %s: no tels", s.Name)
	}
	for _, tel := range s.TELs {
		if tel.Name == "" {
			return fmt.Errorf("site %s: tel has no name", s.Name)
		}
		if tel.LethalRange <= 0 {
			return fmt.Errorf("tel %s: lethal_range_nmi %v must be positive", tel.Name, tel.LethalRange)
		}
		if err := tel.SAMs.validate(tel.Name); err != nil {
			return fmt.Errorf("site %s: %w", s.Name, err)
		}
	}
	if _, err := ParseState(s.InitialState); err != nil {
		return fmt.Errorf("site %s: %w", s.Name, err)
	}
	return nil
}

// RelocationSpec configures where a battalion hops when it moves.
type RelocationSpec struct {
	Centroid     PointSpec `yaml:"centroid"`
	Radius       float64   `yaml:"radius_nmi"`
	CentroidBias float64   `yaml:"centroid_bias"`
}

// Generator converts to the engage representation.
func (r RelocationSpec) Generator() engage.PointGenerator {
	return engage.PointGenerator{
		Centroid:     r.Centroid.Point(),
		Radius:       r.Radius,
		CentroidBias: r.CentroidBias,
	}
}

// BattalionSpec configures one SAM battalion and its sites.
type BattalionSpec struct {
	Name     string    `yaml:"name"`
	Side     string    `yaml:"side"`
	Location PointSpec `yaml:"location"`

	Dwells          StateDwellsSpec `yaml:"dwells"`
	HideProbability float64         `yaml:"hide_probability"`
	Relocation      RelocationSpec  `yaml:"relocation"`
	InitialState    string          `yaml:"initial_state,omitempty"` // state name or "random"

	Sites []SiteSpec `yaml:"sites"`
}

// Config converts to the engage representation.
func (b BattalionSpec) Config() engage.BattalionConfig {
	return engage.BattalionConfig{
		Dwells:          b.Dwells.Dwells(),
		HideProbability: b.HideProbability,
		Relocation:      b.Relocation.Generator(),
	}
}

func (b BattalionSpec) validate(sides map[string]bool) error {
	if b.Name == "" {
		return fmt.Errorf("battalion has no name")
	}
	if !sides[b.Side] {
		return fmt.Errorf("battalion %s: side %q not declared", b.Name, b.Side)
	}
	if err := b.Config().Validate(); err != nil {
		return fmt.Errorf("battalion %s: %w", b.Name, err)
	}
	if b.InitialState != "random" {
		if _, err := ParseState(b.InitialState); err != nil {
			return fmt.Errorf("battalion %s: %w", b.Name, err)
		}
	}
	if len(b.Sites) == 0 {
		return fmt.Errorf("battalion %s: no sites", b.Name)
	}
	for _, s := range b.Sites {
		if err := s.validate(); err != nil {
			return fmt.Errorf("battalion %s: %w", b.Name, err)
		}
	}
	return nil
}

// RoutePointSpec is one scenario route point.
type RoutePointSpec struct {
	PointSpec `yaml:",inline"`
	Type      string  `yaml:"type,omitempty"` // waypoint (default) or orbit
	OrbitS    float64 `yaml:"orbit_s,omitempty"`
	BankDeg   float64 `yaml:"max_bank_deg,omitempty"`
	SlopNmi   float64 `yaml:"slop_nmi,omitempty"`
}

// RouteSpec is an aircraft route.
type RouteSpec struct {
	Periodic bool             `yaml:"periodic,omitempty"`
	Points   []RoutePointSpec `yaml:"points"`
}

// JammerSpec configures a noise jammer.
type JammerSpec struct {
	Effectiveness float64 `yaml:"effectiveness"`
	On            bool    `yaml:"on"`
}

// ReceiverSpec configures a warning receiver.
type ReceiverSpec struct {
	ScanPeriod float64 `yaml:"scan_period_s"`
	Policy     string  `yaml:"policy"` // cookie, table, lobe

	Range             float64            `yaml:"range_nmi,omitempty"`         // cookie
	Table             map[string]float64 `yaml:"table,omitempty"`             // table, lobe
	DefaultRange      float64            `yaml:"default_range_nmi,omitempty"` // table, lobe
	SideFactor        float64            `yaml:"side_factor,omitempty"`       // lobe
	AverageSideFactor float64            `yaml:"avg_side_factor,omitempty"`   // lobe
}

// AircraftSpec configures one mobile air platform.
type AircraftSpec struct {
	Name     string  `yaml:"name"`
	Side     string  `yaml:"side"`
	Speed    float64 `yaml:"speed_kts"`
	MaxRange float64 `yaml:"max_range_nmi"`
	RCS      float64 `yaml:"rcs_m2"`
	Tick     float64 `yaml:"tick_s"`
	Banked   bool    `yaml:"banked,omitempty"`

	Route    RouteSpec     `yaml:"route"`
	Jammer   *JammerSpec   `yaml:"jammer,omitempty"`
	Receiver *ReceiverSpec `yaml:"receiver,omitempty"`
}

func (a AircraftSpec) validate(sides map[string]bool) error {
	if a.Name == "" {
		return fmt.Errorf("aircraft has no name")
	}
	if !sides[a.Side] {
		return fmt.Errorf("aircraft %s: side %q not declared", a.Name, a.Side)
	}
	if a.Speed <= 0 {
		return fmt.Errorf("aircraft %s: speed_kts %v must be positive", a.Name, a.Speed)
	}
	if a.MaxRange < 0 {
		return fmt.Errorf("aircraft %s: max_range_nmi %v is negative", a.Name, a.MaxRange)
	}
	if a.RCS < 0 {
		return fmt.Errorf("aircraft %s: rcs_m2 %v is negative", a.Name, a.RCS)
	}
	if a.Tick <= 0 {
		return fmt.Errorf("aircraft %s: tick_s %v must be positive", a.Name, a.Tick)
	}
	route, err := a.buildRoute()
	if err != nil {
		return fmt.Errorf("aircraft %s: %w", a.Name, err)
	}
	if err := route.Validate(); err != nil {
		return fmt.Errorf("aircraft %s: route: %w", a.Name, err)
	}
	if a.Banked {
		for i, p := range route.Points {
			if p.MaxBank <= 0 {
				return fmt.Errorf("aircraft %s: route point %d needs max_bank_deg for banked flight", a.Name, i)
			}
		}
	}
	if a.Jammer != nil && (a.Jammer.Effectiveness < 0 || a.Jammer.Effectiveness > 1) {
		return fmt.Errorf("aircraft %s: jammer effectiveness %v must be in [0,1]", a.Name, a.Jammer.Effectiveness)
	}
	if a.Receiver != nil {
		if a.Receiver.ScanPeriod <= 0 {
			return fmt.Errorf("aircraft %s: receiver scan_period_s %v must be positive", a.Name, a.Receiver.ScanPeriod)
		}
		switch a.Receiver.Policy {
		case "cookie", "table", "lobe":
		default:
			return fmt.Errorf("aircraft %s: receiver policy %q must be cookie, table or lobe", a.Name, a.Receiver.Policy)
		}
	}
	return nil
}

func (a AircraftSpec) buildRoute() (kinRoute, error) {
	var route kinRoute
	route.Periodic = a.Route.Periodic
	for i, p := range a.Route.Points {
		rp, err := p.routePoint()
		if err != nil {
			return route, fmt.Errorf("route point %d: %w", i, err)
		}
		route.Points = append(route.Points, rp)
	}
	return route, nil
}

// EWSiteSpec configures a standalone early-warning radar site. Tracks are
// forwarded up to the named battalion for target assignment.
type EWSiteSpec struct {
	Name     string    `yaml:"name"`
	Side     string    `yaml:"side"`
	Location PointSpec `yaml:"location"`
	ReportTo string    `yaml:"report_to,omitempty"`
	Radar    RadarSpec `yaml:"radar"`
}

func (e EWSiteSpec) validate(sides map[string]bool, battalions map[string]bool) error {
	if e.Name == "" {
		return fmt.Errorf("ew site has no name")
	}
	if !sides[e.Side] {
		return fmt.Errorf("ew site %s: side %q not declared", e.Name, e.Side)
	}
	if e.ReportTo != "" && !battalions[e.ReportTo] {
		return fmt.Errorf("ew site %s: report_to %q names no battalion", e.Name, e.ReportTo)
	}
	if err := e.Radar.validate(); err != nil {
		return fmt.Errorf("ew site %s: %w", e.Name, err)
	}
	return nil
}

// Validate checks the whole scenario, naming the offending node in errors.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.EndTime <= 0 {
		return fmt.Errorf("scenario %s: end_time_s %v must be positive", s.Name, s.EndTime)
	}
	switch s.Earth {
	case "", "flat", "round":
	default:
		return fmt.Errorf("scenario %s: earth %q must be flat or round", s.Name, s.Earth)
	}
	if len(s.Sides) < 2 {
		return fmt.Errorf("scenario %s: needs at least two sides", s.Name)
	}
	sides := make(map[string]bool, len(s.Sides))
	for _, side := range s.Sides {
		if sides[side] {
			return fmt.Errorf("scenario %s: duplicate side %q", s.Name, side)
		}
		sides[side] = true
	}
	names := make(map[string]bool)
	battalions := make(map[string]bool)
	for _, b := range s.Battalions {
		if err := b.validate(sides); err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if names[b.Name] {
			return fmt.Errorf("scenario %s: duplicate platform name %q", s.Name, b.Name)
		}
		names[b.Name] = true
		battalions[b.Name] = true
	}
	for _, a := range s.Aircraft {
		if err := a.validate(sides); err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if names[a.Name] {
			return fmt.Errorf("scenario %s: duplicate platform name %q", s.Name, a.Name)
		}
		names[a.Name] = true
	}
	for _, e := range s.EWSites {
		if err := e.validate(sides, battalions); err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if names[e.Name] {
			return fmt.Errorf("scenario %s: duplicate platform name %q", s.Name, e.Name)
		}
		names[e.Name] = true
	}
	return nil
}

// PlatformCount returns how many platforms the scenario lays down,
// launchers included, missiles excluded.
func (s *Scenario) PlatformCount() int {
	n := len(s.Aircraft) + len(s.EWSites)
	for _, b := range s.Battalions {
		n++
		for _, site := range b.Sites {
			n += 1 + len(site.TELs)
		}
	}
	return n
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the scenario as YAML.
func (s *Scenario) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	return nil
}

// ParseState maps a scenario state name to the lifecycle state. Empty input
// means Deployed.
func ParseState(name string) (engage.SiteState, error) {
	switch strings.ToLower(name) {
	case "", "deployed":
		return engage.StateDeployed, nil
	case "moving":
		return engage.StateMoving, nil
	case "hiding":
		return engage.StateHiding, nil
	case "setup":
		return engage.StateSetup, nil
	case "teardown":
		return engage.StateTeardown, nil
	default:
		return engage.StateDeployed, fmt.Errorf("unknown initial_state %q", name)
	}
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }
