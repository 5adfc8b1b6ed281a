// Package iads is the integrated air defense simulation: strike aircraft
// with jammers and warning receivers fly routes through a SAM belt whose
// battalions relocate, sense, assign and engage on stochastic dwell clocks.
package iads

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/jpr86/CHECKMATE-sub000/cmd/iads/reporting"
	"github.com/jpr86/CHECKMATE-sub000/pkg/logger"
	"github.com/jpr86/CHECKMATE-sub000/pkg/metrics"
	"github.com/jpr86/CHECKMATE-sub000/pkg/scenario"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
	"github.com/jpr86/CHECKMATE-sub000/pkg/simdis"
	"github.com/jpr86/CHECKMATE-sub000/pkg/simulation"
)

// chunkSeconds is how much simulation time runs between cancellation checks.
const chunkSeconds = 60.0

// IADSSimulation drives one scenario end to end.
type IADSSimulation struct {
	config *Config

	mu      sync.Mutex
	stopped bool
}

// NewIADSSimulation creates a new instance of the IADS simulation.
func NewIADSSimulation() simulation.Simulation {
	return &IADSSimulation{}
}

// Name returns the simulation name.
func (s *IADSSimulation) Name() string {
	return "IADS Engagement"
}

// Description returns the simulation description.
func (s *IADSSimulation) Description() string {
	return "SAM battalion kill chains against a jamming strike package"
}

// Configure sets up the simulation with provided parameters.
func (s *IADSSimulation) Configure(params map[string]interface{}) error {
	config, err := ValidateAndParse(params)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s.config = config
	return nil
}

// Run executes the scenario until its end time, cancellation or Stop.
func (s *IADSSimulation) Run(ctx context.Context) error {
	if s.config == nil {
		return fmt.Errorf("simulation not configured")
	}

	scn, err := scenario.Load(s.config.ScenarioPath)
	if err != nil {
		return err
	}

	seed := s.config.Seed
	if seed == 0 {
		seed = scn.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rt, err := scn.Build(seed)
	if err != nil {
		return err
	}

	engLog := reporting.NewEngagementLog(rt.Ctx.World)
	engLog.Narrate = s.config.Narrate
	sinks := sim.MultiSink{engLog}

	if s.config.MetricsAddr != "" {
		collector, err := metrics.NewCollector(nil, rt.Ctx.World)
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		sinks = append(sinks, collector)
		srv := collector.Serve(s.config.MetricsAddr)
		defer func() { _ = srv.Close() }()
		logger.Infof("Serving metrics on %s/metrics", s.config.MetricsAddr)
	}

	if s.config.OutputASI != "" {
		f, err := os.Create(s.config.OutputASI)
		if err != nil {
			return fmt.Errorf("failed to create SIMDIS output: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer := simdis.NewWriter(f, rt.Ctx.World, scn.Origin.LatDeg, scn.Origin.LonDeg)
		defer func() { _ = writer.Flush() }()
		sinks = append(sinks, writer)
		rt.Ctx.Observers = append(rt.Ctx.Observers, writer)
	}

	rt.Ctx.Events = sinks

	end := scn.EndTime
	if s.config.EndTime > 0 {
		end = s.config.EndTime
	}

	logger.Infof("Running scenario %q for %.0f s with seed %d (%d platforms)",
		scn.Name, end, seed, scn.PlatformCount())
	rt.Ctx.InitializeObservers()

	for now := 0.0; now < end; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if s.isStopped() {
			logger.Warn("Simulation stopped early")
			break
		}
		next := math.Min(now+chunkSeconds, end)
		rt.Sched.Run(next)
		now = next
	}

	engLog.Summary(rt.Sched.Now(), seed)
	return nil
}

// Stop gracefully shuts down the simulation.
func (s *IADSSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *IADSSimulation) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func init() {
	err := simulation.DefaultRegistry.Register("IADS Engagement", NewIADSSimulation)
	if err != nil {
		logger.Errorf("Failed to register IADS simulation: %v", err)
	}
}
