package sim

import "math"

// Behavior is the unit of cooperative scheduling. The scheduler repeatedly
// asks every registered behavior for its next scheduled time and invokes
// Perform on the earliest one. A behavior suspends by returning +Inf (or any
// time it will revise later); suspension is purely logical, there is no
// stack capture.
type Behavior interface {
	// Perform advances the behavior to simulation time t.
	Perform(t float64)

	// NextScheduledTime returns the absolute simulation time at which the
	// behavior next wants to run, or math.Inf(1) when idle. Must be
	// side-effect free.
	NextScheduledTime(now float64) float64
}

// Never is the scheduled time of an idle behavior.
func Never() float64 { return math.Inf(1) }

// Scheduler is a single-threaded discrete-event loop. Within a single
// timestamp behaviors run in registration order, which the rest of the
// simulation relies on for drop-before-active track delivery and
// exit-before-entry state side effects.
type Scheduler struct {
	behaviors []Behavior
	now       float64
}

// NewScheduler returns an empty scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Register adds a behavior. Registration order is the tie-break order for
// events sharing a timestamp.
func (s *Scheduler) Register(b Behavior) {
	s.behaviors = append(s.behaviors, b)
}

// Now returns the current simulation time in seconds.
func (s *Scheduler) Now() float64 { return s.now }

// Step advances to the next scheduled event and performs it. It returns the
// new simulation time and false when no behavior has pending work.
func (s *Scheduler) Step() (float64, bool) {
	next := math.Inf(1)
	var chosen Behavior
	for _, b := range s.behaviors {
		t := b.NextScheduledTime(s.now)
		if t < next {
			next = t
			chosen = b
		}
	}
	if chosen == nil || math.IsInf(next, 1) {
		return s.now, false
	}
	if next > s.now {
		s.now = next
	}
	chosen.Perform(s.now)
	return s.now, true
}

// Run steps until no work remains or the next event would pass the end time.
// It returns the simulation time at which it stopped.
func (s *Scheduler) Run(until float64) float64 {
	for {
		next := math.Inf(1)
		for _, b := range s.behaviors {
			if t := b.NextScheduledTime(s.now); t < next {
				next = t
			}
		}
		if math.IsInf(next, 1) || next > until {
			if until > s.now && !math.IsInf(until, 1) {
				s.now = until
			}
			return s.now
		}
		if _, ok := s.Step(); !ok {
			return s.now
		}
	}
}
