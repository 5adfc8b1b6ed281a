package engage

import (
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sensing"
)

// EngagementMode is the kill-chain policy drawn for one engagement.
type EngagementMode int

const (
	// FullyGuided runs the complete chain: acquisition radar, tracking
	// radar after two consecutive acquisition blips, semiactive shot.
	FullyGuided EngagementMode = iota
	// SemiGuided launches ballistic on acquisition and cues the tracking
	// radar late in the flyout for terminal guidance.
	SemiGuided
	// Unguided launches ballistic on a range threshold alone.
	Unguided
)

func (m EngagementMode) String() string {
	switch m {
	case FullyGuided:
		return "FULLYGUIDED"
	case SemiGuided:
		return "SEMIGUIDED"
	case Unguided:
		return "UNGUIDED"
	default:
		return "UNKNOWN"
	}
}

// EngagedTarget is the transient state of one pursuit: created when a site
// commits to a target, destroyed on disengage, teardown or kill.
type EngagedTarget struct {
	Target *platform.Platform
	Mode   EngagementMode

	// Radars committed to this engagement. TAR acquires, TTR tracks
	// through intercept; either may stay nil for degraded modes.
	TAR *sensing.Radar
	TTR *sensing.Radar

	// Shooter is the launcher selected for the shot, nil until firing.
	Shooter *SAMTEL

	// HasEmitted marks that any radar radiated for this engagement;
	// disengaging after emitting forces a teardown to relocate.
	HasEmitted bool

	// Fired marks that a missile is in the air for this engagement.
	Fired bool

	// HomeOnJam marks the engagement as redirected onto a jamming source.
	HomeOnJam bool

	// ttActivateAt is the scheduled terminal tracking radar turn-on for a
	// semi-guided shot, +Inf when none is pending.
	ttActivateAt float64

	AssignedAt float64

	// LastTrackAt is the time of the newest sensing report naming the
	// target, for kill-chain timing in the run summary.
	LastTrackAt float64
}
