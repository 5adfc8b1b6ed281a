package engage

import (
	"math"

	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/weapon"
)

// SAMTEL is the launcher agent: it owns the missiles on one
// transporter-erector-launcher platform and relays weapon outcomes up to
// its site.
type SAMTEL struct {
	ctx *platform.Context
	p   *platform.Platform

	// LethalRange is the launcher's engagement envelope in nmi; the
	// engageability of a target is range over this.
	LethalRange float64

	sams []*weapon.SAM
}

// NewSAMTEL creates the launcher agent and attaches it to its platform.
func NewSAMTEL(ctx *platform.Context, p *platform.Platform, lethalRange float64) *SAMTEL {
	tel := &SAMTEL{ctx: ctx, p: p, LethalRange: lethalRange}
	p.Agent = tel
	return tel
}

// Platform returns the launcher platform.
func (tel *SAMTEL) Platform() *platform.Platform { return tel.p }

// Arm adds a missile to the launcher's rails.
func (tel *SAMTEL) Arm(s *weapon.SAM) {
	tel.sams = append(tel.sams, s)
}

// SAMs returns the launcher's missiles in rail order.
func (tel *SAMTEL) SAMs() []*weapon.SAM { return tel.sams }

// ReadySAM returns the first missile still on a rail, nil when expended.
func (tel *SAMTEL) ReadySAM() *weapon.SAM {
	for _, s := range tel.sams {
		if s.Ready() {
			return s
		}
	}
	return nil
}

// Engageability is the ratio of target range to lethal range; at or below 1
// the target is inside the envelope.
func (tel *SAMTEL) Engageability(target *platform.Platform) float64 {
	if tel.LethalRange <= 0 {
		return math.Inf(1)
	}
	return tel.ctx.Earth.Distance(tel.p.Location, target.Location) / tel.LethalRange
}

// Fire launches the next ready missile at the target. It reports whether a
// missile left the rail.
func (tel *SAMTEL) Fire(t float64, target *platform.Platform, mode weapon.GuidanceMode) bool {
	if !tel.p.Alive() {
		return false
	}
	s := tel.ReadySAM()
	if s == nil {
		return false
	}
	s.ShootTarget(t, target, mode)
	return true
}

// WeaponOutcome relays a missile's terminal result to the owning site.
func (tel *SAMTEL) WeaponOutcome(t float64, _ *weapon.SAM, target *platform.Platform, killed bool) {
	if a, ok := platform.AssignerOf(tel.p.Superior); ok {
		a.TargetDestroyed(t, target, killed)
	}
}
