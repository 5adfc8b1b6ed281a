package sensing

import (
	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

// Jammer is a noise jammer carried by a platform. While on, every hostile
// radar with line of sight to the carrier loses detection range in
// proportion to Effectiveness.
type Jammer struct {
	ctx   *platform.Context
	owner *platform.Platform
	name  string

	// Effectiveness is the fraction of a victim radar's reference range
	// removed by this jammer, in [0, 1].
	Effectiveness float64

	on bool
}

// NewJammer attaches a jammer system to the carrier.
func NewJammer(ctx *platform.Context, owner *platform.Platform, name string, effectiveness float64) *Jammer {
	j := &Jammer{ctx: ctx, owner: owner, name: name, Effectiveness: effectiveness}
	owner.Attach(j)
	return j
}

func (j *Jammer) SystemName() string        { return j.name }
func (j *Jammer) Owner() *platform.Platform { return j.owner }

// On reports whether the jammer is radiating.
func (j *Jammer) On() bool { return j.on && j.owner.Alive() }

// SetOn toggles the jammer and notifies observers.
func (j *Jammer) SetOn(t float64, on bool) {
	if j.on == on {
		return
	}
	j.on = on
	state := "off"
	if on {
		state = "on"
	}
	j.ctx.Emit(sim.Event{
		Time:        t,
		Type:        sim.EventEmission,
		Subject:     j.owner.ID,
		SubjectName: j.owner.Name,
		Message:     j.name + " jammer " + state,
	})
	j.ctx.Touch(t)
}

// jammingAgainst sums the effectiveness of every radiating hostile jammer
// with line of sight to the victim radar's platform, clamped to [0, 1].
func jammingAgainst(ctx *platform.Context, victim *platform.Platform) float64 {
	var total float64
	for _, p := range ctx.World.All() {
		if !p.Alive() || p.Side == victim.Side {
			continue
		}
		for _, s := range p.Systems {
			j, ok := s.(*Jammer)
			if !ok || !j.On() {
				continue
			}
			if !ctx.Terrain.HasLOS(p.Location, victim.Location, geom.EarthFactorEM) {
				continue
			}
			total += j.Effectiveness
		}
	}
	if total > 1 {
		return 1
	}
	return total
}

// StrongestJammerAgainst returns the radiating hostile jammer carrier with
// line of sight contributing the largest effectiveness against the victim,
// for home-on-jam redirection. Nil when nothing is jamming.
func StrongestJammerAgainst(ctx *platform.Context, victim *platform.Platform) *platform.Platform {
	var best *platform.Platform
	var bestEff float64
	for _, p := range ctx.World.All() {
		if !p.Alive() || p.Side == victim.Side {
			continue
		}
		for _, s := range p.Systems {
			j, ok := s.(*Jammer)
			if !ok || !j.On() {
				continue
			}
			if !ctx.Terrain.HasLOS(p.Location, victim.Location, geom.EarthFactorEM) {
				continue
			}
			if j.Effectiveness > bestEff {
				bestEff = j.Effectiveness
				best = p
			}
		}
	}
	return best
}
