package sim

import (
	"math"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
)

// BoomerangResult reports what happened to a boomerang during a step.
type BoomerangResult struct {
	Caught bool
	// Hits lists the player ghosts struck this step.
	Hits []ghostid.ID
}

// NewBoomerang returns the state of a boomerang released by owner.
func NewBoomerang(owner ghostid.ID, t Throw) netcomponents.BoomerangGhost {
	return netcomponents.BoomerangGhost{
		Position: [2]float32{float32(t.X), float32(t.Y)},
		Velocity: [2]float32{float32(t.VelX), float32(t.VelY)},
		Owner:    uint32(owner),
		State:    netcomponents.BoomerangOutbound,
		MaxRange: float32(byCharge(config.Boomerang.BaseRange, config.Boomerang.MaxChargeRange, t.Charge)),
		Charge:   float32(t.Charge),
	}
}

// BoomerangDamage returns the damage a hit of b deals.
func BoomerangDamage(b *netcomponents.BoomerangGhost) int {
	base := float64(config.Boomerang.BaseDamage)
	return int(byCharge(base, base+float64(config.Boomerang.MaxChargeDamageBonus), float64(b.Charge)))
}

// StepBoomerang advances b by one simulation tick. owner is nil once the
// throwing player is gone; hit holds players already struck by b and is
// updated in place.
func (w *World) StepBoomerang(id ghostid.ID, b *netcomponents.BoomerangGhost, owner *netcomponents.PlayerGhost, hit map[ghostid.ID]struct{}) BoomerangResult {
	size := config.Boomerang.Size
	obj := w.Body(id, size, size, TagBoomerang)
	place(obj, float64(b.Position[0]), float64(b.Position[1]))

	var res BoomerangResult
	velX, velY := float64(b.Velocity[0]), float64(b.Velocity[1])
	traveled := float64(b.Traveled)

	for step := 0; step < w.SubSteps; step++ {
		switch b.State {
		case netcomponents.BoomerangOutbound:
			velY += config.Boomerang.Gravity
			traveled += math.Hypot(velX, velY)
			// Switch to inbound at max range
			if traveled >= float64(b.MaxRange) {
				b.State = netcomponents.BoomerangInbound
			}

		case netcomponents.BoomerangInbound:
			if owner == nil {
				// Nobody to return to.
				res.Caught = true
				return res
			}
			ox, oy := playerCenter(owner)
			velX, velY = homing(
				obj.X+size/2, obj.Y+size/2, ox, oy, config.Boomerang.ReturnSpeed)
		}

		place(obj, obj.X+velX, obj.Y+velY)

		if owner != nil && b.State == netcomponents.BoomerangInbound {
			ox, oy := playerCenter(owner)
			if math.Hypot(obj.X+size/2-ox, obj.Y+size/2-oy) < config.Boomerang.CatchRadius {
				res.Caught = true
				break
			}
		}

		check := obj.Check(0, 0, TagSolid, TagPlayer)
		if check == nil {
			continue
		}
		// Wall collision sends it home.
		if b.State == netcomponents.BoomerangOutbound && len(check.ObjectsByTags(TagSolid)) > 0 {
			b.State = netcomponents.BoomerangInbound
		}
		for _, pObj := range check.ObjectsByTags(TagPlayer) {
			target, ok := w.Owner(pObj)
			if !ok || uint32(target) == b.Owner {
				continue
			}
			if _, already := hit[target]; already {
				continue
			}
			hit[target] = struct{}{}
			res.Hits = append(res.Hits, target)

			// Pierce: reduce per hit, return once spent
			if float64(len(hit))*size >= config.Boomerang.PierceDistance {
				b.State = netcomponents.BoomerangInbound
			}
		}
	}

	b.Position = [2]float32{float32(obj.X), float32(obj.Y)}
	b.Velocity = [2]float32{float32(velX), float32(velY)}
	b.Traveled = float32(traveled)
	return res
}

// ApplyHit damages p and knocks it away from b.
func ApplyHit(p *netcomponents.PlayerGhost, b *netcomponents.BoomerangGhost) {
	p.Health -= int16(BoomerangDamage(b))
	if p.Health < 0 {
		p.Health = 0
	}
	knockX := 0.0
	if v := float64(b.Velocity[0]); v != 0 {
		knockX = math.Copysign(config.Boomerang.HitKnockback, v)
	}
	p.Velocity[0] += float32(knockX)
	p.Velocity[1] += float32(config.Boomerang.KnockbackUpwardForce)
}

func playerCenter(p *netcomponents.PlayerGhost) (float64, float64) {
	return float64(p.Position[0]) + config.Player.CollisionWidth/2,
		float64(p.Position[1]) + config.Player.CollisionHeight/2
}
