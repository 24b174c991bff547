package sim

import (
	"math"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/netconfig"
	"github.com/solarlune/resolv"
)

// Throw is a boomerang release produced by a player step.
type Throw struct {
	X, Y       float64
	VelX, VelY float64
	Charge     float64
}

// NewPlayer returns the initial state of a player spawned at x, y.
func NewPlayer(owner uint32, name string, x, y float64) netcomponents.PlayerGhost {
	return netcomponents.PlayerGhost{
		Position:  [2]float32{float32(x), float32(y)},
		Direction: 1,
		State:     int16(netconfig.Idle),
		Health:    int16(config.Player.Health),
		Owner:     owner,
		Name:      name,
	}
}

// StepPlayer advances p by one simulation tick under in. It returns the
// boomerang throw released this tick, if any.
func (w *World) StepPlayer(id ghostid.ID, p *netcomponents.PlayerGhost, in command.PlayerInput) (Throw, bool) {
	obj := w.Body(id, config.Player.CollisionWidth, config.Player.CollisionHeight, TagPlayer)
	place(obj, float64(p.Position[0]), float64(p.Position[1]))

	velX, velY := float64(p.Velocity[0]), float64(p.Velocity[1])
	if in.Direction != 0 {
		p.Direction = in.Direction
	}

	// Input events are consumed once per tick, on the first sub-step.
	jump := in.Jump.Count != p.JumpCount
	p.JumpCount = in.Jump.Count

	for step := 0; step < w.SubSteps; step++ {
		// --- Horizontal input ---
		if in.Direction != 0 {
			velX += float64(in.Direction) * config.Player.Acceleration
		}

		// --- Jump (edge-triggered) ---
		if jump && p.OnGround {
			velY = -config.Player.JumpSpeed
			p.OnGround = false
		}
		jump = false

		// --- Friction (ground only) ---
		if p.OnGround {
			velX = friction(velX, config.Physics.Friction)
		}
		velX = clampAbs(velX, config.Player.MaxSpeed)

		// --- Gravity ---
		velY += config.Physics.Gravity
		if velY > config.Physics.MaxFallSpeed {
			velY = config.Physics.MaxFallSpeed
		}

		velX, velY = w.movePlayer(obj, p, velX, velY)
	}

	p.Position = [2]float32{float32(obj.X), float32(obj.Y)}
	p.Velocity = [2]float32{float32(velX), float32(velY)}

	throw, thrown := w.chargeBoomerang(obj, p, in)
	if thrown {
		p.State = int16(netconfig.Throw)
	} else if p.Charge > 0 {
		p.State = int16(netconfig.StateChargingBoomerang)
	} else {
		p.State = int16(deriveState(p.OnGround, velX))
	}
	return throw, thrown
}

// movePlayer resolves one sub-step of movement against the level.
func (w *World) movePlayer(obj *resolv.Object, p *netcomponents.PlayerGhost, velX, velY float64) (float64, float64) {
	// --- Resolve horizontal collision ---
	dx := velX
	if dx != 0 {
		if check := obj.Check(dx, 0, TagSolid); check != nil {
			if solids := check.ObjectsByTags(TagSolid); len(solids) > 0 {
				contact := check.ContactWithObject(solids[0])
				dx = contact.X()
				velX = 0
			}
		}
		place(obj, obj.X+dx, obj.Y)
	}

	// --- Resolve vertical collision ---
	dy := clampAbs(velY, config.Physics.VerticalSpeedClamp)

	checkDist := dy
	if dy >= 0 {
		checkDist++
	}

	if check := obj.Check(0, checkDist, TagSolid, TagRamp); check != nil {
		if solids := check.ObjectsByTags(TagSolid); len(solids) > 0 {
			contact := check.ContactWithObject(solids[0])
			place(obj, obj.X, obj.Y+contact.Y())
			if dy >= 0 {
				// Landing
				p.OnGround = true
			}
			return velX, 0
		}
		if ramps := check.ObjectsByTags(TagRamp); len(ramps) > 0 && dy >= 0 {
			surface := slopeSurface(obj, ramps[0])
			if obj.Y+obj.H+dy >= surface {
				place(obj, obj.X, surface-obj.H)
				p.OnGround = true
				return velX, 0
			}
		}
	}

	// No collision, freefall
	p.OnGround = false
	place(obj, obj.X, obj.Y+dy)
	return velX, velY
}

// chargeBoomerang accumulates charge while the boomerang action is held and
// releases a throw on the attack event.
func (w *World) chargeBoomerang(obj *resolv.Object, p *netcomponents.PlayerGhost, in command.PlayerInput) (Throw, bool) {
	attack := in.Attack.Count != p.AttackCount
	p.AttackCount = in.Attack.Count

	if in.Holding(netconfig.ActionBoomerang) {
		charge := int(p.Charge) + w.SubSteps
		if charge > config.Boomerang.MaxChargeTime {
			charge = config.Boomerang.MaxChargeTime
		}
		p.Charge = uint16(charge)
	}
	if !attack {
		return Throw{}, false
	}

	ratio := float64(p.Charge) / float64(config.Boomerang.MaxChargeTime)
	p.Charge = 0

	facingX := config.DirectionRight
	if p.Direction < 0 {
		facingX = config.DirectionLeft
	}
	dir := aim(facingX, in.Holding(netconfig.ActionMoveUp), in.Holding(netconfig.ActionCrouch), in.Direction != 0)
	vel := dir.Scale(byCharge(config.Boomerang.ThrowSpeed, config.Boomerang.ThrowSpeed*1.5, ratio))
	velX, velY := vel[0], vel[1]-config.Boomerang.ThrowLift
	half := config.Boomerang.Size / 2
	return Throw{
		// Spawn position: player center + offset in facing direction
		X:      obj.X + obj.W/2 + facingX*10 - half,
		Y:      obj.Y + obj.H/2 - half,
		VelX:   velX,
		VelY:   velY,
		Charge: ratio,
	}, true
}

// deriveState maps physics state to an animation state.
func deriveState(onGround bool, velX float64) netconfig.StateID {
	if !onGround {
		return netconfig.Jump
	}
	if math.Abs(velX) >= 0.1 {
		return netconfig.Running
	}
	return netconfig.Idle
}
