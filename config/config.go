package config

import "time"

// PlayerConfig contains all player-related configuration values
type PlayerConfig struct {
	// Movement
	JumpSpeed    float64
	Acceleration float64
	MaxSpeed     float64

	// Combat
	Health int

	// Dimensions
	CollisionWidth  float64
	CollisionHeight float64
}

// PhysicsConfig contains global physics values
type PhysicsConfig struct {
	Gravity            float64
	Friction           float64
	MaxFallSpeed       float64
	VerticalSpeedClamp float64 // Maximum vertical speed magnitude

	// StepRate is the rate the movement constants were tuned for. Simulation
	// ticks at a lower rate are split into StepRate/TickRate sub-steps.
	StepRate int
}

// BoomerangConfig contains boomerang throw and flight values
type BoomerangConfig struct {
	ThrowSpeed           float64
	ThrowLift            float64
	ReturnSpeed          float64
	BaseRange            float64
	MaxChargeRange       float64
	PierceDistance       float64
	Gravity              float64
	MaxChargeTime        int
	HitKnockback         float64 // horizontal knockback applied on hit
	KnockbackUpwardForce float64
	CatchRadius          float64
	BaseDamage           int // minimum damage at no charge
	MaxChargeDamageBonus int // additional damage at full charge
	Size                 float64
}

// NetcodeConfig contains replication and prediction settings
type NetcodeConfig struct {
	TickRate int

	// SnapshotHistory is the number of snapshots kept per ghost. It bounds
	// how old an acked baseline can be.
	SnapshotHistory int

	// CommandCapacity is the per-ghost command buffer size.
	CommandCapacity int

	// RedundantCommands is the number of samples repeated in each command
	// packet so a lost packet does not lose input.
	RedundantCommands int

	// MaxBaselines is 1 or 3. Three enables linear delta prediction.
	MaxBaselines int

	// InterpolationDelay is how many ticks interpolated ghosts render
	// behind the newest received snapshot.
	InterpolationDelay int
	// MaxExtrapolation caps how far past the newest snapshot a ghost is
	// projected before it freezes.
	MaxExtrapolation int
	// MaxExtrapolationDistance is the maxdist of extrapolated ghost fields
	// that do not declare their own.
	MaxExtrapolationDistance float64

	// CommandLead is how many ticks ahead of the newest snapshot the
	// client predicts and sends input, so commands reach the server before
	// it simulates their tick.
	CommandLead int

	// MaxPredictionTicks bounds how far the client runs ahead of the last
	// acknowledged server tick.
	MaxPredictionTicks int

	// SmoothingDistance is the prediction error below which corrections
	// are blended instead of snapped.
	SmoothingDistance float64
	SmoothingRate     float64

	// SwitchDuration is the default blend when a ghost changes between
	// predicted and interpolated.
	SwitchDuration time.Duration

	// AgeSmoothing is the EMA factor of the snapshot age estimate.
	AgeSmoothing float64
	// StaleAfter is the snapshot age in ticks after which the connection
	// is reported as stalled.
	StaleAfter int32

	// LenientSchema drops misconfigured fields instead of rejecting the type.
	LenientSchema bool

	// SerializeBatch is the number of ghosts packed per serialization job.
	SerializeBatch int
}

var Player PlayerConfig
var Physics PhysicsConfig
var Boomerang BoomerangConfig
var Netcode NetcodeConfig

// Direction constants for player facing
const (
	DirectionLeft  = -1.0
	DirectionRight = 1.0
)

func init() {
	// Physics Config
	Physics = PhysicsConfig{
		Gravity:            0.75,
		Friction:           0.5,
		MaxFallSpeed:       10.0,
		VerticalSpeedClamp: 16.0,
		StepRate:           60,
	}

	// Player Config
	Player = PlayerConfig{
		JumpSpeed:    15.0,
		Acceleration: 0.75,
		MaxSpeed:     6.0,

		Health: 60,

		CollisionWidth:  16,
		CollisionHeight: 40,
	}

	// Boomerang Config
	Boomerang = BoomerangConfig{
		ThrowSpeed:           6.0,
		ThrowLift:            2.0,
		ReturnSpeed:          8.0,
		BaseRange:            150.0,
		MaxChargeRange:       250.0,
		PierceDistance:       40.0,
		Gravity:              0.2,
		MaxChargeTime:        60,
		HitKnockback:         2.0,
		KnockbackUpwardForce: -4.0,
		CatchRadius:          20.0,
		BaseDamage:           15,
		MaxChargeDamageBonus: 15,
		Size:                 12,
	}

	// Netcode Config
	Netcode = NetcodeConfig{
		TickRate:                 20,
		SnapshotHistory:          32,
		CommandCapacity:          64,
		RedundantCommands:        4,
		MaxBaselines:             3,
		InterpolationDelay:       2,
		MaxExtrapolation:         3,
		MaxExtrapolationDistance: 64,
		CommandLead:              2,
		MaxPredictionTicks:       16,
		SmoothingDistance:        48,
		SmoothingRate:            0.25,
		SwitchDuration:           250 * time.Millisecond,
		AgeSmoothing:             0.1,
		StaleAfter:               60,
		SerializeBatch:           32,
	}
}

// SubSteps returns the number of physics sub-steps per simulation tick.
func SubSteps(tickRate int) int {
	if tickRate <= 0 {
		return 1
	}
	steps := Physics.StepRate / tickRate
	if steps < 1 {
		steps = 1
	}
	return steps
}
