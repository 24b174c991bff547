package sim

import (
	"github.com/kvartborg/vector"
	"github.com/solarlune/resolv"
)

// friction moves v towards zero by f without crossing it.
func friction(v, f float64) float64 {
	switch {
	case v > f:
		return v - f
	case v < -f:
		return v + f
	}
	return 0
}

func clampAbs(v, limit float64) float64 {
	return clamp(v, -limit, limit)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// byCharge scales between base and full by a charge ratio in [0,1].
func byCharge(base, full, ratio float64) float64 {
	return base + ratio*(full-base)
}

// slopeSurface returns the height of ramp's surface under the center of obj.
func slopeSurface(obj, ramp *resolv.Object) float64 {
	t := clamp(obj.X+obj.W/2-ramp.X, 0, ramp.W) / ramp.W
	switch {
	case ramp.HasTags(TagSlope45UpR):
		return ramp.Y + ramp.H*(1-t)
	case ramp.HasTags(TagSlope45UpL):
		return ramp.Y + ramp.H*t
	}
	return ramp.Y
}

// aim returns the unit throw direction. Up or down tilts the throw; a player
// standing still throws straight up or down.
func aim(facing float64, up, down, moving bool) vector.Vector {
	dir := vector.Vector{facing, 0}
	switch {
	case up && !down:
		dir = vector.Vector{facing, -1}
	case down && !up:
		dir = vector.Vector{facing, 1}
	}
	if (up != down) && !moving {
		dir[0] = 0
	}
	if mag := dir.Magnitude(); mag > 0 {
		dir = dir.Scale(1 / mag)
	}
	return dir
}

// homing returns a velocity of the given speed pointing from one point to
// another. It is zero when the points coincide.
func homing(fromX, fromY, toX, toY, speed float64) (float64, float64) {
	d := vector.Vector{toX - fromX, toY - fromY}
	mag := d.Magnitude()
	if mag == 0 {
		return 0, 0
	}
	d = d.Scale(speed / mag)
	return d[0], d[1]
}
