// Package tick implements wraparound-safe arithmetic on the 32-bit simulation
// tick counter. Ticks are never compared with plain < or >; every ordering
// question goes through the signed difference of two ticks.
package tick

// Tick is the discrete simulation time unit. It wraps around after 2^32 ticks.
type Tick uint32

// Invalid is used as the "no tick" marker in bookkeeping that needs one.
// A valid simulation never stamps tick 0 on a message.
const Invalid Tick = 0

// IsValid reports whether t is a stamped tick.
func (t Tick) IsValid() bool {
	return t != Invalid
}

// Diff returns the signed distance a-b, interpreted modulo 2^32.
func Diff(a, b Tick) int32 {
	return int32(uint32(a) - uint32(b))
}

// IsNewer reports whether a is strictly after b.
func IsNewer(a, b Tick) bool {
	return Diff(a, b) > 0
}

// IsNewerOrEqual reports whether a is at or after b.
func IsNewerOrEqual(a, b Tick) bool {
	return Diff(a, b) >= 0
}

// Add advances t by n ticks (n may be negative).
func (t Tick) Add(n int32) Tick {
	return Tick(uint32(t) + uint32(n))
}

// Next returns the tick after t, skipping Invalid on wraparound.
func (t Tick) Next() Tick {
	n := t + 1
	if n == Invalid {
		n++
	}
	return n
}

// Newest returns whichever of a and b is newer.
func Newest(a, b Tick) Tick {
	if IsNewer(b, a) {
		return b
	}
	return a
}

// Oldest returns whichever of a and b is older.
func Oldest(a, b Tick) Tick {
	if IsNewer(b, a) {
		return a
	}
	return b
}

// Age returns how many ticks old t is relative to now. Ticks in the future
// yield a negative age.
func Age(now, t Tick) int32 {
	return Diff(now, t)
}
