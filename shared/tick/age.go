package tick

// AgeEstimator keeps an exponential moving average of how many ticks behind the
// server each received snapshot is. A stalled connection shows up as a growing
// average, which callers may use to decide when to drop it.
type AgeEstimator struct {
	alpha   float64
	average float64
	latest  Tick
	primed  bool
}

// NewAgeEstimator builds an estimator with the given smoothing factor in (0,1].
// Values outside that range fall back to 0.1.
func NewAgeEstimator(alpha float64) *AgeEstimator {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &AgeEstimator{alpha: alpha}
}

// Observe records a snapshot stamped received while the local estimate of the
// server tick is now. Snapshots that arrive out of order still contribute
// their age, but never move Latest backwards.
func (e *AgeEstimator) Observe(now, received Tick) {
	age := float64(Age(now, received))
	if age < 0 {
		age = 0
	}
	if !e.primed {
		e.average = age
		e.latest = received
		e.primed = true
		return
	}
	e.average += e.alpha * (age - e.average)
	e.latest = Newest(e.latest, received)
}

// Average returns the current moving average in ticks.
func (e *AgeEstimator) Average() float64 {
	return e.average
}

// Latest returns the newest tick observed so far and whether any was seen.
func (e *AgeEstimator) Latest() (Tick, bool) {
	return e.latest, e.primed
}

// Stale reports whether now has moved more than limit ticks past the newest
// observed snapshot.
func (e *AgeEstimator) Stale(now Tick, limit int32) bool {
	if !e.primed {
		return false
	}
	return Age(now, e.latest) > limit
}
