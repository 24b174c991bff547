package command

// InputEvent records single-frame events such as "jump pressed" as a counter.
// A resimulated tick that replays a stale sample cannot erase an event,
// because the predicate compares counts instead of reading a flag.
type InputEvent struct {
	Count uint32
}

// Set records one occurrence.
func (e *InputEvent) Set() { e.Count++ }

// WasSetSince reports whether the event fired after prev was sampled.
func (e InputEvent) WasSetSince(prev InputEvent) bool { return e.Count != prev.Count }

// Occurrences returns how many times the event fired since prev.
func (e InputEvent) Occurrences(prev InputEvent) uint32 { return e.Count - prev.Count }
