package network

import (
	"log"
	"sort"
	"sync"

	"github.com/automoto/ghostsync/shared/schema"
)

// ErrorStat accumulates the prediction error of one field.
type ErrorStat struct {
	Ghost string
	Field string
	Max   float64
	Sum   float64
	Count int
}

// Mean returns the average error over every mismatch.
func (s ErrorStat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// ErrorReport collects how far predictions were from the authoritative
// state, per ghost type and field.
type ErrorReport struct {
	mu    sync.Mutex
	stats map[string]*ErrorStat
}

func NewErrorReport() *ErrorReport {
	return &ErrorReport{stats: make(map[string]*ErrorStat)}
}

// Compare records every field where predicted differs from authoritative.
func (r *ErrorReport) Compare(gt *schema.GhostType, predicted, authoritative *schema.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gt.FieldDistances(predicted, authoritative, func(f *schema.Field, d float64) {
		if d == 0 {
			return
		}
		key := gt.Name + "." + f.Name
		s, ok := r.stats[key]
		if !ok {
			s = &ErrorStat{Ghost: gt.Name, Field: f.Name}
			r.stats[key] = s
		}
		s.Count++
		s.Sum += d
		if d > s.Max {
			s.Max = d
		}
	})
}

// Stats returns every field with a recorded error, largest first.
func (r *ErrorReport) Stats() []ErrorStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorStat, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Max != out[j].Max {
			return out[i].Max > out[j].Max
		}
		if out[i].Ghost != out[j].Ghost {
			return out[i].Ghost < out[j].Ghost
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (r *ErrorReport) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.stats)
}

// Log writes the report, one line per field.
func (r *ErrorReport) Log() {
	for _, s := range r.Stats() {
		log.Printf("[predict] %s.%s: max %.3f mean %.3f over %d", s.Ghost, s.Field, s.Max, s.Mean(), s.Count)
	}
}
