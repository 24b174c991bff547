package schema

import (
	"fmt"
	"reflect"

	"github.com/automoto/ghostsync/shared/codec"
)

// GhostType is a compiled, immutable ghost schema.
type GhostType struct {
	Name  string
	Index uint32
	Layout
	Buffers []*BufferLayout

	goType reflect.Type
	model  *codec.CompressionModel
}

// Model returns the compression model of the owning registry.
func (gt *GhostType) Model() *codec.CompressionModel { return gt.model }

// New returns a pointer to a zero value of the ghost's struct type.
func (gt *GhostType) New() any {
	return reflect.New(gt.goType).Interface()
}

// NewSnapshot returns a zeroed image with empty buffers.
func (gt *GhostType) NewSnapshot() *Snapshot {
	s := &Snapshot{Words: make([]uint32, gt.Words)}
	if len(gt.Buffers) > 0 {
		s.Buffers = make([]BufferData, len(gt.Buffers))
	}
	return s
}

func (gt *GhostType) structValue(v any, settable bool) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("schema: %s: nil value", gt.Name)
		}
		rv = rv.Elem()
	} else if settable {
		return reflect.Value{}, fmt.Errorf("schema: %s: unpack target must be a pointer", gt.Name)
	}
	if rv.Type() != gt.goType {
		return reflect.Value{}, fmt.Errorf("schema: %s: got %s, want %s", gt.Name, rv.Type(), gt.goType)
	}
	return rv, nil
}

// Pack quantizes v into a fresh snapshot image.
func (gt *GhostType) Pack(v any) (*Snapshot, error) {
	s := gt.NewSnapshot()
	if err := gt.PackInto(v, s); err != nil {
		return nil, err
	}
	return s, nil
}

// PackInto quantizes v into s, reusing its storage. Fixed lists and strings
// longer than their declared capacity are truncated; buffers longer than
// their element limit likewise.
func (gt *GhostType) PackInto(v any, s *Snapshot) error {
	rv, err := gt.structValue(v, false)
	if err != nil {
		return err
	}
	if len(s.Words) != gt.Words {
		s.Words = make([]uint32, gt.Words)
	}
	packLayout(&gt.Layout, rv, s.Words)

	if len(s.Buffers) != len(gt.Buffers) {
		s.Buffers = make([]BufferData, len(gt.Buffers))
	}
	for i, b := range gt.Buffers {
		bv := rv.FieldByIndex(b.index)
		n := bv.Len()
		if n > b.MaxElements {
			n = b.MaxElements
		}
		words := n * b.Elem.Words
		if cap(s.Buffers[i].Words) < words {
			s.Buffers[i].Words = make([]uint32, words)
		}
		s.Buffers[i].Words = s.Buffers[i].Words[:words]
		s.Buffers[i].Len = n
		for e := 0; e < n; e++ {
			packLayout(&b.Elem, bv.Index(e), s.Buffers[i].Words[e*b.Elem.Words:(e+1)*b.Elem.Words])
		}
	}
	return nil
}

func packLayout(l *Layout, rv reflect.Value, dst []uint32) {
	for i := range l.Fields {
		f := &l.Fields[i]
		f.ops.pack(f, rv.FieldByIndex(f.index), f.words(dst))
	}
}

// Unpack writes the dequantized image into the struct pointed to by v.
func (gt *GhostType) Unpack(s *Snapshot, v any) error {
	rv, err := gt.structValue(v, true)
	if err != nil {
		return err
	}
	if len(s.Words) != gt.Words {
		return fmt.Errorf("schema: %s: snapshot has %d words, want %d", gt.Name, len(s.Words), gt.Words)
	}
	if err := unpackLayout(&gt.Layout, s.Words, rv); err != nil {
		return fmt.Errorf("schema: %s: %w", gt.Name, err)
	}
	for i, b := range gt.Buffers {
		var data BufferData
		if i < len(s.Buffers) {
			data = s.Buffers[i]
		}
		bv := rv.FieldByIndex(b.index)
		slice := reflect.MakeSlice(bv.Type(), data.Len, data.Len)
		for e := 0; e < data.Len; e++ {
			if err := unpackLayout(&b.Elem, data.Words[e*b.Elem.Words:(e+1)*b.Elem.Words], slice.Index(e)); err != nil {
				return fmt.Errorf("schema: %s: %w", gt.Name, err)
			}
		}
		bv.Set(slice)
	}
	return nil
}

func unpackLayout(l *Layout, src []uint32, rv reflect.Value) error {
	for i := range l.Fields {
		f := &l.Fields[i]
		if err := f.ops.unpack(f, f.words(src), rv.FieldByIndex(f.index)); err != nil {
			return err
		}
	}
	return nil
}

// Interpolate blends a (older) towards b (newer) by t in [0,1] into dst.
// Fields without smoothing take b's value, and a smoothed field snaps to b
// when the two snapshots are further apart than its MaxSmoothingDistance.
func (gt *GhostType) Interpolate(a, b, dst *Snapshot, t float64) {
	gt.blend(a, b, dst, t, false)
}

// Extrapolate projects past b by t > 1 (in units of the a->b interval) for
// fields declared with extrapolation. A projection that moves further than
// MaxSmoothingDistance from b snaps to b.
func (gt *GhostType) Extrapolate(a, b, dst *Snapshot, t float64) {
	gt.blend(a, b, dst, t, true)
}

func (gt *GhostType) blend(a, b, dst *Snapshot, t float64, extrapolate bool) {
	if len(dst.Words) != gt.Words {
		dst.Words = make([]uint32, gt.Words)
	}
	copy(dst.Words, b.Words)
	for i := range gt.Fields {
		f := &gt.Fields[i]
		mode := f.Smoothing()
		if mode == SmoothingClamp || (extrapolate && mode != SmoothingInterpolateAndExtrapolate) {
			continue
		}
		fa, fb, fd := f.words(a.Words), f.words(b.Words), f.words(dst.Words)
		maxDist := f.Desc.Attribute.MaxSmoothingDistance
		if !extrapolate && maxDist > 0 && f.ops.distance(f, fa, fb) > maxDist {
			continue
		}
		f.ops.lerp(f, fa, fb, fd, t)
		if extrapolate && maxDist > 0 && f.ops.distance(f, fb, fd) > maxDist {
			copy(fd, fb)
		}
	}
	dst.Buffers = cloneBuffers(b.Buffers)
}

func cloneBuffers(src []BufferData) []BufferData {
	if src == nil {
		return nil
	}
	out := make([]BufferData, len(src))
	for i, b := range src {
		out[i] = BufferData{Len: b.Len, Words: append([]uint32(nil), b.Words...)}
	}
	return out
}

// FieldDistances calls fn with the magnitude of the difference of every
// fixed field between a and b.
func (gt *GhostType) FieldDistances(a, b *Snapshot, fn func(f *Field, distance float64)) {
	for i := range gt.Fields {
		f := &gt.Fields[i]
		fn(f, f.ops.distance(f, f.words(a.Words), f.words(b.Words)))
	}
}

// Distance reports the difference of one field between a and b.
func (gt *GhostType) Distance(f *Field, a, b *Snapshot) float64 {
	return f.ops.distance(f, f.words(a.Words), f.words(b.Words))
}

// LerpField blends a single field of a towards b into dst.
func (gt *GhostType) LerpField(f *Field, a, b, dst *Snapshot, t float64) {
	f.ops.lerp(f, f.words(a.Words), f.words(b.Words), f.words(dst.Words), t)
}
