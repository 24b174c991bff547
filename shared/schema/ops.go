package schema

import (
	"fmt"
	"math"
	"reflect"

	"github.com/automoto/ghostsync/shared/codec"
	"github.com/kvartborg/vector"
)

// fieldOps is the per-kind implementation selected once at compile time.
type fieldOps interface {
	pack(f *Field, v reflect.Value, dst []uint32)
	unpack(f *Field, src []uint32, v reflect.Value) error
	write(w *codec.Writer, f *Field, cur, base []uint32, m *codec.CompressionModel)
	read(r *codec.Reader, f *Field, base, dst []uint32, m *codec.CompressionModel)
	lerp(f *Field, a, b, dst []uint32, t float64)
	distance(f *Field, a, b []uint32) float64
	predictable(f *Field, word int) bool
}

func opsFor(k Kind) fieldOps {
	switch k {
	case KindUint:
		return uintOps{}
	case KindInt:
		return intOps{}
	case KindFloat, KindFloat2, KindFloat3, KindFloat4:
		return floatOps{}
	case KindQuaternion:
		return quatOps{}
	case KindFixedString:
		return stringOps{}
	case KindFixedList:
		return listOps{}
	}
	return nil
}

func laneToFloat(word uint32, q int32) float64 {
	if q > 0 {
		return codec.Dequantize(int32(word), q)
	}
	return float64(math.Float32frombits(word))
}

func overflow(f *Field, v reflect.Value, x any) error {
	return fmt.Errorf("%w: %s value %v does not fit %s", codec.ErrOverflow, f.Name, x, v.Type())
}

func setUint(f *Field, v reflect.Value, x uint64) error {
	if v.OverflowUint(x) {
		return overflow(f, v, x)
	}
	v.SetUint(x)
	return nil
}

func setInt(f *Field, v reflect.Value, x int64) error {
	if v.OverflowInt(x) {
		return overflow(f, v, x)
	}
	v.SetInt(x)
	return nil
}

func floatToLane(v float64, q int32) uint32 {
	if q > 0 {
		return uint32(codec.Quantize(v, q))
	}
	return math.Float32bits(float32(v))
}

type uintOps struct{}

func (uintOps) pack(f *Field, v reflect.Value, dst []uint32) {
	if v.Kind() == reflect.Bool {
		dst[0] = 0
		if v.Bool() {
			dst[0] = 1
		}
		return
	}
	dst[0] = uint32(v.Uint())
}

func (uintOps) unpack(f *Field, src []uint32, v reflect.Value) error {
	if v.Kind() == reflect.Bool {
		if src[0] > 1 {
			return overflow(f, v, src[0])
		}
		v.SetBool(src[0] != 0)
		return nil
	}
	return setUint(f, v, uint64(src[0]))
}

func (uintOps) write(w *codec.Writer, f *Field, cur, base []uint32, m *codec.CompressionModel) {
	w.WritePackedUintDelta(cur[0], base[0], m)
}

func (uintOps) read(r *codec.Reader, f *Field, base, dst []uint32, m *codec.CompressionModel) {
	dst[0] = r.ReadPackedUintDelta(base[0], m)
}

func (uintOps) lerp(f *Field, a, b, dst []uint32, t float64) { dst[0] = b[0] }

func (uintOps) distance(f *Field, a, b []uint32) float64 {
	return math.Abs(float64(a[0]) - float64(b[0]))
}

func (uintOps) predictable(*Field, int) bool { return false }

type intOps struct{}

func (intOps) pack(f *Field, v reflect.Value, dst []uint32) { dst[0] = uint32(int32(v.Int())) }

func (intOps) unpack(f *Field, src []uint32, v reflect.Value) error {
	return setInt(f, v, int64(int32(src[0])))
}

func (intOps) write(w *codec.Writer, f *Field, cur, base []uint32, m *codec.CompressionModel) {
	w.WritePackedIntDelta(int32(cur[0]), int32(base[0]), m)
}

func (intOps) read(r *codec.Reader, f *Field, base, dst []uint32, m *codec.CompressionModel) {
	dst[0] = uint32(r.ReadPackedIntDelta(int32(base[0]), m))
}

func (intOps) lerp(f *Field, a, b, dst []uint32, t float64) {
	x, y := float64(int32(a[0])), float64(int32(b[0]))
	dst[0] = uint32(int32(math.Round(x + (y-x)*t)))
}

func (intOps) distance(f *Field, a, b []uint32) float64 {
	return math.Abs(float64(int32(a[0])) - float64(int32(b[0])))
}

func (intOps) predictable(*Field, int) bool { return true }

// floatOps covers scalars and the composite vectors; each lane is one word.
type floatOps struct{}

func (floatOps) pack(f *Field, v reflect.Value, dst []uint32) {
	q := f.Quantization()
	if v.Kind() == reflect.Array {
		for i := range dst {
			dst[i] = floatToLane(v.Index(i).Float(), q)
		}
		return
	}
	dst[0] = floatToLane(v.Float(), q)
}

func (floatOps) unpack(f *Field, src []uint32, v reflect.Value) error {
	q := f.Quantization()
	if v.Kind() == reflect.Array {
		for i := range src {
			v.Index(i).SetFloat(laneToFloat(src[i], q))
		}
		return nil
	}
	v.SetFloat(laneToFloat(src[0], q))
	return nil
}

func (floatOps) write(w *codec.Writer, f *Field, cur, base []uint32, m *codec.CompressionModel) {
	quantized := f.Quantization() > 0
	for i := range cur {
		if quantized {
			w.WritePackedIntDelta(int32(cur[i]), int32(base[i]), m)
		} else {
			w.WriteUint32(cur[i])
		}
	}
}

func (floatOps) read(r *codec.Reader, f *Field, base, dst []uint32, m *codec.CompressionModel) {
	quantized := f.Quantization() > 0
	for i := range dst {
		if quantized {
			dst[i] = uint32(r.ReadPackedIntDelta(int32(base[i]), m))
		} else {
			dst[i] = r.ReadUint32()
		}
	}
}

func (floatOps) lerp(f *Field, a, b, dst []uint32, t float64) {
	q := f.Quantization()
	for i := range dst {
		x, y := laneToFloat(a[i], q), laneToFloat(b[i], q)
		dst[i] = floatToLane(x+(y-x)*t, q)
	}
}

func (floatOps) distance(f *Field, a, b []uint32) float64 {
	return laneDistance(f.Quantization(), a, b)
}

func (floatOps) predictable(f *Field, _ int) bool { return f.Quantization() > 0 }

func laneDistance(q int32, a, b []uint32) float64 {
	d := make(vector.Vector, len(a))
	for i := range a {
		d[i] = laneToFloat(a[i], q) - laneToFloat(b[i], q)
	}
	return d.Magnitude()
}

// quatOps shares the quantized wire form of float4 but blends with a
// normalized lerp along the shorter arc.
type quatOps struct{ floatOps }

func (quatOps) lerp(f *Field, a, b, dst []uint32, t float64) {
	q := f.Quantization()
	var qa, qb [4]float64
	dot := 0.0
	for i := 0; i < 4; i++ {
		qa[i], qb[i] = laneToFloat(a[i], q), laneToFloat(b[i], q)
		dot += qa[i] * qb[i]
	}
	if dot < 0 {
		for i := range qb {
			qb[i] = -qb[i]
		}
	}
	out := make(vector.Vector, 4)
	for i := 0; i < 4; i++ {
		out[i] = qa[i] + (qb[i]-qa[i])*t
	}
	if mag := out.Magnitude(); mag > 0 {
		out = out.Scale(1 / mag)
	}
	for i := 0; i < 4; i++ {
		dst[i] = floatToLane(out[i], q)
	}
}

type stringOps struct{}

func (stringOps) pack(f *Field, v reflect.Value, dst []uint32) {
	s := v.String()
	if len(s) > f.MaxLen {
		s = s[:f.MaxLen]
	}
	clear(dst)
	dst[0] = uint32(len(s))
	for i := 0; i < len(s); i++ {
		dst[1+i/4] |= uint32(s[i]) << (8 * (i % 4))
	}
}

func stringBytes(src []uint32) []byte {
	n := int(src[0])
	if max := (len(src) - 1) * 4; n > max {
		n = max
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(src[1+i/4] >> (8 * (i % 4)))
	}
	return b
}

func (stringOps) unpack(f *Field, src []uint32, v reflect.Value) error {
	v.SetString(string(stringBytes(src)))
	return nil
}

func (stringOps) write(w *codec.Writer, f *Field, cur, base []uint32, m *codec.CompressionModel) {
	b := stringBytes(cur)
	w.WritePackedUint(uint32(len(b)), m)
	for _, c := range b {
		w.WriteRawBits(uint32(c), 8)
	}
}

func (stringOps) read(r *codec.Reader, f *Field, base, dst []uint32, m *codec.CompressionModel) {
	n := int(r.ReadPackedUint(m))
	if n > f.MaxLen {
		r.Fail(fmt.Errorf("%w: %s length %d exceeds %d", codec.ErrOverflow, f.Name, n, f.MaxLen))
		return
	}
	clear(dst)
	dst[0] = uint32(n)
	for i := 0; i < n; i++ {
		dst[1+i/4] |= r.ReadRawBits(8) << (8 * (i % 4))
	}
}

func (stringOps) lerp(f *Field, a, b, dst []uint32, t float64) { copy(dst, b) }

func (stringOps) distance(f *Field, a, b []uint32) float64 {
	for i := range a {
		if a[i] != b[i] {
			return 1
		}
	}
	return 0
}

func (stringOps) predictable(*Field, int) bool { return false }

// listOps stores a length word followed by MaxLen element words. Unused slots
// are kept zero so a shorter baseline compares as zeros.
type listOps struct{}

func (listOps) pack(f *Field, v reflect.Value, dst []uint32) {
	clear(dst)
	n := v.Len()
	if n > f.MaxLen {
		n = f.MaxLen
	}
	dst[0] = uint32(n)
	for i := 0; i < n; i++ {
		e := v.Index(i)
		if f.Signed {
			dst[1+i] = uint32(int32(e.Int()))
		} else {
			dst[1+i] = uint32(e.Uint())
		}
	}
}

func (listOps) unpack(f *Field, src []uint32, v reflect.Value) error {
	n := int(src[0])
	if n > f.MaxLen {
		n = f.MaxLen
	}
	s := reflect.MakeSlice(v.Type(), n, n)
	for i := 0; i < n; i++ {
		var err error
		if f.Signed {
			err = setInt(f, s.Index(i), int64(int32(src[1+i])))
		} else {
			err = setUint(f, s.Index(i), uint64(src[1+i]))
		}
		if err != nil {
			return err
		}
	}
	v.Set(s)
	return nil
}

func (listOps) write(w *codec.Writer, f *Field, cur, base []uint32, m *codec.CompressionModel) {
	n := int(cur[0])
	w.WritePackedUint(uint32(n), m)
	for i := 1; i <= n; i++ {
		if f.Signed {
			w.WritePackedIntDelta(int32(cur[i]), int32(base[i]), m)
		} else {
			w.WritePackedUintDelta(cur[i], base[i], m)
		}
	}
}

func (listOps) read(r *codec.Reader, f *Field, base, dst []uint32, m *codec.CompressionModel) {
	n := int(r.ReadPackedUint(m))
	if n > f.MaxLen {
		r.Fail(fmt.Errorf("%w: %s length %d exceeds capacity %d", codec.ErrOverflow, f.Name, n, f.MaxLen))
		return
	}
	clear(dst)
	dst[0] = uint32(n)
	for i := 1; i <= n; i++ {
		if f.Signed {
			dst[i] = uint32(r.ReadPackedIntDelta(int32(base[i]), m))
		} else {
			dst[i] = r.ReadPackedUintDelta(base[i], m)
		}
	}
}

func (listOps) lerp(f *Field, a, b, dst []uint32, t float64) { copy(dst, b) }

func (listOps) distance(f *Field, a, b []uint32) float64 {
	d := 0.0
	for i := range a {
		if f.Signed {
			d += math.Abs(float64(int32(a[i])) - float64(int32(b[i])))
		} else {
			d += math.Abs(float64(a[i]) - float64(b[i]))
		}
	}
	return d
}

func (listOps) predictable(*Field, int) bool { return false }
