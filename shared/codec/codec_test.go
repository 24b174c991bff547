package codec

import (
	"errors"
	"math"
	"testing"
)

func TestRawBitsRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.WriteRawBits(5, 3)
	w.WriteBool(true)
	w.WriteUint32(0xdeadbeef)
	w.WriteRawBits(0x1ffff, 17)
	w.WriteUint64(0x0123456789abcdef)
	data := w.Bytes()
	if len(data)%4 != 0 {
		t.Fatalf("expected word aligned output, got %d bytes", len(data))
	}

	r := NewReader(data)
	if v := r.ReadRawBits(3); v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}
	if !r.ReadBool() {
		t.Fatalf("expected true")
	}
	if v := r.ReadUint32(); v != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef, got %#x", v)
	}
	if v := r.ReadRawBits(17); v != 0x1ffff {
		t.Fatalf("expected 0x1ffff, got %#x", v)
	}
	if v := r.ReadUint64(); v != 0x0123456789abcdef {
		t.Fatalf("unexpected u64 %#x", v)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
}

func TestFirstWordLayoutIsLSBFirst(t *testing.T) {
	w := NewWriter(0)
	w.WriteRawBits(1, 1)
	w.WriteRawBits(1, 2)
	data := w.Bytes()
	if len(data) != 4 || data[0] != 0x03 || data[1] != 0 {
		t.Fatalf("unexpected layout % x", data)
	}
}

func TestReaderOverflowIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 0, 0, 0})
	_ = r.ReadUint32()
	if v := r.ReadRawBits(1); v != 0 {
		t.Fatalf("expected zero after overrun, got %d", v)
	}
	if !errors.Is(r.Err(), ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", r.Err())
	}
	_ = r.ReadUint32()
	if !errors.Is(r.Err(), ErrOverflow) {
		t.Fatalf("error must stay sticky")
	}
}

func TestPackedIntegersRoundTrip(t *testing.T) {
	m := NewCompressionModel()
	unsigned := []uint32{0, 1, 2, 3, 4, 17, 255, 256, 1000, 70000, 1 << 24, math.MaxUint32 - 1, math.MaxUint32}
	signed := []int32{0, -1, 1, -64, 64, 12345, -12345, math.MaxInt32, math.MinInt32}

	w := NewWriter(0)
	for _, v := range unsigned {
		w.WritePackedUint(v, m)
	}
	for _, v := range signed {
		w.WritePackedInt(v, m)
	}
	w.WritePackedUintDelta(7, 5, m)
	w.WritePackedIntDelta(math.MinInt32, math.MaxInt32, m)

	r := NewReader(w.Bytes())
	for _, v := range unsigned {
		if got := r.ReadPackedUint(m); got != v {
			t.Fatalf("packed uint: want %d got %d", v, got)
		}
	}
	for _, v := range signed {
		if got := r.ReadPackedInt(m); got != v {
			t.Fatalf("packed int: want %d got %d", v, got)
		}
	}
	if got := r.ReadPackedUintDelta(5, m); got != 7 {
		t.Fatalf("uint delta: want 7 got %d", got)
	}
	if got := r.ReadPackedIntDelta(math.MaxInt32, m); got != math.MinInt32 {
		t.Fatalf("int delta: want MinInt32 got %d", got)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error %v", r.Err())
	}
}

func TestSmallValuesAreCheap(t *testing.T) {
	m := NewCompressionModel()
	if m.PackedUintBits(0) != 2 || m.PackedUintBits(1) != 2 {
		t.Fatalf("expected 0 and 1 to cost 2 bits")
	}
	if m.PackedUintBits(1000) >= m.PackedUintBits(1<<30) {
		t.Fatalf("expected larger values to cost more bits")
	}
}

func TestZigZag(t *testing.T) {
	for _, v := range []int32{0, -1, 1, -2, 2, math.MaxInt32, math.MinInt32} {
		if got := int32(UnZigZag(ZigZag(v))); got != v {
			t.Fatalf("zigzag round trip: want %d got %d", v, got)
		}
	}
	if ZigZag(int8(-1)) != 1 || ZigZag(int64(1)) != 2 {
		t.Fatalf("unexpected zigzag mapping")
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v      float64
		factor int32
		want   int32
	}{
		{1.0, 100, 100},
		{1.005, 100, 100},
		{1.006, 100, 101},
		{-2.5, 10, -25},
		{math.Inf(1), 100, math.MaxInt32},
		{math.NaN(), 100, 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.v, tt.factor); got != tt.want {
			t.Errorf("Quantize(%v, %d) = %d, want %d", tt.v, tt.factor, got, tt.want)
		}
	}
	if d := math.Abs(Dequantize(Quantize(3.14159, 1000), 1000) - 3.14159); d > 1.0/1000 {
		t.Fatalf("round trip error %v exceeds 1/factor", d)
	}
}
