// Package codec holds the bit-level primitives every snapshot and command
// stream is built from: a bit-exact writer/reader pair, the shared packed
// integer compression model, zig-zag mapping and float quantization.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOverflow is reported when a reader runs past the end of its data or a
// length field exceeds its declared bound.
var ErrOverflow = errors.New("codec: read past end of stream")

// Writer accumulates bits LSB-first into little-endian 32-bit words.
type Writer struct {
	buf     []byte
	scratch uint64
	used    uint
	bits    int
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// WriteRawBits appends the low n bits of v (n in [0,32]).
func (w *Writer) WriteRawBits(v uint32, n uint) {
	if n == 0 {
		return
	}
	if n < 32 {
		v &= (1 << n) - 1
	}
	w.scratch |= uint64(v) << w.used
	w.used += n
	w.bits += int(n)
	for w.used >= 32 {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(w.scratch))
		w.scratch >>= 32
		w.used -= 32
	}
}

func (w *Writer) WriteBool(b bool) {
	if b {
		w.WriteRawBits(1, 1)
		return
	}
	w.WriteRawBits(0, 1)
}

func (w *Writer) WriteUint32(v uint32) { w.WriteRawBits(v, 32) }

func (w *Writer) WriteUint64(v uint64) {
	w.WriteRawBits(uint32(v), 32)
	w.WriteRawBits(uint32(v>>32), 32)
}

// WritePackedUint writes v using the model's bucket code.
func (w *Writer) WritePackedUint(v uint32, m *CompressionModel) {
	m.encode(w, v)
}

// WritePackedInt writes v zig-zag mapped through the model.
func (w *Writer) WritePackedInt(v int32, m *CompressionModel) {
	m.encode(w, uint32(ZigZag(v)))
}

// WritePackedUintDelta writes an unsigned field relative to its baseline. The
// XOR keeps flag and enum deltas in the cheapest buckets.
func (w *Writer) WritePackedUintDelta(v, baseline uint32, m *CompressionModel) {
	m.encode(w, v^baseline)
}

// WritePackedIntDelta writes a signed field as the zig-zag of its wrapping
// difference from the baseline.
func (w *Writer) WritePackedIntDelta(v, baseline int32, m *CompressionModel) {
	w.WritePackedInt(v-baseline, m)
}

// Flush pads the pending bits to a word boundary.
func (w *Writer) Flush() {
	if w.used == 0 {
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(w.scratch))
	w.bits += int(32 - w.used)
	w.scratch = 0
	w.used = 0
}

// LengthInBits reports how many bits have been written, including flush padding.
func (w *Writer) LengthInBits() int { return w.bits }

// Bytes flushes and returns the encoded stream.
func (w *Writer) Bytes() []byte {
	w.Flush()
	return w.buf
}

// Reader mirrors Writer. Errors are sticky: after the first overrun every read
// returns zero and Err reports ErrOverflow.
type Reader struct {
	data    []byte
	pos     int
	scratch uint64
	avail   uint
	err     error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fill(n uint) bool {
	for r.avail < n {
		if r.pos+4 > len(r.data) {
			return false
		}
		r.scratch |= uint64(binary.LittleEndian.Uint32(r.data[r.pos:])) << r.avail
		r.pos += 4
		r.avail += 32
	}
	return true
}

func (r *Reader) ReadRawBits(n uint) uint32 {
	if n == 0 || r.err != nil {
		return 0
	}
	if !r.fill(n) {
		r.err = fmt.Errorf("%w: need %d bits at byte %d of %d", ErrOverflow, n, r.pos, len(r.data))
		return 0
	}
	v := uint32(r.scratch)
	if n < 32 {
		v &= (1 << n) - 1
	}
	r.scratch >>= n
	r.avail -= n
	return v
}

func (r *Reader) ReadBool() bool { return r.ReadRawBits(1) == 1 }

func (r *Reader) ReadUint32() uint32 { return r.ReadRawBits(32) }

func (r *Reader) ReadUint64() uint64 {
	lo := r.ReadRawBits(32)
	hi := r.ReadRawBits(32)
	return uint64(hi)<<32 | uint64(lo)
}

func (r *Reader) ReadPackedUint(m *CompressionModel) uint32 {
	if r.err != nil {
		return 0
	}
	return m.decode(r)
}

func (r *Reader) ReadPackedInt(m *CompressionModel) int32 {
	return int32(UnZigZag(uint64(r.ReadPackedUint(m))))
}

func (r *Reader) ReadPackedUintDelta(baseline uint32, m *CompressionModel) uint32 {
	return r.ReadPackedUint(m) ^ baseline
}

func (r *Reader) ReadPackedIntDelta(baseline int32, m *CompressionModel) int32 {
	return baseline + r.ReadPackedInt(m)
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Fail records err unless an earlier error is already set. Decoders use it
// to report malformed length fields through the same sticky channel.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
