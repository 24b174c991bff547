package codec

import "math/bits"

const bucketCount = 16

// Raw payload bits carried by each bucket. Bucket 0 is the value 0 and bucket 1
// the value 1; larger buckets cover progressively wider ranges.
var bucketBits = [bucketCount]uint{0, 0, 1, 2, 3, 4, 6, 8, 10, 12, 15, 18, 21, 24, 27, 32}

// Prefix code lengths per bucket, skewed towards small values.
var bucketCodeLengths = [bucketCount]uint{2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 8, 8}

// CompressionModel is the shared bucketed prefix code used for every packed
// integer on the wire. Both peers must build it the same way; it is immutable
// after construction and safe for concurrent use.
type CompressionModel struct {
	offsets [bucketCount + 1]uint64
	codes   [bucketCount]uint32
	// canonical decode tables indexed by code length
	firstCode [9]uint32
	count     [9]uint32
	symStart  [9]uint32
	symbols   [bucketCount]uint8
}

func NewCompressionModel() *CompressionModel {
	m := &CompressionModel{}
	for i := 0; i < bucketCount; i++ {
		m.offsets[i+1] = m.offsets[i] + 1<<bucketBits[i]
	}

	// Canonical prefix code: symbols sorted by (length, index).
	n := 0
	for l := uint(1); l <= 8; l++ {
		m.symStart[l] = uint32(n)
		for s := 0; s < bucketCount; s++ {
			if bucketCodeLengths[s] == l {
				m.symbols[n] = uint8(s)
				n++
				m.count[l]++
			}
		}
	}
	code := uint32(0)
	for l := uint(1); l <= 8; l++ {
		m.firstCode[l] = code
		for i := uint32(0); i < m.count[l]; i++ {
			m.codes[m.symbols[m.symStart[l]+i]] = code
			code++
		}
		code <<= 1
	}
	return m
}

func (m *CompressionModel) bucketFor(v uint32) int {
	for b := 0; b < bucketCount-1; b++ {
		if uint64(v) < m.offsets[b+1] {
			return b
		}
	}
	return bucketCount - 1
}

func (m *CompressionModel) encode(w *Writer, v uint32) {
	b := m.bucketFor(v)
	l := bucketCodeLengths[b]
	// Prefix codes go out MSB first so the decoder can walk them bit by bit.
	w.WriteRawBits(bits.Reverse32(m.codes[b])>>(32-l), l)
	w.WriteRawBits(uint32(uint64(v)-m.offsets[b]), bucketBits[b])
}

func (m *CompressionModel) decode(r *Reader) uint32 {
	code := uint32(0)
	for l := uint(1); l <= 8; l++ {
		code = code<<1 | r.ReadRawBits(1)
		if r.err != nil {
			return 0
		}
		if idx := code - m.firstCode[l]; code >= m.firstCode[l] && idx < m.count[l] {
			b := m.symbols[m.symStart[l]+idx]
			return uint32(m.offsets[b] + uint64(r.ReadRawBits(bucketBits[b])))
		}
	}
	r.Fail(ErrOverflow)
	return 0
}

// PackedUintBits reports the encoded size of v in bits.
func (m *CompressionModel) PackedUintBits(v uint32) int {
	b := m.bucketFor(v)
	return int(bucketCodeLengths[b] + bucketBits[b])
}
