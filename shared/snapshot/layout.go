package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/automoto/ghostsync/shared/schema"
)

// bufferAlignment is the alignment of the dynamic buffer region.
const bufferAlignment = 16

// Marshal lays a snapshot out as
//
//	[COMPONENT DATA][SIZE u32][PADDING to 16][DYNAMIC BUFFER DATA]
//
// SIZE is the byte length of the buffer region. Each buffer in it is its
// element count as u32 followed by the element words. All integers are
// little endian.
func Marshal(s *schema.Snapshot) []byte {
	bufBytes := 0
	for _, b := range s.Buffers {
		bufBytes += 4 + 4*len(b.Words)
	}
	head := 4*len(s.Words) + 4
	start := alignUp(head, bufferAlignment)

	out := make([]byte, start+bufBytes)
	for i, w := range s.Words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	binary.LittleEndian.PutUint32(out[4*len(s.Words):], uint32(bufBytes))
	off := start
	for _, b := range s.Buffers {
		binary.LittleEndian.PutUint32(out[off:], uint32(b.Len))
		off += 4
		for _, w := range b.Words {
			binary.LittleEndian.PutUint32(out[off:], w)
			off += 4
		}
	}
	return out
}

// Unmarshal parses the output of Marshal for a ghost of type gt.
func Unmarshal(gt *schema.GhostType, data []byte) (*schema.Snapshot, error) {
	head := 4*gt.Words + 4
	if len(data) < head {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformed, len(data), head)
	}
	s := gt.NewSnapshot()
	for i := range s.Words {
		s.Words[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	size := int(binary.LittleEndian.Uint32(data[4*gt.Words:]))
	start := alignUp(head, bufferAlignment)
	if size == 0 && len(gt.Buffers) == 0 {
		return s, nil
	}
	if len(data) != start+size {
		return nil, fmt.Errorf("%w: buffer region is %d bytes, header says %d", ErrMalformed, len(data)-start, size)
	}
	off := start
	for i, b := range gt.Buffers {
		if off+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated buffer %s", ErrMalformed, b.Name)
		}
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		words := n * b.Elem.Words
		if n > b.MaxElements || off+4*words > len(data) {
			return nil, fmt.Errorf("%w: buffer %s with %d elements", ErrMalformed, b.Name, n)
		}
		s.Buffers[i] = schema.BufferData{Len: n, Words: make([]uint32, words)}
		for j := range s.Buffers[i].Words {
			s.Buffers[i].Words[j] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
	}
	return s, nil
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}
