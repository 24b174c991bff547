package snapshot

import (
	"fmt"

	"github.com/automoto/ghostsync/shared/codec"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/tick"
)

// maskWindow is the number of change-mask bits per mask word.
const maskWindow = 32

// BaselineSource resolves baselines on the decoding side.
type BaselineSource interface {
	Baseline(id ghostid.ID, t tick.Tick) (*schema.Snapshot, bool)
}

// EncodeGhost writes one ghost record. bases holds zero, one or three
// baselines, newest first, all of which the receiver is known to hold, or
// the single PrespawnBaseline of the ghost.
func EncodeGhost(w *codec.Writer, rec Record, bases []Baseline) error {
	if n := len(bases); n != 0 && n != 1 && n != MaxBaselines {
		return fmt.Errorf("%w: %d baselines", ErrBaselineMismatch, n)
	}
	gt, m := rec.Type, rec.Type.Model()
	prespawn := len(bases) == 1 && bases[0].prespawn()
	for _, b := range bases {
		if len(b.Snapshot.Words) != gt.Words {
			return fmt.Errorf("%w: %s baseline at %d has %d words", ErrBaselineMismatch, gt.Name, b.Tick, len(b.Snapshot.Words))
		}
		if !prespawn && !tick.IsNewer(rec.Tick, b.Tick) {
			return fmt.Errorf("%w: baseline %d is not before %d", ErrBaselineMismatch, b.Tick, rec.Tick)
		}
	}

	w.WriteUint32(uint32(rec.Tick))
	w.WriteUint32(uint32(rec.ID))
	w.WritePackedUint(gt.Index, m)
	if prespawn {
		w.WriteRawBits(prespawnCode, 2)
	} else {
		w.WriteRawBits(uint32(len(bases)), 2)
		for _, b := range bases {
			w.WritePackedUint(uint32(tick.Diff(rec.Tick, b.Tick)), m)
		}
	}

	ref := reference(gt, rec.Tick, bases)
	writeFields(w, &gt.Layout, rec.Snapshot, ref, m)
	writeBuffers(w, gt, rec.Snapshot, ref, m)
	return nil
}

// writeFields emits the mask word and the changed payloads of every
// 32-group window in declaration order.
func writeFields(w *codec.Writer, l *schema.Layout, cur, ref *schema.Snapshot, m *codec.CompressionModel) {
	bits := l.MaskBits()
	for start := 0; start < bits; start += maskWindow {
		end := min(start+maskWindow, bits)
		var mask uint32
		for g := start; g < end; g++ {
			if groupChanged(l, g, cur, ref) {
				mask |= 1 << (g - start)
			}
		}
		w.WriteRawBits(mask, uint(end-start))
		for g := start; g < end; g++ {
			if mask&(1<<(g-start)) == 0 {
				continue
			}
			if bi := l.GroupBuffer(g); bi >= 0 {
				w.WritePackedUint(uint32(cur.Buffers[bi].Len), m)
				continue
			}
			l.WriteGroup(w, g, cur.Words, ref.Words, m)
		}
	}
}

func groupChanged(l *schema.Layout, g int, cur, ref *schema.Snapshot) bool {
	if bi := l.GroupBuffer(g); bi >= 0 {
		return bufferLen(cur, bi) != bufferLen(ref, bi)
	}
	return l.GroupChanged(g, cur.Words, ref.Words)
}

func bufferLen(s *schema.Snapshot, i int) int {
	if i < len(s.Buffers) {
		return s.Buffers[i].Len
	}
	return 0
}

// elemWords returns element e of buffer bi, or nil past its length.
func elemWords(s *schema.Snapshot, bi, e, words int) []uint32 {
	if bi >= len(s.Buffers) || e >= s.Buffers[bi].Len {
		return nil
	}
	return s.Buffers[bi].Words[e*words : (e+1)*words]
}

// writeBuffers emits, per buffer, a contents-changed flag and when set the
// element count followed by every element as a nested windowed delta against
// the reference element (zeros past the reference length).
func writeBuffers(w *codec.Writer, gt *schema.GhostType, cur, ref *schema.Snapshot, m *codec.CompressionModel) {
	for bi, b := range gt.Buffers {
		n := bufferLen(cur, bi)
		ew := b.Elem.Words
		zero := make([]uint32, ew)
		changed := false
		for e := 0; e < n && !changed; e++ {
			base := elemWords(ref, bi, e, ew)
			if base == nil {
				base = zero
			}
			c := elemWords(cur, bi, e, ew)
			for i := range c {
				if c[i] != base[i] {
					changed = true
					break
				}
			}
		}
		w.WriteBool(changed)
		if !changed {
			continue
		}
		w.WritePackedUint(uint32(n), m)
		for e := 0; e < n; e++ {
			base := elemWords(ref, bi, e, ew)
			if base == nil {
				base = zero
			}
			writeFields(w, &b.Elem, &schema.Snapshot{Words: elemWords(cur, bi, e, ew)}, &schema.Snapshot{Words: base}, m)
		}
	}
}

// DecodeGhost reads one ghost record. When the record is syntactically valid
// but a baseline is unavailable, its bits are still consumed against a zero
// reference so the stream stays aligned, and the error wraps
// ErrMissingBaseline; the caller discards that ghost for this tick and may go
// on with the next record. A stored baseline of the wrong shape counts as
// missing. Any other error leaves the stream unusable.
func DecodeGhost(r *codec.Reader, reg TypeRegistry, src BaselineSource) (Record, error) {
	m := reg.Model()
	rec := Record{
		Tick: tick.Tick(r.ReadUint32()),
		ID:   ghostid.ID(r.ReadUint32()),
	}
	typeIndex := r.ReadPackedUint(m)
	count := int(r.ReadRawBits(2))
	if err := r.Err(); err != nil {
		return rec, err
	}
	gt, ok := reg.TypeByIndex(typeIndex)
	if !ok {
		return rec, fmt.Errorf("%w: index %d for ghost %s", ErrUnknownType, typeIndex, rec.ID)
	}
	rec.Type = gt
	prespawn := count == prespawnCode
	if prespawn {
		count = 1
	}

	bases := make([]Baseline, count)
	var missing error
	for i := range bases {
		bt := tick.Invalid
		if !prespawn {
			bt = rec.Tick.Add(-int32(r.ReadPackedUint(m)))
		}
		s, ok := src.Baseline(rec.ID, bt)
		switch {
		case !ok:
			missing = fmt.Errorf("%w: ghost %s tick %d", ErrMissingBaseline, rec.ID, bt)
		case len(s.Words) != gt.Words:
			missing = fmt.Errorf("%w: %w: ghost %s baseline at %d is not a %s", ErrMissingBaseline, ErrBaselineMismatch, rec.ID, bt, gt.Name)
		}
		bases[i] = Baseline{Tick: bt, Snapshot: s}
	}
	if missing != nil {
		bases = nil
	}

	ref := reference(gt, rec.Tick, bases)
	cur := gt.NewSnapshot()
	readFields(r, &gt.Layout, cur, ref, m)
	readBuffers(r, gt, cur, ref, m)
	if err := r.Err(); err != nil {
		return rec, err
	}
	if missing != nil {
		return rec, missing
	}
	rec.Snapshot = cur
	return rec, nil
}

// TypeRegistry is the part of schema.Registry the decoder needs.
type TypeRegistry interface {
	Model() *codec.CompressionModel
	TypeByIndex(i uint32) (*schema.GhostType, bool)
}

func readFields(r *codec.Reader, l *schema.Layout, dst, ref *schema.Snapshot, m *codec.CompressionModel) {
	bits := l.MaskBits()
	for start := 0; start < bits; start += maskWindow {
		end := min(start+maskWindow, bits)
		mask := r.ReadRawBits(uint(end - start))
		for g := start; g < end; g++ {
			changed := mask&(1<<(g-start)) != 0
			if bi := l.GroupBuffer(g); bi >= 0 {
				n := bufferLen(ref, bi)
				if changed {
					n = int(r.ReadPackedUint(m))
				}
				if bi < len(dst.Buffers) {
					dst.Buffers[bi].Len = n
				}
				continue
			}
			if changed {
				l.ReadGroup(r, g, ref.Words, dst.Words, m)
			} else {
				l.CopyGroup(g, ref.Words, dst.Words)
			}
		}
	}
}

func readBuffers(r *codec.Reader, gt *schema.GhostType, dst, ref *schema.Snapshot, m *codec.CompressionModel) {
	for bi, b := range gt.Buffers {
		n := dst.Buffers[bi].Len
		ew := b.Elem.Words
		if n > b.MaxElements {
			r.Fail(fmt.Errorf("%w: buffer %s length %d exceeds %d", codec.ErrOverflow, b.Name, n, b.MaxElements))
			return
		}
		changed := r.ReadBool()
		if changed {
			sent := int(r.ReadPackedUint(m))
			if sent > b.MaxElements {
				r.Fail(fmt.Errorf("%w: buffer %s carries %d elements", codec.ErrOverflow, b.Name, sent))
				return
			}
			n = sent
			dst.Buffers[bi].Len = n
		}
		words := make([]uint32, n*ew)
		zero := make([]uint32, ew)
		for e := 0; e < n; e++ {
			base := elemWords(ref, bi, e, ew)
			if base == nil {
				base = zero
			}
			out := words[e*ew : (e+1)*ew]
			if changed {
				readFields(r, &b.Elem, &schema.Snapshot{Words: out}, &schema.Snapshot{Words: base}, m)
			} else {
				copy(out, base)
			}
		}
		dst.Buffers[bi].Words = words
	}
}
