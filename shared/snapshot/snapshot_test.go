package snapshot

import (
	"errors"
	"math"
	"testing"

	"github.com/automoto/ghostsync/shared/codec"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/tick"
)

type cargo struct {
	Kind   uint16 `ghost:""`
	Amount int32  `ghost:""`
}

type crate struct {
	Position schema.Float3 `ghost:"quant=100,smooth=interp"`
	Heading  float32       `ghost:"quant=1000"`
	HP       int16         `ghost:""`
	Flags    uint8         `ghost:""`
	Label    string        `ghost:"maxlen=12"`
	Slots    []uint8       `ghost:"cap=6"`
	Cargo    []cargo       `ghost:"cap=8"`
}

type wide struct {
	F00, F01, F02, F03, F04, F05, F06, F07, F08, F09 int32 `ghost:""`
	F10, F11, F12, F13, F14, F15, F16, F17, F18, F19 int32 `ghost:""`
	F20, F21, F22, F23, F24, F25, F26, F27, F28, F29 int32 `ghost:""`
	F30, F31, F32, F33, F34, F35, F36, F37, F38, F39 int32 `ghost:""`
}

type scalar struct {
	X float32 `ghost:"quant=100"`
}

func newRegistry(t *testing.T) (*schema.Registry, *schema.GhostType) {
	t.Helper()
	reg := schema.NewRegistry()
	gt, err := reg.Register("crate", crate{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg, gt
}

func mustPack(t *testing.T, gt *schema.GhostType, v any) *schema.Snapshot {
	t.Helper()
	s, err := gt.Pack(v)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return s
}

func roundTrip(t *testing.T, reg *schema.Registry, rec Record, bases []Baseline, hist BaselineSource) (Record, int) {
	t.Helper()
	w := codec.NewWriter(0)
	if err := EncodeGhost(w, rec, bases); err != nil {
		t.Fatalf("encode: %v", err)
	}
	bits := w.LengthInBits()
	r := codec.NewReader(w.Bytes())
	out, err := DecodeGhost(r, reg, hist)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out, bits
}

func TestRoundTripIsBitExact(t *testing.T) {
	reg, gt := newRegistry(t)
	hist := NewHistory(8)
	id := ghostid.ID(7)

	base := mustPack(t, gt, &crate{
		Position: schema.Float3{1, 2, 3},
		HP:       100,
		Label:    "crate",
		Slots:    []uint8{1, 2, 3},
		Cargo:    []cargo{{Kind: 1, Amount: 10}, {Kind: 2, Amount: 20}, {Kind: 3, Amount: 30}},
	})
	if err := hist.Push(id, 10, base); err != nil {
		t.Fatalf("push: %v", err)
	}

	cases := []struct {
		name  string
		value crate
	}{
		{"unchanged", crate{Position: schema.Float3{1, 2, 3}, HP: 100, Label: "crate", Slots: []uint8{1, 2, 3},
			Cargo: []cargo{{1, 10}, {2, 20}, {3, 30}}}},
		{"moved", crate{Position: schema.Float3{-4.56, 2, 1e4}, Heading: 3.14159, HP: -3, Flags: 0xff, Label: "renamed crate",
			Slots: []uint8{9}, Cargo: []cargo{{1, 10}, {2, -20}}}},
		{"grown buffer", crate{Cargo: []cargo{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {0, 0}}}},
		{"shrunk unchanged prefix", crate{Position: schema.Float3{1, 2, 3}, HP: 100, Label: "crate", Slots: []uint8{1, 2, 3},
			Cargo: []cargo{{1, 10}}}},
		{"emptied", crate{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cur := mustPack(t, gt, &tc.value)
			for _, bases := range [][]Baseline{nil, {{Tick: 10, Snapshot: base}}} {
				out, _ := roundTrip(t, reg, Record{Tick: 11, ID: id, Type: gt, Snapshot: cur}, bases, hist)
				if !out.Snapshot.Equal(cur) {
					t.Fatalf("decoded image differs with %d baselines\nwant %+v\ngot  %+v", len(bases), cur, out.Snapshot)
				}
				if out.Tick != 11 || out.ID != id || out.Type != gt {
					t.Fatalf("header mismatch: %+v", out)
				}
			}
		})
	}
}

func TestQuantizedRoundTripError(t *testing.T) {
	reg, gt := newRegistry(t)
	in := crate{Position: schema.Float3{0.123456, -98.7654, 3.3333}, Heading: -1.23456}
	out, _ := roundTrip(t, reg, Record{Tick: 1, ID: 1, Type: gt, Snapshot: mustPack(t, gt, &in)}, nil, NewHistory(1))
	var got crate
	if err := gt.Unpack(out.Snapshot, &got); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	for i := range in.Position {
		if d := math.Abs(float64(in.Position[i] - got.Position[i])); d > 1.0/100 {
			t.Fatalf("lane %d error %v > 1/100", i, d)
		}
	}
	if d := math.Abs(float64(in.Heading - got.Heading)); d > 1.0/1000 {
		t.Fatalf("heading error %v > 1/1000", d)
	}
}

func headerBits(m *codec.CompressionModel, typeIndex uint32, deltas ...uint32) int {
	n := 32 + 32 + m.PackedUintBits(typeIndex) + 2
	for _, d := range deltas {
		n += m.PackedUintBits(d)
	}
	return n
}

func TestUnchangedFieldsCostOnlyMaskBits(t *testing.T) {
	reg, gt := newRegistry(t)
	m := reg.Model()
	hist := NewHistory(4)
	v := crate{Position: schema.Float3{5, 5, 5}, HP: 10, Label: "a", Slots: []uint8{4}, Cargo: []cargo{{1, 1}}}
	base := mustPack(t, gt, &v)
	_ = hist.Push(3, 20, base)
	bases := []Baseline{{Tick: 20, Snapshot: base}}

	_, same := roundTrip(t, reg, Record{Tick: 21, ID: 3, Type: gt, Snapshot: base.Clone()}, bases, hist)
	want := headerBits(m, gt.Index, 1) + gt.MaskBits() + len(gt.Buffers)
	if same != want {
		t.Fatalf("all-unchanged record is %d bits, want %d", same, want)
	}

	v.HP = 11
	_, one := roundTrip(t, reg, Record{Tick: 21, ID: 3, Type: gt, Snapshot: mustPack(t, gt, &v)}, bases, hist)
	// zig-zag(+1) = 2 lands in the second bucket.
	if extra := one - same; extra != m.PackedUintBits(2) {
		t.Fatalf("one changed field added %d bits, want %d", extra, m.PackedUintBits(2))
	}
}

func TestQuantizationNoOpDelta(t *testing.T) {
	reg := schema.NewRegistry()
	gt := reg.MustRegister("scalar", scalar{})
	m := reg.Model()
	hist := NewHistory(4)

	s0 := mustPack(t, gt, &scalar{X: 1.0})
	if int32(s0.Words[0]) != 100 {
		t.Fatalf("expected wire value 100, got %d", int32(s0.Words[0]))
	}
	first, _ := roundTrip(t, reg, Record{Tick: 1, ID: 1, Type: gt, Snapshot: s0}, nil, hist)
	var x scalar
	_ = gt.Unpack(first.Snapshot, &x)
	if x.X != 1.0 {
		t.Fatalf("expected 1.0, got %v", x.X)
	}
	_ = hist.Push(1, 1, first.Snapshot)

	s1 := mustPack(t, gt, &scalar{X: 1.005})
	out, bits := roundTrip(t, reg, Record{Tick: 2, ID: 1, Type: gt, Snapshot: s1}, []Baseline{{Tick: 1, Snapshot: s0}}, hist)
	if bits != headerBits(m, gt.Index, 1)+1 {
		t.Fatalf("expected a clear mask bit and no payload, got %d bits", bits)
	}
	_ = gt.Unpack(out.Snapshot, &x)
	if x.X != 1.0 {
		t.Fatalf("expected value to stay 1.0, got %v", x.X)
	}
}

func TestMaskWindowsSpanMoreThan32Fields(t *testing.T) {
	reg := schema.NewRegistry()
	gt := reg.MustRegister("wide", wide{})
	if gt.MaskBits() != 40 {
		t.Fatalf("expected 40 mask bits, got %d", gt.MaskBits())
	}
	hist := NewHistory(2)
	base := mustPack(t, gt, &wide{})
	_ = hist.Push(9, 4, base)
	cur := mustPack(t, gt, &wide{F00: 1, F31: -1, F32: 7, F39: 1 << 20})
	out, _ := roundTrip(t, reg, Record{Tick: 5, ID: 9, Type: gt, Snapshot: cur}, []Baseline{{Tick: 4, Snapshot: base}}, hist)
	if !out.Snapshot.Equal(cur) {
		t.Fatalf("wide record did not round trip")
	}
}

func TestThreeBaselinePrediction(t *testing.T) {
	reg, gt := newRegistry(t)
	m := reg.Model()
	hist := NewHistory(8)
	var bases []Baseline
	for i, tk := range []tick.Tick{30, 28, 26} {
		s := mustPack(t, gt, &crate{Position: schema.Float3{float32(10 - 2*i), 0, 0}, HP: int16(50 - 5*i)})
		bases = append(bases, Baseline{Tick: tk, Snapshot: s})
	}
	for i := len(bases) - 1; i >= 0; i-- {
		_ = hist.Push(4, bases[i].Tick, bases[i].Snapshot)
	}

	// Steady motion lands exactly on the prediction.
	cur := mustPack(t, gt, &crate{Position: schema.Float3{12, 0, 0}, HP: 55})
	out, bits := roundTrip(t, reg, Record{Tick: 32, ID: 4, Type: gt, Snapshot: cur}, bases, hist)
	if !out.Snapshot.Equal(cur) {
		t.Fatalf("predicted record did not round trip")
	}
	if want := headerBits(m, gt.Index, 2, 4, 6) + gt.MaskBits() + len(gt.Buffers); bits != want {
		t.Fatalf("steady motion should encode as unchanged: %d bits, want %d", bits, want)
	}

	// Unequal spacing falls back to baseline 0.
	bases[2].Tick = 25
	_ = hist.Push(5, 25, bases[2].Snapshot)
	_ = hist.Push(5, 28, bases[1].Snapshot)
	_ = hist.Push(5, 30, bases[0].Snapshot)
	out, _ = roundTrip(t, reg, Record{Tick: 32, ID: 5, Type: gt, Snapshot: cur}, bases, hist)
	if !out.Snapshot.Equal(cur) {
		t.Fatalf("fallback record did not round trip")
	}
}

func TestPacketSkipsGhostWithMissingBaseline(t *testing.T) {
	reg, gt := newRegistry(t)
	m := reg.Model()
	server := NewHistory(4)
	client := NewHistory(4)

	a := mustPack(t, gt, &crate{HP: 1, Cargo: []cargo{{1, 1}}})
	b := mustPack(t, gt, &crate{HP: 2, Label: "b"})
	_ = server.Push(1, 5, a)
	_ = server.Push(2, 5, b)
	_ = client.Push(2, 5, b)

	a2 := mustPack(t, gt, &crate{HP: 3, Cargo: []cargo{{1, 2}, {5, 5}}})
	b2 := mustPack(t, gt, &crate{HP: 4, Label: "b2"})
	p := &Packet{
		ServerTick: 6,
		Despawns:   []ghostid.ID{9, ghostid.PrespawnBase | 3},
		Ghosts: []GhostDelta{
			{Record: Record{Tick: 6, ID: 1, Type: gt, Snapshot: a2}, Baselines: []Baseline{{Tick: 5, Snapshot: a}}},
			{Record: Record{Tick: 6, ID: 2, Type: gt, Snapshot: b2}, Baselines: []Baseline{{Tick: 5, Snapshot: b}}},
		},
	}
	data, err := EncodePacket(p, m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	d, err := DecodePacket(data, reg, client)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ServerTick != 6 || len(d.Despawns) != 2 || d.Despawns[1] != ghostid.PrespawnBase|3 {
		t.Fatalf("unexpected packet header %+v", d)
	}
	if d.Complete() || len(d.Discarded) != 1 || d.Discarded[0].ID != 1 || !errors.Is(d.Discarded[0].Err, ErrMissingBaseline) {
		t.Fatalf("expected ghost 1 discarded, got %+v", d.Discarded)
	}
	if len(d.Ghosts) != 1 || d.Ghosts[0].ID != 2 || !d.Ghosts[0].Snapshot.Equal(b2) {
		t.Fatalf("ghost after the discarded one must still decode: %+v", d.Ghosts)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	reg, _ := newRegistry(t)
	w := codec.NewWriter(0)
	w.WriteUint32(3)
	w.WriteUint32(1)
	w.WritePackedUint(5, reg.Model())
	w.WriteRawBits(0, 2)
	if _, err := DecodeGhost(codec.NewReader(w.Bytes()), reg, NewHistory(1)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestEncodeRejectsTwoBaselines(t *testing.T) {
	_, gt := newRegistry(t)
	s := gt.NewSnapshot()
	err := EncodeGhost(codec.NewWriter(0), Record{Tick: 9, ID: 1, Type: gt, Snapshot: s},
		[]Baseline{{Tick: 8, Snapshot: s}, {Tick: 7, Snapshot: s}})
	if !errors.Is(err, ErrBaselineMismatch) {
		t.Fatalf("expected ErrBaselineMismatch, got %v", err)
	}
}

// baked serves one prespawn baseline on top of a history.
type baked struct {
	*History
	id   ghostid.ID
	base *schema.Snapshot
}

func (b baked) Baseline(id ghostid.ID, t tick.Tick) (*schema.Snapshot, bool) {
	if t == tick.Invalid && id == b.id {
		return b.base, true
	}
	return b.History.Baseline(id, t)
}

func TestPrespawnBaselineReference(t *testing.T) {
	reg, gt := newRegistry(t)
	id := ghostid.PrespawnBase | 4
	base := mustPack(t, gt, &crate{Position: schema.Float3{120, 64, 0}, HP: 50, Label: "barrel", Slots: []uint8{1, 1}})
	cur := mustPack(t, gt, &crate{Position: schema.Float3{120, 64, 0}, HP: 42, Label: "barrel", Slots: []uint8{1, 1}})
	rec := Record{Tick: 30, ID: id, Type: gt, Snapshot: cur}
	src := baked{History: NewHistory(4), id: id, base: base}

	out, prespawnBits := roundTrip(t, reg, rec, []Baseline{PrespawnBaseline(base)}, src)
	if !out.Snapshot.Equal(cur) {
		t.Fatalf("decoded image differs\nwant %+v\ngot  %+v", cur, out.Snapshot)
	}

	w := codec.NewWriter(0)
	if err := EncodeGhost(w, rec, []Baseline{PrespawnBaseline(base)}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeGhost(codec.NewReader(w.Bytes()), reg, src.History); !errors.Is(err, ErrMissingBaseline) {
		t.Fatalf("expected ErrMissingBaseline without the baked state, got %v", err)
	}

	_, zeroBits := roundTrip(t, reg, rec, nil, src.History)
	if prespawnBits >= zeroBits {
		t.Fatalf("prespawn reference costs %d bits, zero reference %d", prespawnBits, zeroBits)
	}
}

func TestRingOrderingAndLookup(t *testing.T) {
	r := NewRing(3)
	for _, tk := range []tick.Tick{10, 20, 30} {
		if err := r.Push(tk, &schema.Snapshot{Words: []uint32{uint32(tk)}}); err != nil {
			t.Fatalf("push %d: %v", tk, err)
		}
	}
	if e, ok := r.AtOrBefore(25); !ok || e.Tick != 20 {
		t.Fatalf("AtOrBefore(25) = %v %v, want 20", e.Tick, ok)
	}
	if _, ok := r.AtOrBefore(5); ok {
		t.Fatalf("AtOrBefore(5) must miss")
	}
	if e, ok := r.AtOrBefore(30); !ok || e.Tick != 30 {
		t.Fatalf("AtOrBefore(30) = %v", e.Tick)
	}
	if err := r.Push(15, nil); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	if err := r.Push(40, nil); err != nil {
		t.Fatalf("push 40: %v", err)
	}
	if e, _ := r.Oldest(); e.Tick != 20 || r.Len() != 3 {
		t.Fatalf("expected tick 10 evicted, oldest is %d", e.Tick)
	}
	from, to, ok, hasTo := r.Bracket(25)
	if !ok || !hasTo || from.Tick != 20 || to.Tick != 30 {
		t.Fatalf("Bracket(25) = %d %d %v %v", from.Tick, to.Tick, ok, hasTo)
	}
}

func TestRingAcrossWraparound(t *testing.T) {
	r := NewRing(4)
	start := tick.Tick(math.MaxUint32 - 1)
	for i := int32(0); i < 4; i++ {
		if err := r.Push(start.Add(i*2), nil); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	if e, ok := r.AtOrBefore(start.Add(3)); !ok || e.Tick != start.Add(2) {
		t.Fatalf("lookup across wrap returned %d", e.Tick)
	}
	if _, ok := r.At(start.Add(4)); !ok {
		t.Fatalf("exact lookup across wrap failed")
	}
}

func TestAckWindow(t *testing.T) {
	var a AckWindow
	if a.Contains(1) {
		t.Fatalf("empty window must not contain anything")
	}
	a.Mark(100)
	a.Mark(98)
	a.Mark(103)
	for _, tk := range []tick.Tick{103, 100, 98} {
		if !a.Contains(tk) {
			t.Fatalf("expected %d acked", tk)
		}
	}
	if a.Contains(99) || a.Contains(104) {
		t.Fatalf("unexpected ack")
	}

	var server AckWindow
	newest, mask := a.State()
	server.Merge(newest, mask)
	server.Merge(90, 1)
	if !server.Contains(98) || !server.Contains(90) {
		t.Fatalf("merge lost bits")
	}
	server.Merge(103+AckWindowSize, 1)
	if server.Contains(103) {
		t.Fatalf("ticks older than the window must drop out")
	}
}

func TestSelectBaselines(t *testing.T) {
	hist := NewRing(8)
	var acks AckWindow
	for _, tk := range []tick.Tick{2, 4, 6, 8, 10} {
		_ = hist.Push(tk, &schema.Snapshot{})
	}
	if got := SelectBaselines(hist, &acks, 12, true); len(got) != 0 {
		t.Fatalf("nothing acked yet, got %d baselines", len(got))
	}
	acks.Mark(4)
	acks.Mark(8)
	if got := SelectBaselines(hist, &acks, 12, true); len(got) != 1 || got[0].Tick != 8 {
		t.Fatalf("two acked entries must fall back to one, got %+v", got)
	}
	acks.Mark(10)
	got := SelectBaselines(hist, &acks, 12, true)
	if len(got) != 3 || got[0].Tick != 10 || got[1].Tick != 8 || got[2].Tick != 4 {
		t.Fatalf("unexpected selection %+v", got)
	}
	if got := SelectBaselines(hist, &acks, 10, false); len(got) != 1 || got[0].Tick != 8 {
		t.Fatalf("baseline must be older than the target, got %+v", got)
	}
}

func TestMarshalLayout(t *testing.T) {
	_, gt := newRegistry(t)
	s := mustPack(t, gt, &crate{HP: 7, Label: "x", Cargo: []cargo{{1, 2}, {3, 4}}})
	data := Marshal(s)

	head := 4*gt.Words + 4
	if len(data)%4 != 0 || alignUp(head, 16)+4+2*2*4 != len(data) {
		t.Fatalf("unexpected marshaled size %d for %d words", len(data), gt.Words)
	}
	back, err := Unmarshal(gt, data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(s) {
		t.Fatalf("layout round trip mismatch")
	}
	if _, err := Unmarshal(gt, data[:len(data)-4]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed on truncated data, got %v", err)
	}
}
