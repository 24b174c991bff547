package schema

import (
	"reflect"

	"github.com/automoto/ghostsync/shared/codec"
)

// Field is one compiled leaf of a ghost type. Its words live at
// [Offset, Offset+Words) of the snapshot image.
type Field struct {
	Name   string
	Desc   TypeDescription
	Kind   Kind
	Offset int
	Words  int
	Group  int
	// MaxLen is the byte limit of a fixed string or the capacity of a fixed list.
	MaxLen int
	Signed bool

	index  []int
	goKind reflect.Kind
	ops    fieldOps
}

// Quantization returns the field's factor, or NoQuantization.
func (f *Field) Quantization() int32 { return f.Desc.Attribute.Quantization }

// Smoothing returns the declared smoothing mode.
func (f *Field) Smoothing() Smoothing { return f.Desc.Attribute.Smoothing }

func (f *Field) words(s []uint32) []uint32 { return s[f.Offset : f.Offset+f.Words] }

type group struct {
	fields []int
	buffer int
}

// Layout is the flat field table of a struct: the ghost type itself or the
// element type of a dynamic buffer. Groups map change-mask bits to fields in
// the generation-stable declaration order that defines the wire layout.
type Layout struct {
	Fields []Field
	Words  int

	groups      []group
	predictable []bool
}

// MaskBits is the number of change-mask bits one instance of the layout uses.
func (l *Layout) MaskBits() int { return len(l.groups) }

// GroupBuffer returns the buffer index behind a length-changed bit, or -1.
func (l *Layout) GroupBuffer(g int) int { return l.groups[g].buffer }

// GroupFields returns the field indices covered by mask bit g.
func (l *Layout) GroupFields(g int) []int { return l.groups[g].fields }

// Predictable reports whether word i may be linearly predicted from several
// baselines. Only wrapping integer lanes qualify.
func (l *Layout) Predictable(i int) bool { return l.predictable[i] }

// GroupChanged compares the packed words of every field in g bit for bit.
func (l *Layout) GroupChanged(g int, cur, base []uint32) bool {
	for _, fi := range l.groups[g].fields {
		f := &l.Fields[fi]
		for i := f.Offset; i < f.Offset+f.Words; i++ {
			if cur[i] != base[i] {
				return true
			}
		}
	}
	return false
}

// WriteGroup emits the payload of every field in g relative to base.
func (l *Layout) WriteGroup(w *codec.Writer, g int, cur, base []uint32, m *codec.CompressionModel) {
	for _, fi := range l.groups[g].fields {
		f := &l.Fields[fi]
		f.ops.write(w, f, f.words(cur), f.words(base), m)
	}
}

// ReadGroup decodes the payload of g into dst using base as reference.
func (l *Layout) ReadGroup(r *codec.Reader, g int, base, dst []uint32, m *codec.CompressionModel) {
	for _, fi := range l.groups[g].fields {
		f := &l.Fields[fi]
		f.ops.read(r, f, f.words(base), f.words(dst), m)
	}
}

// CopyGroup copies the words of g from src to dst.
func (l *Layout) CopyGroup(g int, src, dst []uint32) {
	for _, fi := range l.groups[g].fields {
		f := &l.Fields[fi]
		copy(f.words(dst), f.words(src))
	}
}

// FieldByName returns the compiled field with the given dotted name.
func (l *Layout) FieldByName(name string) (*Field, bool) {
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i], true
		}
	}
	return nil, false
}

func (l *Layout) addGroup(buffer int) int {
	l.groups = append(l.groups, group{buffer: buffer})
	return len(l.groups) - 1
}

func (l *Layout) addField(f Field) {
	f.Offset = l.Words
	l.Words += f.Words
	l.Fields = append(l.Fields, f)
	g := &l.groups[f.Group]
	g.fields = append(g.fields, len(l.Fields)-1)
	for i := 0; i < f.Words; i++ {
		l.predictable = append(l.predictable, f.ops.predictable(&l.Fields[len(l.Fields)-1], i))
	}
}

// BufferLayout describes a dynamic buffer field: a variable number of
// elements, each compiled into its own Layout.
type BufferLayout struct {
	Name        string
	Group       int
	Elem        Layout
	MaxElements int

	index    []int
	elemType reflect.Type
}

// Snapshot is the quantized word image of one ghost's replicated state.
type Snapshot struct {
	Words   []uint32
	Buffers []BufferData
}

// BufferData holds the elements of one dynamic buffer back to back.
type BufferData struct {
	Len   int
	Words []uint32
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{Words: append([]uint32(nil), s.Words...)}
	if len(s.Buffers) > 0 {
		c.Buffers = make([]BufferData, len(s.Buffers))
		for i, b := range s.Buffers {
			c.Buffers[i] = BufferData{Len: b.Len, Words: append([]uint32(nil), b.Words...)}
		}
	}
	return c
}

// Equal reports whether both images are bit-identical.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if len(s.Words) != len(o.Words) || len(s.Buffers) != len(o.Buffers) {
		return false
	}
	for i := range s.Words {
		if s.Words[i] != o.Words[i] {
			return false
		}
	}
	for i := range s.Buffers {
		a, b := s.Buffers[i], o.Buffers[i]
		if a.Len != b.Len || len(a.Words) != len(b.Words) {
			return false
		}
		for j := range a.Words {
			if a.Words[j] != b.Words[j] {
				return false
			}
		}
	}
	return true
}
