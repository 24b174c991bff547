package schema

import "fmt"

// Kind is the resolved field variant. Every replicated field maps to exactly
// one kind when its ghost type is compiled, and all per-field work afterwards
// dispatches on it through a flat table.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUint
	KindInt
	KindFloat
	KindFloat2
	KindFloat3
	KindFloat4
	KindQuaternion
	KindFixedString
	KindFixedList
	KindBuffer
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindUint:        "uint",
	KindInt:         "int",
	KindFloat:       "float",
	KindFloat2:      "float2",
	KindFloat3:      "float3",
	KindFloat4:      "float4",
	KindQuaternion:  "quaternion",
	KindFixedString: "fixed-string",
	KindFixedList:   "fixed-list",
	KindBuffer:      "buffer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Components returns the number of float lanes for vector-like kinds.
func (k Kind) Components() int {
	switch k {
	case KindFloat:
		return 1
	case KindFloat2:
		return 2
	case KindFloat3:
		return 3
	case KindFloat4, KindQuaternion:
		return 4
	}
	return 0
}

// Smoothing selects how a field is reconstructed between snapshots on the
// receiving side.
type Smoothing uint8

const (
	// SmoothingClamp copies the value from the newer snapshot.
	SmoothingClamp Smoothing = iota
	// SmoothingInterpolate blends between the two bracketing snapshots.
	SmoothingInterpolate
	// SmoothingInterpolateAndExtrapolate may also project past the newest snapshot.
	SmoothingInterpolateAndExtrapolate
)

func (s Smoothing) String() string {
	switch s {
	case SmoothingInterpolate:
		return "interpolate"
	case SmoothingInterpolateAndExtrapolate:
		return "extrapolate"
	default:
		return "clamp"
	}
}

// NoQuantization marks a field stored at full precision.
const NoQuantization int32 = -1

// TypeAttribute carries the per-field options declared in the ghost tag.
type TypeAttribute struct {
	Quantization         int32
	Smoothing            Smoothing
	SubType              int32
	Composite            bool
	MaxSmoothingDistance float64
}

// Quantized reports whether a quantization factor is present.
func (a TypeAttribute) Quantized() bool {
	return a.Quantization != NoQuantization
}

// TypeDescription identifies the shape of a field for template selection.
type TypeDescription struct {
	TypeName  string
	Attribute TypeAttribute
}

// TemplateKey is the reduced identity used to pick a template: the exact
// quantization factor and the subtype are ignored, the presence of
// quantization is not.
type TemplateKey struct {
	TypeName  string
	Quantized bool
}

func (d TypeDescription) Key() TemplateKey {
	return TemplateKey{TypeName: d.TypeName, Quantized: d.Attribute.Quantized()}
}

func (d TypeDescription) String() string {
	if d.Attribute.Quantized() {
		return fmt.Sprintf("%s(q=%d,%s)", d.TypeName, d.Attribute.Quantization, d.Attribute.Smoothing)
	}
	return fmt.Sprintf("%s(%s)", d.TypeName, d.Attribute.Smoothing)
}

// Template describes how one field shape is serialized.
type Template struct {
	Kind                 Kind
	SupportsQuantization bool
	SupportsSmoothing    bool
	// Composite templates always use a single change-mask bit for the whole value.
	Composite bool
}

// DefaultTemplates returns the built-in template table. Each call builds a
// fresh map so registries never share mutable state.
func DefaultTemplates() map[TemplateKey]Template {
	t := map[TemplateKey]Template{}
	for _, name := range []string{"bool", "uint8", "uint16", "uint32"} {
		t[TemplateKey{name, false}] = Template{Kind: KindUint}
	}
	for _, name := range []string{"int8", "int16", "int32"} {
		t[TemplateKey{name, false}] = Template{Kind: KindInt, SupportsSmoothing: true}
	}
	t[TemplateKey{"float32", false}] = Template{Kind: KindFloat, SupportsSmoothing: true}
	t[TemplateKey{"float32", true}] = Template{Kind: KindFloat, SupportsQuantization: true, SupportsSmoothing: true}
	// A float64 lane holds 32 bits, so it is only accepted quantized.
	t[TemplateKey{"float64", true}] = Template{Kind: KindFloat, SupportsQuantization: true, SupportsSmoothing: true}
	vectors := map[string]Kind{"float2": KindFloat2, "float3": KindFloat3, "float4": KindFloat4}
	for name, k := range vectors {
		t[TemplateKey{name, false}] = Template{Kind: k, SupportsSmoothing: true, Composite: true}
		t[TemplateKey{name, true}] = Template{Kind: k, SupportsQuantization: true, SupportsSmoothing: true, Composite: true}
	}
	// Rotations are only ever sent quantized.
	t[TemplateKey{"quaternion", true}] = Template{Kind: KindQuaternion, SupportsQuantization: true, SupportsSmoothing: true, Composite: true}
	t[TemplateKey{"string", false}] = Template{Kind: KindFixedString, Composite: true}
	t[TemplateKey{"list", false}] = Template{Kind: KindFixedList, Composite: true}
	t[TemplateKey{"buffer", false}] = Template{Kind: KindBuffer}
	return t
}

// Float2 is a composite two-lane vector.
type Float2 [2]float32

// Float3 is a composite three-lane vector.
type Float3 [3]float32

// Float4 is a composite four-lane vector.
type Float4 [4]float32

// Quaternion is a rotation stored as x, y, z, w.
type Quaternion [4]float32

// IdentityQuaternion is the no-rotation value.
var IdentityQuaternion = Quaternion{0, 0, 0, 1}
