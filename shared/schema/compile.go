package schema

import (
	"fmt"
	"reflect"
)

var (
	float2Type     = reflect.TypeOf(Float2{})
	float3Type     = reflect.TypeOf(Float3{})
	float4Type     = reflect.TypeOf(Float4{})
	quaternionType = reflect.TypeOf(Quaternion{})
)

// typeName maps a Go type onto the template namespace. nested is true for
// plain structs, which are walked instead of looked up.
func typeName(t reflect.Type) (name string, nested bool) {
	switch t {
	case float2Type:
		return "float2", false
	case float3Type:
		return "float3", false
	case float4Type:
		return "float4", false
	case quaternionType:
		return "quaternion", false
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Float32, reflect.Float64, reflect.String:
		return t.Kind().String(), false
	case reflect.Struct:
		return "struct", true
	case reflect.Slice:
		switch t.Elem().Kind() {
		case reflect.Struct:
			return "buffer", false
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return "list", false
		}
		return "[]" + t.Elem().Kind().String(), false
	}
	return t.String(), false
}

// walk compiles the exported fields of t into layout. parent is the tag of the
// enclosing nested struct, composite the shared mask group of an enclosing
// composite struct (-1 when none).
func (c *compiler) walk(t reflect.Type, prefix string, index []int, parent *fieldTag, inBuffer bool, layout *Layout, buffers *[]*BufferLayout, composite int) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := prefix + sf.Name
		raw, tagged := sf.Tag.Lookup(tagName)
		if raw == "-" {
			continue
		}
		if !tagged && parent == nil {
			if inBuffer {
				c.report(SeverityError, name, ErrBufferFieldUntagged, true)
			}
			continue
		}

		tag, err := parseTag(raw)
		if err != nil {
			c.report(SeverityError, name, err, inBuffer)
			continue
		}
		if parent != nil {
			tag = tag.inherit(*parent)
		}
		fieldIndex := append(append([]int(nil), index...), i)

		tn, nested := typeName(sf.Type)
		if nested {
			g := composite
			if g < 0 && tag.attr.Composite {
				g = layout.addGroup(-1)
			}
			c.walk(sf.Type, name+".", fieldIndex, &tag, inBuffer, layout, buffers, g)
			continue
		}
		if tn == "buffer" {
			if inBuffer || buffers == nil {
				c.report(SeverityError, name, fmt.Errorf("%w: nested dynamic buffer", ErrUnsupportedType), true)
				continue
			}
			c.compileBuffer(sf, name, fieldIndex, tag, layout, buffers)
			continue
		}

		desc := TypeDescription{TypeName: tn, Attribute: tag.attr}
		if desc.Attribute.Smoothing == SmoothingInterpolateAndExtrapolate && desc.Attribute.MaxSmoothingDistance == 0 {
			desc.Attribute.MaxSmoothingDistance = c.reg.maxExtrapolation
		}
		tmpl, err := c.reg.lookup(desc)
		if err != nil {
			c.report(SeverityError, name, err, inBuffer)
			continue
		}
		if tag.attr.Smoothing != SmoothingClamp && !tmpl.SupportsSmoothing {
			c.report(SeverityError, name, fmt.Errorf("%w: %s", ErrUnsupportedSmoothing, desc), inBuffer)
			continue
		}

		f := Field{
			Name:   name,
			Desc:   desc,
			Kind:   tmpl.Kind,
			index:  fieldIndex,
			goKind: sf.Type.Kind(),
			ops:    opsFor(tmpl.Kind),
		}
		switch tmpl.Kind {
		case KindFixedString:
			f.MaxLen = tag.maxLen
			if f.MaxLen == 0 {
				f.MaxLen = defaultStringLength
			}
			f.Words = 1 + (f.MaxLen+3)/4
		case KindFixedList:
			if tag.capacity == 0 {
				c.report(SeverityError, name, fmt.Errorf("%w: fixed list requires cap", ErrInvalidTag), inBuffer)
				continue
			}
			f.MaxLen = tag.capacity
			if f.MaxLen > c.reg.maxListCapacity {
				c.report(SeverityWarning, name, fmt.Errorf("%w: list capacity %d clamped to %d", ErrCapacityClamped, f.MaxLen, c.reg.maxListCapacity), false)
				f.MaxLen = c.reg.maxListCapacity
			}
			switch sf.Type.Elem().Kind() {
			case reflect.Int8, reflect.Int16, reflect.Int32:
				f.Signed = true
			}
			f.Words = 1 + f.MaxLen
		case KindUint, KindInt:
			f.Words = 1
		default:
			f.Words = tmpl.Kind.Components()
		}

		switch {
		case composite >= 0:
			f.Group = composite
		default:
			f.Group = layout.addGroup(-1)
		}
		layout.addField(f)
	}
}

func (c *compiler) compileBuffer(sf reflect.StructField, name string, index []int, tag fieldTag, layout *Layout, buffers *[]*BufferLayout) {
	elem := sf.Type.Elem()
	b := &BufferLayout{
		Name:        name,
		MaxElements: tag.capacity,
		index:       index,
		elemType:    elem,
	}
	if b.MaxElements == 0 {
		b.MaxElements = c.reg.maxBufferElements
	}
	c.walk(elem, name+"[].", nil, nil, true, &b.Elem, nil, -1)
	if len(b.Elem.Fields) == 0 {
		c.report(SeverityError, name, fmt.Errorf("%w: buffer element has no fields", ErrBufferFieldUntagged), true)
		return
	}
	b.Group = layout.addGroup(len(*buffers))
	*buffers = append(*buffers, b)
}
