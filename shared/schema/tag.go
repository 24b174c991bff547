package schema

import (
	"fmt"
	"strconv"
	"strings"
)

const tagName = "ghost"

// fieldTag is the parsed form of a `ghost:"..."` struct tag, e.g.
//
//	Position Float3 `ghost:"quant=100,smooth=extrap,maxdist=4"`
type fieldTag struct {
	attr TypeAttribute

	hasQuant     bool
	hasSmooth    bool
	hasComposite bool
	maxLen       int
	capacity     int
}

func parseTag(raw string) (fieldTag, error) {
	tag := fieldTag{attr: TypeAttribute{Quantization: NoQuantization}}
	if raw == "" {
		return tag, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		switch key {
		case "quant":
			q, err := strconv.ParseInt(value, 10, 32)
			if err != nil || q <= 0 {
				return tag, fmt.Errorf("%w: quant must be a positive integer, got %q", ErrInvalidTag, value)
			}
			tag.attr.Quantization = int32(q)
			tag.hasQuant = true
		case "smooth":
			switch value {
			case "clamp":
				tag.attr.Smoothing = SmoothingClamp
			case "interp":
				tag.attr.Smoothing = SmoothingInterpolate
			case "extrap":
				tag.attr.Smoothing = SmoothingInterpolateAndExtrapolate
			default:
				return tag, fmt.Errorf("%w: unknown smoothing %q", ErrInvalidTag, value)
			}
			tag.hasSmooth = true
		case "maxdist":
			d, err := strconv.ParseFloat(value, 64)
			if err != nil || d < 0 {
				return tag, fmt.Errorf("%w: maxdist must be a non-negative number, got %q", ErrInvalidTag, value)
			}
			tag.attr.MaxSmoothingDistance = d
		case "subtype":
			s, err := strconv.ParseInt(value, 10, 32)
			if err != nil {
				return tag, fmt.Errorf("%w: subtype %q", ErrInvalidTag, value)
			}
			tag.attr.SubType = int32(s)
		case "composite":
			tag.attr.Composite = true
			tag.hasComposite = true
		case "maxlen":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return tag, fmt.Errorf("%w: maxlen %q", ErrInvalidTag, value)
			}
			tag.maxLen = n
		case "cap":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return tag, fmt.Errorf("%w: cap %q", ErrInvalidTag, value)
			}
			tag.capacity = n
		default:
			return tag, fmt.Errorf("%w: unknown option %q", ErrInvalidTag, key)
		}
	}
	return tag, nil
}

// inherit fills options the child did not declare from its enclosing struct
// field, so a tagged nested struct passes its settings down to its leaves.
func (t fieldTag) inherit(parent fieldTag) fieldTag {
	if !t.hasQuant && parent.hasQuant {
		t.attr.Quantization = parent.attr.Quantization
		t.hasQuant = true
	}
	if !t.hasSmooth && parent.hasSmooth {
		t.attr.Smoothing = parent.attr.Smoothing
		t.hasSmooth = true
	}
	if t.attr.MaxSmoothingDistance == 0 {
		t.attr.MaxSmoothingDistance = parent.attr.MaxSmoothingDistance
	}
	return t
}
