package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType         = errors.New("schema: unsupported field type")
	ErrUnsupportedQuantization = errors.New("schema: quantization not supported for type")
	ErrMissingQuantization     = errors.New("schema: type requires quantization")
	ErrUnsupportedSmoothing    = errors.New("schema: smoothing not supported for type")
	ErrInvalidTag              = errors.New("schema: invalid ghost tag")
	ErrBufferFieldUntagged     = errors.New("schema: buffer element field lacks ghost tag")
	ErrCapacityClamped         = errors.New("schema: capacity clamped")
	ErrDuplicateType           = errors.New("schema: ghost type already registered")
	ErrNoReplicatedFields      = errors.New("schema: ghost type has no replicated fields")
	ErrNotStruct               = errors.New("schema: ghost prototype must be a struct")
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one finding produced while compiling a ghost type.
type Diagnostic struct {
	Severity Severity
	Ghost    string
	Field    string
	Err      error
}

func (d Diagnostic) String() string {
	if d.Field == "" {
		return fmt.Sprintf("%s: %s: %v", d.Severity, d.Ghost, d.Err)
	}
	return fmt.Sprintf("%s: %s.%s: %v", d.Severity, d.Ghost, d.Field, d.Err)
}

func (d Diagnostic) Error() string { return d.String() }

func (d Diagnostic) Unwrap() error { return d.Err }

// Policy decides what happens to fields with configuration errors.
type Policy int

const (
	// Strict rejects the whole ghost type when any field is misconfigured.
	Strict Policy = iota
	// Lenient drops misconfigured fields from serialization and logs them.
	Lenient
)
