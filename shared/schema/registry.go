// Package schema compiles replicated Go struct types into flat field tables.
//
// A ghost type is a plain struct whose replicated fields carry a `ghost` tag.
// Registration resolves every field once into a Kind with its per-kind
// operations, so encoding never probes type descriptions at runtime.
// All state lives in an explicit Registry built at startup and passed to
// every consumer.
package schema

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/automoto/ghostsync/shared/codec"
)

const (
	defaultMaxListCapacity   = 64
	defaultStringLength      = 32
	defaultMaxBufferElements = 128

	// DefaultMaxExtrapolationDistance bounds extrapolated fields whose tag
	// omits maxdist.
	DefaultMaxExtrapolationDistance = 64.0
)

// Registry owns the template table, the compression model and every
// registered ghost type. Type indices follow registration order and are part
// of the wire contract, so peers must register the same types in the same order.
type Registry struct {
	mu        sync.RWMutex
	templates map[TemplateKey]Template
	policy    Policy
	model     *codec.CompressionModel

	maxListCapacity   int
	maxBufferElements int
	maxExtrapolation  float64

	types       []*GhostType
	byName      map[string]*GhostType
	diagnostics []Diagnostic
}

type Option func(*Registry)

func WithPolicy(p Policy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithMaxListCapacity caps fixed-list capacities; larger declarations are
// clamped with a warning.
func WithMaxListCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxListCapacity = n
		}
	}
}

func WithMaxBufferElements(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxBufferElements = n
		}
	}
}

// WithMaxExtrapolationDistance sets the maxdist given to extrapolated fields
// that do not declare one.
func WithMaxExtrapolationDistance(d float64) Option {
	return func(r *Registry) {
		if d > 0 {
			r.maxExtrapolation = d
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		templates:         DefaultTemplates(),
		policy:            Strict,
		model:             codec.NewCompressionModel(),
		maxListCapacity:   defaultMaxListCapacity,
		maxBufferElements: defaultMaxBufferElements,
		maxExtrapolation:  DefaultMaxExtrapolationDistance,
		byName:            make(map[string]*GhostType),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the compression model shared by every stream of this registry.
func (r *Registry) Model() *codec.CompressionModel { return r.model }

func (r *Registry) Policy() Policy { return r.policy }

// AddTemplate installs or replaces the template for a field shape.
func (r *Registry) AddTemplate(desc TypeDescription, t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[desc.Key()] = t
}

func (r *Registry) lookup(desc TypeDescription) (Template, error) {
	if t, ok := r.templates[desc.Key()]; ok {
		return t, nil
	}
	flipped := desc.Key()
	flipped.Quantized = !flipped.Quantized
	if _, ok := r.templates[flipped]; ok {
		if desc.Attribute.Quantized() {
			return Template{}, fmt.Errorf("%w: %s", ErrUnsupportedQuantization, desc.TypeName)
		}
		return Template{}, fmt.Errorf("%w: %s", ErrMissingQuantization, desc.TypeName)
	}
	return Template{}, fmt.Errorf("%w: %s", ErrUnsupportedType, desc.TypeName)
}

// Register compiles prototype (a struct or pointer to struct) as ghost type name.
// Under Strict every configuration error rejects the type; under Lenient
// misconfigured fields are dropped and logged. Untagged buffer element fields
// are rejected under either policy.
func (r *Registry) Register(name string, prototype any) (*GhostType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, name)
	}

	c := &compiler{reg: r, ghost: name}
	gt := &GhostType{Name: name, goType: t, model: r.model}
	c.walk(t, "", nil, nil, false, &gt.Layout, &gt.Buffers, -1)

	if len(gt.Fields) == 0 && len(gt.Buffers) == 0 && !c.hasErrors() {
		c.report(SeverityError, "", ErrNoReplicatedFields, true)
	}

	for _, d := range c.diags {
		log.Printf("[schema] %s", d)
	}
	r.diagnostics = append(r.diagnostics, c.diags...)

	if c.fatal || (r.policy == Strict && c.hasErrors()) {
		return nil, c.err()
	}

	gt.Index = uint32(len(r.types))
	r.types = append(r.types, gt)
	r.byName[name] = gt
	return gt, nil
}

// MustRegister is Register for static tables wired at startup.
func (r *Registry) MustRegister(name string, prototype any) *GhostType {
	gt, err := r.Register(name, prototype)
	if err != nil {
		panic(err)
	}
	return gt
}

func (r *Registry) Type(name string) (*GhostType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gt, ok := r.byName[name]
	return gt, ok
}

func (r *Registry) TypeByIndex(i uint32) (*GhostType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(i) >= len(r.types) {
		return nil, false
	}
	return r.types[i], true
}

// TypeOf returns the ghost type registered for v's struct type.
func (r *Registry) TypeOf(v any) (*GhostType, bool) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, gt := range r.types {
		if gt.goType == t {
			return gt, true
		}
	}
	return nil, false
}

func (r *Registry) Types() []*GhostType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*GhostType(nil), r.types...)
}

// Diagnostics returns every finding reported so far, including those of
// rejected types.
func (r *Registry) Diagnostics() []Diagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Diagnostic(nil), r.diagnostics...)
}

type compiler struct {
	reg   *Registry
	ghost string
	diags []Diagnostic
	fatal bool
}

func (c *compiler) report(sev Severity, field string, err error, fatal bool) {
	c.diags = append(c.diags, Diagnostic{Severity: sev, Ghost: c.ghost, Field: field, Err: err})
	if fatal {
		c.fatal = true
	}
}

func (c *compiler) hasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (c *compiler) err() error {
	var errs []error
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}
