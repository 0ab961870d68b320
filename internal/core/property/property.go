// Package property implements the typed attribute store carried by every
// entity.
//
// Properties are created on first write, or copied from the prototype held by
// the entity's type Class the first time an inherited default is modified.
package property

import (
	"fmt"

	"github.com/zeusync/simkernel/internal/core/element"
)

// Flags are per-property bits.
type Flags uint32

const (
	// Visible properties are included in sight snapshots.
	Visible Flags = 1 << iota
	// Persistent properties are written to storage.
	Persistent
	// ScriptWritable properties may be changed from script hooks.
	ScriptWritable

	DefaultFlags = Visible | Persistent | ScriptWritable
)

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Property is one typed attribute.
type Property interface {
	// Kind reports the value kind the property holds.
	Kind() element.Kind
	// Get returns the current value, or false when unset.
	Get() (any, bool)
	// Set stores v with kind coercion. A nil value clears the property.
	Set(v any) error
	// Add writes the value into out under key, if there is one.
	Add(key string, out map[string]any)
	// Copy returns an independent property with the same value and flags.
	Copy() Property

	Flags() Flags
	SetFlags(f Flags)
}

type flagged struct {
	flags Flags
}

func (f *flagged) Flags() Flags      { return f.flags }
func (f *flagged) SetFlags(fl Flags) { f.flags = fl }

var (
	_ Property = (*Typed[bool])(nil)
	_ Property = (*Container)(nil)
	_ Property = (*EntityRef)(nil)
)

// Typed holds a scalar of type T.
type Typed[T any] struct {
	flagged
	kind  element.Kind
	value T
	set   bool
	conv  func(any) (T, bool)
}

func newTyped[T any](kind element.Kind, conv func(any) (T, bool), flags Flags) *Typed[T] {
	return &Typed[T]{flagged: flagged{flags: flags}, kind: kind, conv: conv}
}

// NewBool returns an empty bool property.
func NewBool(flags Flags) *Typed[bool] {
	return newTyped(element.KindBool, func(v any) (bool, bool) {
		b, ok := v.(bool)
		return b, ok
	}, flags)
}

// NewInt returns an empty integer property. Floats are truncated.
func NewInt(flags Flags) *Typed[int64] {
	return newTyped(element.KindInt, element.Int, flags)
}

// NewFloat returns an empty float property.
func NewFloat(flags Flags) *Typed[float64] {
	return newTyped(element.KindFloat, element.Float, flags)
}

// NewString returns an empty string property.
func NewString(flags Flags) *Typed[string] {
	return newTyped(element.KindString, element.String, flags)
}

func (p *Typed[T]) Kind() element.Kind { return p.kind }

func (p *Typed[T]) Get() (any, bool) {
	if !p.set {
		return nil, false
	}
	return p.value, true
}

// Value returns the typed value, the zero value when unset.
func (p *Typed[T]) Value() T { return p.value }

func (p *Typed[T]) Set(v any) error {
	if v == nil {
		var zero T
		p.value, p.set = zero, false
		return nil
	}
	t, ok := p.conv(v)
	if !ok {
		return fmt.Errorf("%w: %s from %T", ErrTypeMismatch, p.kind, v)
	}
	p.value, p.set = t, true
	return nil
}

func (p *Typed[T]) Add(key string, out map[string]any) {
	if p.set {
		out[key] = p.value
	}
}

func (p *Typed[T]) Copy() Property {
	c := *p
	return &c
}

// Container holds a list, a map, or any element value when soft.
type Container struct {
	flagged
	kind  element.Kind
	value any
}

// NewList returns an empty list property.
func NewList(flags Flags) *Container {
	return &Container{flagged: flagged{flags: flags}, kind: element.KindList}
}

// NewMap returns an empty map property.
func NewMap(flags Flags) *Container {
	return &Container{flagged: flagged{flags: flags}, kind: element.KindMap}
}

// NewSoft returns an untyped property accepting any element value.
func NewSoft(flags Flags) *Container {
	return &Container{flagged: flagged{flags: flags}, kind: element.KindNone}
}

func (p *Container) Kind() element.Kind { return p.kind }

func (p *Container) Get() (any, bool) {
	if p.value == nil {
		return nil, false
	}
	return element.Clone(p.value), true
}

func (p *Container) Set(v any) error {
	n, err := element.Normalize(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	if n != nil && p.kind != element.KindNone {
		k := element.KindOf(n)
		if k == element.KindRef {
			k = element.KindMap
		}
		if k != p.kind {
			return fmt.Errorf("%w: %s from %s", ErrTypeMismatch, p.kind, k)
		}
	}
	p.value = n
	return nil
}

func (p *Container) Add(key string, out map[string]any) {
	if p.value != nil {
		out[key] = element.Clone(p.value)
	}
}

func (p *Container) Copy() Property {
	return &Container{flagged: p.flagged, kind: p.kind, value: element.Clone(p.value)}
}
