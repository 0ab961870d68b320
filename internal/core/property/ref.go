package property

import (
	"fmt"

	"github.com/zeusync/simkernel/internal/core/element"
)

// Identified is anything with a world-unique string id.
type Identified interface {
	ID() string
}

// Resolver looks entities up by id. The world entity table implements it.
type Resolver interface {
	Lookup(id string) (Identified, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(id string) (Identified, bool)

func (f ResolverFunc) Lookup(id string) (Identified, bool) { return f(id) }

// EntityRef is a weak reference to another entity. It keeps only the id and
// resolves it on every read, so a deleted target reads as absent.
type EntityRef struct {
	flagged
	id       string
	resolver Resolver
}

// NewEntityRef returns an unset reference resolved through r.
func NewEntityRef(r Resolver, flags Flags) *EntityRef {
	return &EntityRef{flagged: flagged{flags: flags}, resolver: r}
}

func (p *EntityRef) Kind() element.Kind { return element.KindRef }

// ID returns the stored id, whether or not it still resolves.
func (p *EntityRef) ID() string { return p.id }

// Target resolves the referenced entity.
func (p *EntityRef) Target() (Identified, bool) {
	if p.id == "" {
		return nil, false
	}
	if p.resolver == nil {
		return nil, false
	}
	return p.resolver.Lookup(p.id)
}

func (p *EntityRef) live() bool {
	if p.id == "" {
		return false
	}
	if p.resolver == nil {
		return true
	}
	_, ok := p.resolver.Lookup(p.id)
	return ok
}

func (p *EntityRef) Get() (any, bool) {
	if !p.live() {
		return nil, false
	}
	return element.Ref(p.id), true
}

// Set accepts an id string, a reference marker or an Identified value. An
// empty string or nil clears the reference. The target need not exist yet.
func (p *EntityRef) Set(v any) error {
	switch t := v.(type) {
	case nil:
		p.id = ""
	case string:
		p.id = t
	case Identified:
		p.id = t.ID()
	default:
		id, ok := element.RefID(v)
		if !ok {
			return fmt.Errorf("%w: ref from %T", ErrTypeMismatch, v)
		}
		p.id = id
	}
	return nil
}

// Add writes a bare id under the "id" key and a reference marker otherwise.
// Unset or dangling references are written as an empty string.
func (p *EntityRef) Add(key string, out map[string]any) {
	if !p.live() {
		out[key] = ""
		return
	}
	if key == "id" {
		out[key] = p.id
		return
	}
	out[key] = element.Ref(p.id)
}

func (p *EntityRef) Copy() Property {
	c := *p
	return &c
}
