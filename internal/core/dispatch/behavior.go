package dispatch

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/types"
)

// World is what a handler may ask of the router that is delivering to it.
type World interface {
	Entity(id string) (*entity.Entity, bool)
	CreateEntity(typ string, attrs element.Map, container *entity.Entity) (*entity.Entity, error)
	DelEntity(e *entity.Entity) error
	Now() time.Duration
	BasicTick() time.Duration
	Rand() *rand.Rand
	Types() *types.Registry
}

// Handler reacts to op on e, appending any outputs to res.
type Handler func(w World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error

// Noop ignores the operation.
func Noop(World, *entity.Entity, *operation.Operation, *operation.Vector) error { return nil }

// Behavior is a named set of native handlers keyed by operation name.
type Behavior struct {
	name     string
	parent   *Behavior
	handlers map[string]Handler
	fallback Handler
}

// NewBehavior returns an empty behavior.
func NewBehavior(name string) *Behavior {
	return &Behavior{name: name, handlers: make(map[string]Handler)}
}

func (b *Behavior) Name() string { return b.name }

// On declares the handler for an operation name.
func (b *Behavior) On(op string, h Handler) *Behavior {
	b.handlers[op] = h
	return b
}

// Fallback sets the handler used when no declared handler matches.
func (b *Behavior) Fallback(h Handler) *Behavior {
	b.fallback = h
	return b
}

// Extend makes b inherit every handler of parent that b does not declare.
func (b *Behavior) Extend(parent *Behavior) *Behavior {
	b.parent = parent
	return b
}

// flatten merges the parent chain, nearer declarations winning.
func (b *Behavior) flatten() (map[string]Handler, Handler) {
	out := make(map[string]Handler)
	var fallback Handler
	for cur := b; cur != nil; cur = cur.parent {
		for name, h := range cur.handlers {
			if _, ok := out[name]; !ok {
				out[name] = h
			}
		}
		if fallback == nil {
			fallback = cur.fallback
		}
	}
	if fallback == nil {
		fallback = Noop
	}
	return out, fallback
}

// Operations lists the operation names b handles, including inherited ones.
func (b *Behavior) Operations() []string {
	handlers, _ := b.flatten()
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
