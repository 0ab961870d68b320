// Package dispatch selects and runs the handler for an operation delivered
// to an entity.
//
// The entity's script hook sees the operation first and may claim it. When
// it does not, the native behavior bound to the entity type (or its nearest
// ancestor) is consulted: the operation type and then each of its ancestors
// is looked up in a table indexed by operation number, and the first declared
// handler runs. Behaviors without a match fall back to their fallback handler.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/types"
)

type compiled struct {
	behavior *Behavior
	table    []Handler
	fallback Handler
}

var noop = &compiled{behavior: NewBehavior("noop"), fallback: Noop}

type Dispatcher struct {
	reg *types.Registry
	log log.Log

	mu       sync.RWMutex
	bound    map[string]*compiled
	resolved map[*types.Node]*compiled
}

func New(reg *types.Registry, logger log.Log) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		log:      logger.With(log.String("component", "dispatch")),
		bound:    make(map[string]*compiled),
		resolved: make(map[*types.Node]*compiled),
	}
}

// Register binds b to entities of typeName and every descendant type that has
// no binding of its own.
func (d *Dispatcher) Register(typeName string, b *Behavior) error {
	if !d.reg.Has(typeName) {
		return fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	c, err := d.compile(b)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound[typeName] = c
	d.resolved = make(map[*types.Node]*compiled)
	return nil
}

func (d *Dispatcher) compile(b *Behavior) (*compiled, error) {
	handlers, fallback := b.flatten()
	c := &compiled{behavior: b, table: make([]Handler, d.reg.OpCount()), fallback: fallback}
	for name, h := range handlers {
		op := d.reg.Classify(name)
		if op == types.OpInvalid {
			return nil, fmt.Errorf("%w: %s in behavior %s", ErrUnknownOperation, name, b.name)
		}
		c.table[op] = h
	}
	return c, nil
}

// BehaviorFor returns the behavior serving entities of the given type.
func (d *Dispatcher) BehaviorFor(node *types.Node) *Behavior {
	return d.lookup(node).behavior
}

func (d *Dispatcher) lookup(node *types.Node) *compiled {
	if node == nil {
		return noop
	}
	d.mu.RLock()
	c, ok := d.resolved[node]
	d.mu.RUnlock()
	if ok {
		return c
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	c = noop
	for _, a := range node.Ancestors() {
		if bound, ok := d.bound[a.Name()]; ok {
			c = bound
			break
		}
	}
	d.resolved[node] = c
	return c
}

// Dispatch delivers op to e and returns the operations produced. Handler
// errors and panics are returned as errors; the outputs collected before a
// failure are discarded.
func (d *Dispatcher) Dispatch(w World, e *entity.Entity, op *operation.Operation) (res operation.Vector, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic",
				log.String("entity", e.Describe()),
				log.String("op", op.Type()),
				log.Any("panic", r),
			)
			res, err = nil, fmt.Errorf("%w: %s on %s: %v", ErrHandlerPanic, op.Type(), e.Describe(), r)
		}
	}()

	if s := e.Script(); s != nil {
		out, handled, serr := s.TryHandle(op.Type(), op)
		if serr != nil {
			return nil, fmt.Errorf("script %s on %s: %w", op.Type(), e.Describe(), serr)
		}
		if handled {
			return out, nil
		}
	}

	h := d.handlerFor(e.Type(), op.Type())
	if err = h(w, e, op, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Dispatcher) handlerFor(node *types.Node, opName string) Handler {
	c := d.lookup(node)
	for _, no := range d.reg.OpAncestors(d.reg.Classify(opName)) {
		if int(no) < len(c.table) {
			if h := c.table[no]; h != nil {
				return h
			}
		}
	}
	return c.fallback
}
