// Package rules holds the native behaviors of the builtin entity types.
package rules

import (
	"errors"
	"fmt"

	"github.com/zeusync/simkernel/internal/core/dispatch"
	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/operation"
)

var (
	ErrOutOfReach    = errors.New("target out of reach")
	ErrUndeletable   = errors.New("entity cannot be deleted")
	ErrUnknownTarget = errors.New("unknown target entity")
)

// Behaviors returns the builtin behaviors keyed by the type they bind to.
func Behaviors() map[string]*dispatch.Behavior {
	thing := Thing()
	return map[string]*dispatch.Behavior{
		"thing": thing,
		"world": World(thing),
		"plant": Plant(thing),
	}
}

// Install registers the builtin behaviors with d.
func Install(d *dispatch.Dispatcher) error {
	for typ, b := range Behaviors() {
		if err := d.Register(typ, b); err != nil {
			return fmt.Errorf("install %s rules: %w", typ, err)
		}
	}
	return nil
}

// firstArg returns the first argument record or a malformed-operation error.
func firstArg(op *operation.Operation) (element.Map, error) {
	arg, ok := op.Arg(0)
	if !ok {
		return nil, operation.Malformed(op, "no argument")
	}
	return arg, nil
}

// requireReach fails when the sender is a live entity that cannot reach e.
// Operations from outside the world are not checked.
func requireReach(w dispatch.World, e *entity.Entity, op *operation.Operation) error {
	sender, ok := w.Entity(op.From())
	if !ok {
		return nil
	}
	if !e.IsReachableForOtherEntity(sender, nil, 0) {
		return fmt.Errorf("%w: %s cannot reach %s", ErrOutOfReach, sender.Describe(), e.Describe())
	}
	return nil
}

func self(e *entity.Entity) operation.Option {
	return operation.To(e.ID())
}
