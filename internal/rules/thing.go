package rules

import (
	"github.com/zeusync/simkernel/internal/core/dispatch"
	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/property"
)

// Thing is the behavior shared by every physical entity.
func Thing() *dispatch.Behavior {
	return dispatch.NewBehavior("thing").
		On("set", thingSet).
		On("move", thingMove).
		On("delete", thingDelete).
		On("create", thingCreate).
		On("look", thingLook)
}

// thingSet applies the argument attributes. A negative status destroys the
// entity.
func thingSet(w dispatch.World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error {
	arg, err := firstArg(op)
	if err != nil {
		return err
	}
	for _, k := range element.Keys(arg) {
		if k == "id" {
			continue
		}
		if err := e.Set(k, arg[k]); err != nil {
			return err
		}
	}
	res.Add(operation.New("sight", operation.Args(arg)))
	if e.Props().Float("status", 1) < 0 {
		res.Add(operation.New("delete", self(e), operation.Arg("id", e.ID())))
	}
	return nil
}

func thingMove(w dispatch.World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error {
	arg, err := firstArg(op)
	if err != nil {
		return err
	}
	container := e.Parent()
	if loc, ok := arg["loc"].(string); ok && (container == nil || loc != container.ID()) {
		if container, ok = w.Entity(loc); !ok {
			return operation.Malformed(op, "unknown loc "+loc)
		}
	}
	pos := e.Location().Pos
	if v, ok := entity.VectorFrom(arg["pos"]); ok {
		pos = v
	}
	if err := e.Reparent(container, pos); err != nil {
		return err
	}
	for _, k := range []string{"orientation", "mode"} {
		if v, ok := arg[k]; ok {
			if err := e.Set(k, v); err != nil {
				return err
			}
		}
	}
	res.Add(operation.New("sight", operation.Args(arg)))
	return nil
}

func thingDelete(w dispatch.World, e *entity.Entity, _ *operation.Operation, _ *operation.Vector) error {
	return w.DelEntity(e)
}

// thingCreate instantiates the first parent type of the argument, inside the
// argument's loc, else next to the creator, else inside a top-level creator.
func thingCreate(w dispatch.World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error {
	arg, err := firstArg(op)
	if err != nil {
		return err
	}
	parents, _ := arg["parents"].([]any)
	if len(parents) == 0 {
		return operation.Malformed(op, "no parents")
	}
	typ, _ := parents[0].(string)
	var container *entity.Entity
	if _, hasLoc := arg["loc"]; !hasLoc {
		if container = e.Parent(); container == nil {
			container = e
		}
	}
	attrs := element.CloneMap(arg)
	delete(attrs, "parents")
	created, err := w.CreateEntity(typ, attrs, container)
	if err != nil {
		return err
	}
	res.Add(operation.New("sight",
		operation.From(created.ID()),
		operation.Args(created.Snapshot(property.Visible)),
	))
	return nil
}

func thingLook(_ dispatch.World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error {
	if op.From() == "" {
		return nil
	}
	res.Add(operation.New("sight",
		operation.To(op.From()),
		operation.Args(e.Snapshot(property.Visible)),
	))
	return nil
}
