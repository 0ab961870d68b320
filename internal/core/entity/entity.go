// Package entity is the object model of the world: identity, type,
// containment, location and attributes.
package entity

import (
	"fmt"
	"math"

	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/property"
	"github.com/zeusync/simkernel/internal/core/types"
)

// Script is the per-entity hook offered every operation before native
// dispatch. When handled is true the returned operations replace native
// handling entirely.
type Script interface {
	TryHandle(name string, op *operation.Operation) (res operation.Vector, handled bool, err error)
}

// Entity is a simulated object. Entities are owned by the world router and
// must only be touched from the simulation thread.
type Entity struct {
	id    string
	intID int64
	typ   *types.Node
	mgr   *property.Manager

	loc      Location
	contains []*Entity
	props    *property.Store
	script   Script

	dirty     bool
	destroyed bool
}

var _ property.Identified = (*Entity)(nil)

// New returns an untyped entity with an empty property store.
func New(id string, intID int64, mgr *property.Manager) *Entity {
	props, _ := mgr.NewStore(nil)
	return &Entity{
		id:    id,
		intID: intID,
		mgr:   mgr,
		props: props,
		loc:   Location{Orientation: Identity()},
		dirty: true,
	}
}

func (e *Entity) ID() string                  { return e.id }
func (e *Entity) IntID() int64                { return e.intID }
func (e *Entity) Type() *types.Node           { return e.typ }
func (e *Entity) Props() *property.Store      { return e.props }
func (e *Entity) Script() Script              { return e.script }
func (e *Entity) SetScript(s Script)          { e.script = s }
func (e *Entity) Location() Location          { return e.loc }
func (e *Entity) Parent() *Entity             { return e.loc.Parent }
func (e *Entity) Destroyed() bool             { return e.destroyed }
func (e *Entity) Dirty() bool                 { return e.dirty }
func (e *Entity) MarkClean()                  { e.dirty = false }
func (e *Entity) MarkDirty()                  { e.dirty = true }
func (e *Entity) NumChildren() int            { return len(e.contains) }
func (e *Entity) Children() []*Entity         { return append([]*Entity(nil), e.contains...) }
func (e *Entity) IsA(ancestor string) bool    { return e.typ.IsA(ancestor) }
func (e *Entity) TypeName() string            { return typeName(e.typ) }
func (e *Entity) Get(name string) (any, bool) { return e.props.Get(name) }

func typeName(n *types.Node) string {
	if n == nil {
		return ""
	}
	return n.Name()
}

// SetType binds the entity to its type, once.
func (e *Entity) SetType(name string) error {
	if e.typ != nil {
		return fmt.Errorf("%w: %s is already %s", ErrTypeImmutable, e.id, e.typ.Name())
	}
	node := e.mgr.Registry().Get(name)
	if node == nil {
		return fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	class, err := e.mgr.ClassFor(node)
	if err != nil {
		return err
	}
	e.typ = node
	e.props.SetClass(class)
	e.dirty = true
	return nil
}

// Contains reports whether other is inside e at any depth.
func (e *Entity) Contains(other *Entity) bool {
	for p := other.loc.Parent; p != nil; p = p.loc.Parent {
		if p == e {
			return true
		}
	}
	return false
}

// Reparent moves e into container at pos. A nil container detaches e. The
// move is rejected when container is e or inside e.
func (e *Entity) Reparent(container *Entity, pos Vector3) error {
	if container == e || (container != nil && e.Contains(container)) {
		return fmt.Errorf("%w: %s into %s", ErrCycle, e.id, container.id)
	}
	if old := e.loc.Parent; old != container {
		if old != nil {
			old.removeChild(e)
		}
		if container != nil {
			container.contains = append(container.contains, e)
		}
		e.loc.Parent = container
	}
	e.loc.Pos = pos
	e.dirty = true
	return nil
}

func (e *Entity) removeChild(child *Entity) {
	for i, c := range e.contains {
		if c == child {
			e.contains = append(e.contains[:i], e.contains[i+1:]...)
			return
		}
	}
}

// SetOrientation replaces the orientation.
func (e *Entity) SetOrientation(q Quaternion) {
	e.loc.Orientation = q
	e.dirty = true
}

// SetBBox replaces the bounding box.
func (e *Entity) SetBBox(b BBox) {
	e.loc.BBox = b
	e.dirty = true
}

// Destroy detaches e from its container and marks it gone. Children are left
// for the caller to dispose of.
func (e *Entity) Destroy() {
	if e.loc.Parent != nil {
		e.loc.Parent.removeChild(e)
		e.loc.Parent = nil
	}
	e.destroyed = true
}

// Set writes an attribute. Geometric attributes go to the location, other
// names to the property store.
func (e *Entity) Set(name string, value any) error {
	switch name {
	case "id", "parents", "loc", "objtype":
		return fmt.Errorf("%w: %s", ErrReservedAttr, name)
	case "pos":
		v, ok := VectorFrom(value)
		if !ok {
			return fmt.Errorf("%w: pos from %T", property.ErrTypeMismatch, value)
		}
		e.loc.Pos = v
	case "orientation":
		q, ok := QuaternionFrom(value)
		if !ok {
			return fmt.Errorf("%w: orientation from %T", property.ErrTypeMismatch, value)
		}
		e.loc.Orientation = q
	case "bbox":
		b, ok := BBoxFrom(value)
		if !ok {
			return fmt.Errorf("%w: bbox from %T", property.ErrTypeMismatch, value)
		}
		e.loc.BBox = b
	default:
		if err := e.props.Set(name, value); err != nil {
			return err
		}
	}
	e.dirty = true
	return nil
}

// Describe renders e for logs. It accepts nil and untyped entities.
func (e *Entity) Describe() string {
	if e == nil {
		return "<nil entity>"
	}
	tn := typeName(e.typ)
	if tn == "" {
		tn = "untyped"
	}
	if name := e.props.String("name", ""); name != "" {
		return fmt.Sprintf("%s '%s' (%s)", tn, name, e.id)
	}
	return fmt.Sprintf("%s (%s)", tn, e.id)
}

func (e *Entity) String() string { return e.Describe() }

// IsReachableForOtherEntity reports whether other can reach e. When point is
// given it is a position in e's own frame; otherwise the edge of e's bounding
// sphere is used. The reach is other's "reach" property plus extraReach.
func (e *Entity) IsReachableForOtherEntity(other *Entity, point *Vector3, extraReach float64) bool {
	if other == nil {
		return false
	}
	if other == e || other == e.loc.Parent || e.Contains(other) {
		return true
	}
	ancestor := commonAncestor(e, other)
	if ancestor == nil {
		return false
	}

	var target Vector3
	if point != nil {
		target = toFrame(e, *point, ancestor)
	} else {
		target = toFrame(e, Vector3{}, ancestor)
	}
	dist := target.Distance(toFrame(other, Vector3{}, ancestor))
	if point == nil {
		dist = math.Max(0, dist-e.loc.BBox.Radius())
	}
	reach := other.props.Float("reach", 0) + extraReach
	return dist <= reach
}

// commonAncestor returns the nearest entity containing both a and b, counting
// a and b themselves.
func commonAncestor(a, b *Entity) *Entity {
	chain := make(map[*Entity]struct{})
	for p := a; p != nil; p = p.loc.Parent {
		chain[p] = struct{}{}
	}
	for p := b; p != nil; p = p.loc.Parent {
		if _, ok := chain[p]; ok {
			return p
		}
	}
	return nil
}

// toFrame converts a point local to e into the frame of ancestor.
func toFrame(e *Entity, local Vector3, ancestor *Entity) Vector3 {
	p := local
	for cur := e; cur != ancestor && cur != nil; cur = cur.loc.Parent {
		p = cur.loc.Orientation.Rotate(p).Add(cur.loc.Pos)
	}
	return p
}
