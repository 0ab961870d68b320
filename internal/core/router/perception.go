package router

import "github.com/zeusync/simkernel/internal/core/entity"

// Perception decides which entities observe a broadcast from an entity.
type Perception interface {
	Observers(from *entity.Entity) []*entity.Entity
}

// PerceptionFunc adapts a function to Perception.
type PerceptionFunc func(from *entity.Entity) []*entity.Entity

func (f PerceptionFunc) Observers(from *entity.Entity) []*entity.Entity { return f(from) }

// ContainerPerception lets the container and the siblings of an entity
// observe it. The entity itself is not included.
var ContainerPerception = PerceptionFunc(func(from *entity.Entity) []*entity.Entity {
	parent := from.Parent()
	if parent == nil {
		return nil
	}
	out := []*entity.Entity{parent}
	for _, c := range parent.Children() {
		if c != from {
			out = append(out, c)
		}
	}
	return out
})
