package rules

import (
	"fmt"

	"github.com/zeusync/simkernel/internal/core/dispatch"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/operation"
)

// World is the behavior of the root container. It cannot be deleted.
func World(thing *dispatch.Behavior) *dispatch.Behavior {
	return dispatch.NewBehavior("world").Extend(thing).
		On("delete", func(_ dispatch.World, e *entity.Entity, _ *operation.Operation, _ *operation.Vector) error {
			return fmt.Errorf("%w: %s", ErrUndeletable, e.Describe())
		})
}
