package entity

import "errors"

var (
	// ErrCycle rejects a move that would put an entity inside itself.
	ErrCycle = errors.New("containment cycle")
	// ErrTypeImmutable is returned when setting the type of a typed entity.
	ErrTypeImmutable = errors.New("entity type already set")
	// ErrUnknownType is returned for type names missing from the registry.
	ErrUnknownType = errors.New("unknown entity type")
	// ErrReservedAttr rejects writes to attributes owned by the kernel.
	ErrReservedAttr = errors.New("reserved attribute")
)
