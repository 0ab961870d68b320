package types

import "errors"

// Registry errors
var (
	ErrUnknownParent = errors.New("unknown parent type")
	ErrDuplicateType = errors.New("type already registered")
	ErrCycle         = errors.New("type inheritance cycle")
	ErrInvalidType   = errors.New("invalid type definition")
)
