package router

import "errors"

var (
	ErrDuplicateID   = errors.New("duplicate entity id")
	ErrUnknownType   = errors.New("unknown entity type")
	ErrInvalidConfig = errors.New("invalid router config")
)
