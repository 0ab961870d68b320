package dispatch

import "errors"

var (
	ErrHandlerPanic     = errors.New("operation handler panicked")
	ErrUnknownType      = errors.New("behavior bound to unknown type")
	ErrUnknownOperation = errors.New("handler for unknown operation")
)
