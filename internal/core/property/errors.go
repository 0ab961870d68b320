package property

import "errors"

var (
	// ErrTypeMismatch is returned when a value cannot be stored in a
	// property of a different kind.
	ErrTypeMismatch = errors.New("property type mismatch")
	// ErrNotWritable rejects script writes to properties without ScriptWritable.
	ErrNotWritable = errors.New("property not script writable")
)
