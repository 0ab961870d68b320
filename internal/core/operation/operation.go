// Package operation defines the immutable typed messages routed between
// entities.
package operation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/simkernel/internal/core/element"
)

// ErrMalformed marks an operation whose arguments a handler cannot use.
var ErrMalformed = errors.New("malformed operation")

// Malformed wraps ErrMalformed with the offending operation type.
func Malformed(op *Operation, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, op.Type(), reason)
}

// Operation is an immutable message. Values are built with New and derived
// with the With* methods, which always return a modified copy.
type Operation struct {
	typ    string
	from   string
	to     []string
	args   []element.Map
	serial int64
	refno  int64

	future    time.Duration
	hasFuture bool
	at        time.Duration
	hasAt     bool
}

// Option configures an operation under construction.
type Option func(*Operation)

// New builds an operation of the given type.
func New(typ string, opts ...Option) *Operation {
	op := &Operation{typ: typ}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// From sets the sender id.
func From(id string) Option {
	return func(op *Operation) { op.from = id }
}

// To sets the destination ids.
func To(ids ...string) Option {
	return func(op *Operation) { op.to = append([]string(nil), ids...) }
}

// Args appends argument records. Records are deep-copied.
func Args(args ...element.Map) Option {
	return func(op *Operation) {
		for _, a := range args {
			op.args = append(op.args, element.CloneMap(a))
		}
	}
}

// Arg appends a single record built from key/value pairs.
func Arg(kv ...any) Option {
	return func(op *Operation) {
		m := make(element.Map, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				m[k] = element.Clone(kv[i+1])
			}
		}
		op.args = append(op.args, m)
	}
}

// FutureIn schedules the operation d after the moment it is routed.
func FutureIn(d time.Duration) Option {
	return func(op *Operation) {
		op.future, op.hasFuture = d, true
		op.at, op.hasAt = 0, false
	}
}

// At schedules the operation for an absolute world time.
func At(t time.Duration) Option {
	return func(op *Operation) {
		op.at, op.hasAt = t, true
		op.future, op.hasFuture = 0, false
	}
}

// RefNo links the operation to the serial of the one that caused it.
func RefNo(serial int64) Option {
	return func(op *Operation) { op.refno = serial }
}

func (op *Operation) Type() string  { return op.typ }
func (op *Operation) From() string  { return op.from }
func (op *Operation) Serial() int64 { return op.serial }
func (op *Operation) RefNo() int64  { return op.refno }

// To returns a copy of the destination ids.
func (op *Operation) To() []string { return append([]string(nil), op.to...) }

// HasDestination reports whether any destination is set.
func (op *Operation) HasDestination() bool { return len(op.to) > 0 }

// NumArgs is the number of argument records.
func (op *Operation) NumArgs() int { return len(op.args) }

// Args returns deep copies of the argument records.
func (op *Operation) Args() []element.Map {
	out := make([]element.Map, len(op.args))
	for i, a := range op.args {
		out[i] = element.CloneMap(a)
	}
	return out
}

// Arg returns a copy of the i-th record.
func (op *Operation) Arg(i int) (element.Map, bool) {
	if i < 0 || i >= len(op.args) {
		return nil, false
	}
	return element.CloneMap(op.args[i]), true
}

// Attr reads one attribute of the first record without copying containers.
// Callers must not modify returned lists or maps.
func (op *Operation) Attr(key string) (any, bool) {
	if len(op.args) == 0 {
		return nil, false
	}
	v, ok := op.args[0][key]
	return v, ok
}

// Future returns the relative dispatch delay, if any.
func (op *Operation) Future() (time.Duration, bool) { return op.future, op.hasFuture }

// Scheduled returns the absolute dispatch time, if any.
func (op *Operation) Scheduled() (time.Duration, bool) { return op.at, op.hasAt }

// IsDeferred reports whether the operation carries any dispatch time.
func (op *Operation) IsDeferred() bool { return op.hasFuture || op.hasAt }

// DueAt resolves the dispatch time against now.
func (op *Operation) DueAt(now time.Duration) time.Duration {
	switch {
	case op.hasAt:
		return op.at
	case op.hasFuture:
		return now + op.future
	default:
		return now
	}
}

func (op *Operation) clone() *Operation {
	c := *op
	c.to = append([]string(nil), op.to...)
	c.args = op.Args()
	return &c
}

// With returns a copy with opts applied.
func (op *Operation) With(opts ...Option) *Operation {
	c := op.clone()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTo returns a copy addressed to ids.
func (op *Operation) WithTo(ids ...string) *Operation { return op.With(To(ids...)) }

// WithFrom returns a copy sent by id.
func (op *Operation) WithFrom(id string) *Operation { return op.With(From(id)) }

// WithSerial returns a copy carrying the router-assigned serial.
func (op *Operation) WithSerial(serial int64) *Operation {
	c := op.clone()
	c.serial = serial
	return c
}

// Immediate returns a copy with any dispatch time removed.
func (op *Operation) Immediate() *Operation {
	c := op.clone()
	c.future, c.hasFuture = 0, false
	c.at, c.hasAt = 0, false
	return c
}

// ScheduledAt returns a copy pinned to an absolute dispatch time.
func (op *Operation) ScheduledAt(t time.Duration) *Operation { return op.With(At(t)) }

func (op *Operation) String() string {
	var b strings.Builder
	b.WriteString(op.typ)
	if op.from != "" {
		b.WriteString(" from=")
		b.WriteString(op.from)
	}
	if len(op.to) > 0 {
		b.WriteString(" to=")
		b.WriteString(strings.Join(op.to, ","))
	}
	if op.serial != 0 {
		fmt.Fprintf(&b, " serial=%d", op.serial)
	}
	if op.hasFuture {
		fmt.Fprintf(&b, " in=%s", op.future)
	}
	if op.hasAt {
		fmt.Fprintf(&b, " at=%s", op.at)
	}
	return b.String()
}

// Vector collects operations produced by a handler.
type Vector []*Operation

// Add appends operations.
func (v *Vector) Add(ops ...*Operation) {
	*v = append(*v, ops...)
}

// Len is the number of collected operations.
func (v Vector) Len() int { return len(v) }

// OfType returns the collected operations with the given type.
func (v Vector) OfType(typ string) Vector {
	var out Vector
	for _, op := range v {
		if op.typ == typ {
			out = append(out, op)
		}
	}
	return out
}
