package script

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Shopify/go-lua"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/operation"
)

// push places an element value on the stack. Entity references stay marker
// tables so scripts can hand them back unchanged.
func push(l *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case string:
		l.PushString(x)
	case []any:
		l.CreateTable(len(x), 0)
		for i, item := range x {
			push(l, item)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		pushMap(l, x)
	default:
		if n, ok := element.Float(x); ok {
			l.PushNumber(n)
			return
		}
		l.PushString(fmt.Sprint(x))
	}
}

func pushMap(l *lua.State, m map[string]any) {
	l.CreateTable(0, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		push(l, m[k])
		l.SetField(-2, k)
	}
}

// toGo reads the value at index. Integral numbers become int64.
func toGo(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeTable:
		return tableToGo(l, index)
	default:
		return nil
	}
}

func tableToGo(l *lua.State, index int) any {
	index = l.AbsIndex(index)
	n := l.RawLength(index)
	count := 0
	l.PushNil()
	for l.Next(index) {
		count++
		l.Pop(1)
	}
	if n > 0 && n == count {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			l.RawGetInt(index, i)
			out = append(out, toGo(l, -1))
			l.Pop(1)
		}
		return out
	}
	return tableToMap(l, index)
}

func tableToMap(l *lua.State, index int) map[string]any {
	index = l.AbsIndex(index)
	out := map[string]any{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			k, _ := l.ToString(-2)
			if v := toGo(l, -1); v != nil {
				out[k] = v
			}
		}
		l.Pop(1)
	}
	return out
}

func pushOperation(l *lua.State, op *operation.Operation) {
	l.CreateTable(0, 6)
	l.PushString(op.Type())
	l.SetField(-2, "type")
	l.PushString(op.From())
	l.SetField(-2, "from")
	push(l, toList(op.To()))
	l.SetField(-2, "to")
	l.PushNumber(float64(op.Serial()))
	l.SetField(-2, "serial")
	l.PushNumber(float64(op.RefNo()))
	l.SetField(-2, "refno")

	args := op.Args()
	l.CreateTable(len(args), 0)
	for i, a := range args {
		pushMap(l, a)
		l.RawSetInt(-2, i+1)
	}
	l.SetField(-2, "args")
}

func toList(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// opFromTable builds an operation from a script table. from defaults to the
// scripted entity; to may be a string or a list; args may be one record or a
// list of records; future is in seconds.
func opFromTable(raw map[string]any, self string, refno int64) (*operation.Operation, error) {
	typ, _ := raw["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("%w: operation without type", ErrBadResult)
	}

	from := self
	if s, ok := raw["from"].(string); ok && s != "" {
		from = s
	}
	opts := []operation.Option{operation.From(from), operation.RefNo(refno)}

	switch to := raw["to"].(type) {
	case nil:
	case string:
		opts = append(opts, operation.To(to))
	case []any:
		ids := make([]string, 0, len(to))
		for _, v := range to {
			id, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s: destination %v", ErrBadResult, typ, v)
			}
			ids = append(ids, id)
		}
		opts = append(opts, operation.To(ids...))
	case map[string]any:
		if len(to) != 0 {
			return nil, fmt.Errorf("%w: %s: destination %v", ErrBadResult, typ, to)
		}
	default:
		return nil, fmt.Errorf("%w: %s: destination %v", ErrBadResult, typ, to)
	}

	switch args := raw["args"].(type) {
	case nil:
	case map[string]any:
		opts = append(opts, operation.Args(args))
	case []any:
		for _, a := range args {
			rec, ok := a.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s: argument %v", ErrBadResult, typ, a)
			}
			opts = append(opts, operation.Args(rec))
		}
	default:
		return nil, fmt.Errorf("%w: %s: argument %v", ErrBadResult, typ, args)
	}

	if f, ok := element.Float(raw["future"]); ok && f > 0 {
		opts = append(opts, operation.FutureIn(time.Duration(f*float64(time.Second))))
	}
	if r, ok := element.Int(raw["refno"]); ok && r != 0 {
		opts = append(opts, operation.RefNo(r))
	}
	return operation.New(typ, opts...), nil
}
