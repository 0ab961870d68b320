package types

import (
	"fmt"
	"sort"
	"sync"
)

const (
	// RootName is the single root of the inheritance graph.
	RootName = "root"
	// OperationRootName is the ancestor of every operation type.
	OperationRootName = "root_operation"
	// EntityRootName is the ancestor of every entity type.
	EntityRootName = "root_entity"
)

// Registry is the inheritance graph shared by entity and operation types.
// Each world owns its own Registry.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	ops   []*Node
	root  *Node
}

// NewRegistry returns a registry holding only the root type.
func NewRegistry() *Registry {
	root := &Node{name: RootName, op: OpInvalid}
	root.linearize(nil)
	return &Registry{
		nodes: map[string]*Node{RootName: root},
		root:  root,
	}
}

// Root returns the root node.
func (r *Registry) Root() *Node { return r.root }

// AddType is shorthand for Add(NewNode(name, parents, defaults)).
func (r *Registry) AddType(name string, parents []string, defaults map[string]any) (*Node, error) {
	return r.Add(NewNode(name, parents, defaults))
}

// Add inserts a type. Every parent must already be registered; on any failure
// the registry is left exactly as it was.
func (r *Registry) Add(desc *Node) (*Node, error) {
	if desc == nil || desc.name == "" {
		return nil, fmt.Errorf("%w: empty type name", ErrInvalidType)
	}
	if len(desc.parents) == 0 {
		return nil, fmt.Errorf("%w: type %q declares no parents", ErrInvalidType, desc.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[desc.name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateType, desc.name)
	}
	parents := make([]*Node, 0, len(desc.parents))
	for _, pname := range desc.parents {
		if pname == desc.name {
			return nil, fmt.Errorf("%w: %s lists itself as parent", ErrCycle, desc.name)
		}
		p, ok := r.nodes[pname]
		if !ok {
			return nil, fmt.Errorf("%w: %q for type %q", ErrUnknownParent, pname, desc.name)
		}
		parents = append(parents, p)
	}

	n := &Node{
		name:     desc.name,
		parents:  append([]string(nil), desc.parents...),
		defaults: desc.Defaults(),
		script:   desc.script,
		op:       OpInvalid,
	}
	n.linearize(parents)

	if n.IsA(OperationRootName) {
		n.op = OpNo(len(r.ops))
		r.ops = append(r.ops, n)
		n.opAncestors = make([]OpNo, 0, len(n.ancestors))
		for _, a := range n.ancestors {
			if a.op != OpInvalid {
				n.opAncestors = append(n.opAncestors, a.op)
			}
		}
	}

	for _, p := range parents {
		p.children = append(p.children, n.name)
	}
	r.nodes[n.name] = n
	return n, nil
}

// Get returns the named type, or nil if it is not registered.
func (r *Registry) Get(name string) *Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[name]
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// IsA reports whether ancestor appears in the transitive parent closure of
// name, including name itself. Unknown names are never anything.
func (r *Registry) IsA(name, ancestor string) bool {
	return r.Get(name).IsA(ancestor)
}

// Classify maps an operation name to its numeric code, or OpInvalid.
func (r *Registry) Classify(name string) OpNo {
	n := r.Get(name)
	if n == nil {
		return OpInvalid
	}
	return n.op
}

// Operation returns the operation type with the given code.
func (r *Registry) Operation(op OpNo) *Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if op < 0 || int(op) >= len(r.ops) {
		return nil
	}
	return r.ops[op]
}

// OpAncestors returns the codes of op and its operation ancestors, most
// specific first. The slice is shared and must not be modified.
func (r *Registry) OpAncestors(op OpNo) []OpNo {
	n := r.Operation(op)
	if n == nil {
		return nil
	}
	return n.opAncestors
}

// OpCount is the number of registered operation types.
func (r *Registry) OpCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// Count is the number of registered types, root included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Children lists the direct subtypes of name, or nil when name is unknown.
func (r *Registry) Children(name string) []string {
	n := r.Get(name)
	if n == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return n.Children()
}

// Names lists every registered type name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descend walks the graph from the root following child links. A type with
// several parents is visited once, at its first discovery.
func (r *Registry) Descend(fn func(n *Node, depth int)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.nodes))
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if _, ok := seen[n.name]; ok {
			return
		}
		seen[n.name] = struct{}{}
		fn(n, depth)
		for _, c := range n.children {
			walk(r.nodes[c], depth+1)
		}
	}
	walk(r.root, 0)
}
