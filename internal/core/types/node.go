package types

import "github.com/zeusync/simkernel/internal/core/element"

// OpNo is the dense numeric classification of an operation type.
type OpNo int

// OpInvalid classifies names that are not registered operation types.
// Callers treat it as "unhandled", never as an error.
const OpInvalid OpNo = -1

// Node is one type in the inheritance graph. Nodes are immutable once
// inserted into a Registry.
type Node struct {
	name     string
	parents  []string
	defaults map[string]any
	script   string

	op          OpNo
	ancestors   []*Node
	ancestorSet map[string]struct{}
	opAncestors []OpNo
	children    []string
}

// NewNode describes a type to be inserted with Registry.Add.
func NewNode(name string, parents []string, defaults map[string]any) *Node {
	return &Node{
		name:     name,
		parents:  append([]string(nil), parents...),
		defaults: element.CloneMap(defaults),
		op:       OpInvalid,
	}
}

// WithScript names the script class bound to entities of this type.
func (n *Node) WithScript(class string) *Node {
	n.script = class
	return n
}

func (n *Node) Name() string      { return n.name }
func (n *Node) Parents() []string { return append([]string(nil), n.parents...) }
func (n *Node) Script() string    { return n.script }
func (n *Node) Op() OpNo          { return n.op }
func (n *Node) IsOperation() bool { return n.op != OpInvalid }

// Defaults returns a copy of the attributes declared on this node only.
func (n *Node) Defaults() map[string]any {
	return element.CloneMap(n.defaults)
}

// Ancestors lists the node itself followed by every transitive parent,
// nearest first. The slice is shared and must not be modified.
func (n *Node) Ancestors() []*Node { return n.ancestors }

// IsA reports whether ancestor is n or one of its transitive parents.
func (n *Node) IsA(ancestor string) bool {
	if n == nil {
		return false
	}
	_, ok := n.ancestorSet[ancestor]
	return ok
}

// Children lists the names of types that declare n as a direct parent.
func (n *Node) Children() []string { return append([]string(nil), n.children...) }

// linearize orders the ancestor closure so that every type comes after all of
// its subtypes in the closure. Ties go to the type discovered first, walking
// the parents in declaration order. Parents are resolved already.
func (n *Node) linearize(parents []*Node) {
	closure := make(map[string]*Node)
	var order []*Node
	for _, p := range parents {
		for _, a := range p.ancestors {
			if _, ok := closure[a.name]; !ok && a.name != n.name {
				closure[a.name] = a
				order = append(order, a)
			}
		}
	}

	pending := make(map[string]int, len(order))
	for _, m := range append([]*Node{n}, order...) {
		for _, pname := range m.parents {
			if _, ok := closure[pname]; ok {
				pending[pname]++
			}
		}
	}

	n.ancestors = make([]*Node, 0, len(order)+1)
	n.ancestorSet = make(map[string]struct{}, len(order)+1)
	emit := func(m *Node) {
		n.ancestors = append(n.ancestors, m)
		n.ancestorSet[m.name] = struct{}{}
		for _, pname := range m.parents {
			if _, ok := closure[pname]; ok {
				pending[pname]--
			}
		}
	}
	emit(n)
	for len(n.ancestors) <= len(order) {
		for _, m := range order {
			if _, done := n.ancestorSet[m.name]; !done && pending[m.name] == 0 {
				emit(m)
				break
			}
		}
	}
}
