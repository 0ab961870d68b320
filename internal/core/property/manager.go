package property

import (
	"fmt"
	"sync"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/types"
)

// Factory builds an empty property for a well-known name.
type Factory func(r Resolver) Property

// Manager owns the property factories and type-class prototypes of one world.
type Manager struct {
	reg      *types.Registry
	resolver *boundResolver

	mu        sync.Mutex
	factories map[string]Factory
	classes   map[*types.Node]*Class
}

// boundResolver lets references be created before the entity table exists.
type boundResolver struct {
	r Resolver
}

func (b *boundResolver) Lookup(id string) (Identified, bool) {
	if b.r == nil {
		return nil, false
	}
	return b.r.Lookup(id)
}

// NewManager returns a manager with the builtin factories installed.
func NewManager(reg *types.Registry) *Manager {
	m := &Manager{
		reg:       reg,
		resolver:  &boundResolver{},
		factories: make(map[string]Factory),
		classes:   make(map[*types.Node]*Class),
	}
	m.installBuiltins()
	return m
}

// Bind sets the resolver used by every reference this manager creates,
// including ones created earlier.
func (m *Manager) Bind(r Resolver) { m.resolver.r = r }

// Resolver returns the manager's resolver.
func (m *Manager) Resolver() Resolver { return m.resolver }

// Registry returns the type registry classes are built from.
func (m *Manager) Registry() *types.Registry { return m.reg }

// Install registers a factory for name, replacing any previous one.
func (m *Manager) Install(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
}

func (m *Manager) installBuiltins() {
	floats := func(flags Flags) Factory {
		return func(Resolver) Property { return NewFloat(flags) }
	}
	ints := func(flags Flags) Factory {
		return func(Resolver) Property { return NewInt(flags) }
	}
	strs := func(flags Flags) Factory {
		return func(Resolver) Property { return NewString(flags) }
	}
	refs := func(flags Flags) Factory {
		return func(r Resolver) Property { return NewEntityRef(r, flags) }
	}
	hidden := Persistent | ScriptWritable

	m.factories = map[string]Factory{
		"mode":             strs(DefaultFlags),
		"name":             strs(DefaultFlags),
		"description":      strs(DefaultFlags),
		"mass":             floats(DefaultFlags),
		"status":           floats(DefaultFlags),
		"maxmass":          floats(hidden),
		"sizeAdult":        floats(hidden),
		"reach":            floats(hidden),
		"speed":            floats(hidden),
		"nourishment":      floats(hidden),
		"fruits":           ints(DefaultFlags),
		"fruitChance":      ints(hidden),
		"radius":           ints(hidden),
		"planted_on":       refs(DefaultFlags),
		"right_hand_wield": refs(DefaultFlags),
	}
}

// Create builds a property for name holding value. Names without a factory
// get a property of the value's kind.
func (m *Manager) Create(name string, value any) (Property, error) {
	m.mu.Lock()
	f, ok := m.factories[name]
	m.mu.Unlock()

	var p Property
	if ok {
		p = f(m.resolver)
	} else {
		p = m.infer(value)
	}
	if err := p.Set(value); err != nil {
		return nil, fmt.Errorf("property %q: %w", name, err)
	}
	return p, nil
}

func (m *Manager) infer(value any) Property {
	switch element.KindOf(value) {
	case element.KindBool:
		return NewBool(DefaultFlags)
	case element.KindInt:
		return NewInt(DefaultFlags)
	case element.KindFloat:
		return NewFloat(DefaultFlags)
	case element.KindString:
		return NewString(DefaultFlags)
	case element.KindList:
		return NewList(DefaultFlags)
	case element.KindMap:
		return NewMap(DefaultFlags)
	case element.KindRef:
		return NewEntityRef(m.resolver, DefaultFlags)
	default:
		return NewSoft(DefaultFlags)
	}
}

// ClassFor returns the prototype set for a type, building and caching it on
// first use. Defaults of more specific ancestors override general ones.
func (m *Manager) ClassFor(node *types.Node) (*Class, error) {
	if node == nil {
		return emptyClass, nil
	}
	m.mu.Lock()
	c, ok := m.classes[node]
	m.mu.Unlock()
	if ok {
		return c, nil
	}

	c = &Class{node: node, props: make(map[string]Property)}
	ancestors := node.Ancestors()
	for i := len(ancestors) - 1; i >= 0; i-- {
		defaults := ancestors[i].Defaults()
		for _, name := range element.Keys(defaults) {
			p, err := m.Create(name, defaults[name])
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", node.Name(), err)
			}
			c.props[name] = p
		}
	}

	m.mu.Lock()
	m.classes[node] = c
	m.mu.Unlock()
	return c, nil
}

// NewStore returns an empty store for an entity of the given type.
func (m *Manager) NewStore(node *types.Node) (*Store, error) {
	c, err := m.ClassFor(node)
	if err != nil {
		return nil, err
	}
	return &Store{mgr: m, class: c, own: make(map[string]Property)}, nil
}

var emptyClass = &Class{props: map[string]Property{}}

// Class holds the read-only default properties shared by every entity of a
// type. Stores copy a prototype before modifying it.
type Class struct {
	node  *types.Node
	props map[string]Property
}

// Type returns the class's type node, nil for the untyped class.
func (c *Class) Type() *types.Node { return c.node }

// Prototype returns the shared default property for name.
func (c *Class) Prototype(name string) (Property, bool) {
	p, ok := c.props[name]
	return p, ok
}

// Names lists the class defaults.
func (c *Class) Names() []string {
	names := make(map[string]any, len(c.props))
	for k := range c.props {
		names[k] = nil
	}
	return element.Keys(names)
}
