package property

import (
	"fmt"

	"github.com/zeusync/simkernel/internal/core/element"
)

// Store is the attribute table of one entity. Reads fall back to the class
// defaults; writes never touch the class.
type Store struct {
	mgr   *Manager
	class *Class
	own   map[string]Property
}

// SetClass replaces the class defaults, used when an untyped entity gets its
// type. Own properties are kept.
func (s *Store) SetClass(c *Class) {
	if c == nil {
		c = emptyClass
	}
	s.class = c
}

// Class returns the current class.
func (s *Store) Class() *Class { return s.class }

// Property returns the property serving name, own before class. The class
// prototype must not be modified; use Modify for a writable copy.
func (s *Store) Property(name string) (Property, bool) {
	if p, ok := s.own[name]; ok {
		return p, true
	}
	return s.class.Prototype(name)
}

// Get returns the value of name: own, else class default, else absent.
func (s *Store) Get(name string) (any, bool) {
	p, ok := s.Property(name)
	if !ok {
		return nil, false
	}
	return p.Get()
}

// Has reports whether name has a value.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Float reads a numeric property, returning def when absent or not numeric.
func (s *Store) Float(name string, def float64) float64 {
	v, ok := s.Get(name)
	if !ok {
		return def
	}
	if f, ok := element.Float(v); ok {
		return f
	}
	return def
}

// Int reads an integer property, returning def when absent or not numeric.
func (s *Store) Int(name string, def int64) int64 {
	v, ok := s.Get(name)
	if !ok {
		return def
	}
	if n, ok := element.Int(v); ok {
		return n
	}
	return def
}

// String reads a string property, returning def when absent.
func (s *Store) String(name string, def string) string {
	v, ok := s.Get(name)
	if !ok {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return def
}

// Modify returns a writable own property for name, copying the class
// prototype on first use. It returns false when name is unknown.
func (s *Store) Modify(name string) (Property, bool) {
	if p, ok := s.own[name]; ok {
		return p, true
	}
	proto, ok := s.class.Prototype(name)
	if !ok {
		return nil, false
	}
	p := proto.Copy()
	s.own[name] = p
	return p, true
}

// Set stores value under name through the property's own coercion. The store
// is unchanged when the value is rejected.
func (s *Store) Set(name string, value any) error {
	if p, ok := s.own[name]; ok {
		if err := p.Set(value); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		return nil
	}
	if proto, ok := s.class.Prototype(name); ok {
		p := proto.Copy()
		if err := p.Set(value); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		s.own[name] = p
		return nil
	}
	p, err := s.mgr.Create(name, value)
	if err != nil {
		return err
	}
	s.own[name] = p
	return nil
}

// SetFromScript is Set restricted to ScriptWritable properties.
func (s *Store) SetFromScript(name string, value any) error {
	p, ok := s.Property(name)
	if ok {
		if !p.Flags().Has(ScriptWritable) {
			return fmt.Errorf("%w: %s", ErrNotWritable, name)
		}
		return s.Set(name, value)
	}
	created, err := s.mgr.Create(name, value)
	if err != nil {
		return err
	}
	if !created.Flags().Has(ScriptWritable) {
		return fmt.Errorf("%w: %s", ErrNotWritable, name)
	}
	s.own[name] = created
	return nil
}

// AddToSnapshot writes one property into out. It reports false when no
// property serves name.
func (s *Store) AddToSnapshot(name string, out map[string]any) bool {
	p, ok := s.Property(name)
	if !ok {
		return false
	}
	p.Add(name, out)
	return true
}

// Names lists own and class property names, sorted.
func (s *Store) Names() []string {
	seen := make(map[string]any, len(s.own)+len(s.class.props))
	for k := range s.class.props {
		seen[k] = nil
	}
	for k := range s.own {
		seen[k] = nil
	}
	return element.Keys(seen)
}

// OwnNames lists the properties written on this entity, sorted.
func (s *Store) OwnNames() []string {
	seen := make(map[string]any, len(s.own))
	for k := range s.own {
		seen[k] = nil
	}
	return element.Keys(seen)
}

// Snapshot writes every property carrying all bits of mask into out, own
// values over class defaults. A zero mask selects everything.
func (s *Store) Snapshot(out map[string]any, mask Flags) {
	for _, name := range s.Names() {
		p, _ := s.Property(name)
		if p.Flags().Has(mask) {
			p.Add(name, out)
		}
	}
}
