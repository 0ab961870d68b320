package entity

import (
	"fmt"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/property"
)

// reservedKeys are written by Snapshot and never stored as properties.
var reservedKeys = map[string]struct{}{
	"id": {}, "parents": {}, "loc": {}, "pos": {}, "orientation": {}, "bbox": {},
}

// Snapshot flattens the entity into an attribute map: identity, type,
// container id, geometry and every property carrying mask.
func (e *Entity) Snapshot(mask property.Flags) element.Map {
	out := element.Map{"id": e.id}
	if e.typ != nil {
		out["parents"] = element.List{e.typ.Name()}
	}
	if e.loc.Parent != nil {
		out["loc"] = e.loc.Parent.id
	}
	out["pos"] = e.loc.Pos.List()
	out["orientation"] = e.loc.Orientation.List()
	if e.loc.BBox.IsValid() {
		out["bbox"] = e.loc.BBox.List()
	}
	props := make(map[string]any)
	e.props.Snapshot(props, mask)
	for k, v := range props {
		if _, reserved := reservedKeys[k]; !reserved {
			out[k] = v
		}
	}
	return out
}

// SnapshotType reads the type name of a snapshot.
func SnapshotType(snap element.Map) string {
	if list, ok := snap["parents"].([]any); ok && len(list) > 0 {
		s, _ := list[0].(string)
		return s
	}
	return ""
}

// ApplySnapshot restores geometry and properties from snap. Identity, type
// and container are left to the caller.
func (e *Entity) ApplySnapshot(snap element.Map) error {
	for _, k := range element.Keys(snap) {
		switch k {
		case "id", "parents", "loc":
			continue
		}
		v := snap[k]
		if s, ok := v.(string); ok && s == "" {
			// Dangling references are persisted as empty strings.
			if p, ok := e.props.Property(k); ok && p.Kind() == element.KindRef {
				continue
			}
		}
		if err := e.Set(k, v); err != nil {
			return fmt.Errorf("restore %s.%s: %w", e.id, k, err)
		}
	}
	return nil
}
