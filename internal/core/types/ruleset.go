package types

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/simkernel/internal/core/element"
)

//go:embed builtin.yaml
var builtinRuleset []byte

// Ruleset is a declarative list of types, as read from YAML.
type Ruleset struct {
	Types []TypeConfig `json:"types" yaml:"types"`
}

// TypeConfig describes one type of a ruleset.
type TypeConfig struct {
	Name       string         `json:"name" yaml:"name"`
	Parents    []string       `json:"parents" yaml:"parents"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Script     string         `json:"script,omitempty" yaml:"script,omitempty"`
}

// LoadRuleset decodes a ruleset from a YAML reader.
func LoadRuleset(r io.Reader) (*Ruleset, error) {
	var rs Ruleset
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&rs); err != nil {
		if err == io.EOF {
			return &rs, nil
		}
		return nil, fmt.Errorf("decode ruleset: %w", err)
	}
	return &rs, nil
}

// LoadRulesetFile decodes the ruleset stored at path.
func LoadRulesetFile(path string) (*Ruleset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ruleset: %w", err)
	}
	defer f.Close()
	return LoadRuleset(f)
}

// Validate checks the ruleset for entries that can never be installed.
func (rs *Ruleset) Validate() error {
	seen := make(map[string]struct{}, len(rs.Types))
	for i, tc := range rs.Types {
		if strings.TrimSpace(tc.Name) == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidType, i)
		}
		if len(tc.Parents) == 0 {
			return fmt.Errorf("%w: type %q has no parents", ErrInvalidType, tc.Name)
		}
		if _, dup := seen[tc.Name]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrDuplicateType, tc.Name)
		}
		seen[tc.Name] = struct{}{}
	}
	return nil
}

// Install adds the ruleset's types to reg. Entries may appear before their
// parents; installation repeats until no further entry can be placed, and any
// entry left over fails with ErrUnknownParent.
func (rs *Ruleset) Install(reg *Registry) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	pending := make([]TypeConfig, 0, len(rs.Types))
	for _, tc := range rs.Types {
		if !reg.Has(tc.Name) {
			pending = append(pending, tc)
		}
	}
	for len(pending) > 0 {
		next := pending[:0:0]
		for _, tc := range pending {
			attrs, err := normalizeAttributes(tc)
			if err != nil {
				return err
			}
			_, err = reg.Add(NewNode(tc.Name, tc.Parents, attrs).WithScript(tc.Script))
			switch {
			case err == nil:
			case errors.Is(err, ErrUnknownParent):
				next = append(next, tc)
			default:
				return err
			}
		}
		if len(next) == len(pending) {
			missing := make([]string, 0, len(next))
			for _, tc := range next {
				missing = append(missing, tc.Name)
			}
			return fmt.Errorf("%w: cannot place %s", ErrUnknownParent, strings.Join(missing, ", "))
		}
		pending = next
	}
	return nil
}

// InstallBuiltins adds the core operation hierarchy and base entity classes.
func InstallBuiltins(reg *Registry) error {
	rs, err := LoadRuleset(bytes.NewReader(builtinRuleset))
	if err != nil {
		return err
	}
	return rs.Install(reg)
}

// NewDefaultRegistry returns a registry preloaded with the builtin ruleset.
func NewDefaultRegistry() (*Registry, error) {
	reg := NewRegistry()
	if err := InstallBuiltins(reg); err != nil {
		return nil, fmt.Errorf("install builtin types: %w", err)
	}
	return reg, nil
}

func normalizeAttributes(tc TypeConfig) (map[string]any, error) {
	if len(tc.Attributes) == 0 {
		return nil, nil
	}
	v, err := element.Normalize(tc.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%w: attributes of %q: %v", ErrInvalidType, tc.Name, err)
	}
	return v.(map[string]any), nil
}
