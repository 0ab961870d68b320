package router

import (
	"fmt"
	"strings"
	"time"
)

// OrphanPolicy decides what happens to the children of a deleted entity.
type OrphanPolicy uint8

const (
	// OrphanCascade deletes children along with their container.
	OrphanCascade OrphanPolicy = iota
	// OrphanReparent moves children into the deleted entity's container.
	OrphanReparent
)

func (p OrphanPolicy) String() string {
	switch p {
	case OrphanCascade:
		return "cascade"
	case OrphanReparent:
		return "reparent"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

func (p OrphanPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *OrphanPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "cascade", "":
		*p = OrphanCascade
	case "reparent":
		*p = OrphanReparent
	default:
		return fmt.Errorf("%w: orphan policy %q", ErrInvalidConfig, text)
	}
	return nil
}

type Config struct {
	OrphanPolicy OrphanPolicy `yaml:"orphan_policy" env:"ORPHAN_POLICY"`
	// MaxImmediateIterations caps the operations delivered in one chain
	// before the rest of the chain is dropped as a fault.
	MaxImmediateIterations int `yaml:"max_immediate_iterations" env:"MAX_IMMEDIATE_ITERATIONS"`
	// BasicTick is the base period handlers use to reschedule themselves.
	BasicTick time.Duration `yaml:"basic_tick" env:"BASIC_TICK"`
	// TickInterval is the wall clock period of Run.
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	Seed         uint64        `yaml:"seed" env:"SEED"`
}

func DefaultConfig() Config {
	return Config{
		OrphanPolicy:           OrphanCascade,
		MaxImmediateIterations: 1000,
		BasicTick:              30 * time.Second,
		TickInterval:           100 * time.Millisecond,
		Seed:                   1,
	}
}

func (c Config) Validate() error {
	if c.MaxImmediateIterations <= 0 {
		return fmt.Errorf("%w: max_immediate_iterations must be positive", ErrInvalidConfig)
	}
	if c.BasicTick <= 0 {
		return fmt.Errorf("%w: basic_tick must be positive", ErrInvalidConfig)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalidConfig)
	}
	if c.OrphanPolicy > OrphanReparent {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.OrphanPolicy)
	}
	return nil
}
