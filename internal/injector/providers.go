package injector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"

	"github.com/zeusync/simkernel/internal/config"
	"github.com/zeusync/simkernel/internal/core/events/bus"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/observability/trace"
	"github.com/zeusync/simkernel/internal/core/property"
	"github.com/zeusync/simkernel/internal/core/router"
	"github.com/zeusync/simkernel/internal/core/storage"
	"github.com/zeusync/simkernel/internal/core/storage/sqlite"
	"github.com/zeusync/simkernel/internal/core/types"
	"github.com/zeusync/simkernel/internal/rules"
	"github.com/zeusync/simkernel/internal/script"
)

// App is the assembled kernel. Store and Persister are nil when persistence
// is disabled.
type App struct {
	Config    config.Config
	Log       *log.Logger
	Types     *types.Registry
	Router    *router.Router
	Scripts   *script.Engine
	Store     storage.Store
	Persister *storage.Persister
	Tracing   trace.Shutdown
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideTracing,
	ProvideRegistry,
	ProvideProperties,
	ProvideBus,
	ProvideScripts,
	ProvideRouter,
	ProvideStore,
	ProvidePersister,
)

func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.Log.Level, log.WithEncoding(cfg.Log.Encoding))
}

func ProvideTracing(ctx context.Context, cfg config.Config) (trace.Shutdown, error) {
	return trace.Setup(ctx, cfg.Tracing)
}

// ProvideRegistry builds the built-in type tree and installs the configured
// ruleset on top of it.
func ProvideRegistry(cfg config.Config, logger *log.Logger) (*types.Registry, error) {
	reg, err := types.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.Rules.Ruleset == "" {
		return reg, nil
	}
	rs, err := types.LoadRulesetFile(cfg.Rules.Ruleset)
	if err != nil {
		return nil, err
	}
	if err := rs.Install(reg); err != nil {
		return nil, fmt.Errorf("install ruleset %s: %w", cfg.Rules.Ruleset, err)
	}
	logger.Info("ruleset installed", log.String("path", cfg.Rules.Ruleset), log.Int("types", reg.Count()))
	return reg, nil
}

func ProvideProperties(reg *types.Registry) *property.Manager {
	return property.NewManager(reg)
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

func ProvideScripts(cfg config.Config, logger *log.Logger) (*script.Engine, error) {
	eng := script.NewEngine(logger)
	if cfg.Rules.Scripts != "" {
		if err := eng.LoadDir(cfg.Rules.Scripts); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// ProvideRouter builds the world router with the native rules installed.
func ProvideRouter(cfg config.Config, props *property.Manager, b bus.EventBus, scripts *script.Engine, logger *log.Logger) (*router.Router, error) {
	r, err := router.New(cfg.Router, props,
		router.WithBus(b),
		router.WithLogger(logger),
		router.WithScriptBinder(scripts),
	)
	if err != nil {
		return nil, err
	}
	if err := rules.Install(r.Dispatcher()); err != nil {
		return nil, err
	}
	return r, nil
}

func ProvideStore(cfg config.Config) (storage.Store, func(), error) {
	if cfg.Storage.Path == "" {
		return nil, func() {}, nil
	}
	s, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

// ProvidePersister hooks persistence into the router's tick and deletions.
func ProvidePersister(cfg config.Config, store storage.Store, r *router.Router, logger *log.Logger) (*storage.Persister, error) {
	if store == nil {
		return nil, nil
	}
	p := storage.NewPersister(store, cfg.Storage.Persister, logger)
	if err := p.Attach(r.Bus()); err != nil {
		return nil, err
	}
	r.AddTickHook(func(now time.Duration) { p.OnTick(now, r.Entities) })
	return p, nil
}
