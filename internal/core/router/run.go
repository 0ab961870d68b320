package router

import (
	"context"
	"time"

	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/operation"
)

// Run drives the router until ctx is done. Operations received on intake are
// processed as they arrive; world time follows the wall clock and deferred
// operations are delivered every TickInterval. Run must be the only goroutine
// touching the router while it runs.
func (r *Router) Run(ctx context.Context, intake <-chan *operation.Operation) error {
	r.ctx = ctx
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	base, start := r.now, time.Now()
	r.log.Info("router running",
		log.Duration("tick_interval", r.cfg.TickInterval),
		log.Int("entities", len(r.entities)),
	)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("router stopped", log.Uint64("delivered", r.stats.Delivered))
			return nil
		case op, ok := <-intake:
			if !ok {
				intake = nil
				continue
			}
			r.advance(base + time.Since(start))
			r.process(ctx, op)
		case <-ticker.C:
			r.Pump(base + time.Since(start))
		}
	}
}
