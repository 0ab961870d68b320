package storage

import (
	"context"
	"fmt"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/observability/log"
)

// Restorer rebuilds one entity from a snapshot. The world router implements
// it.
type Restorer interface {
	RestoreEntity(snap element.Map, intID int64) (*entity.Entity, error)
}

// Restore loads every record of store into target, containers before their
// contents. Records whose container was never persisted are skipped with a
// warning. It returns the number of restored entities.
func Restore(ctx context.Context, store Store, target Restorer, logger log.Log) (int, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	recs, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}

	byID := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	const (
		pending = iota
		visiting
		done
	)
	state := make(map[string]int, len(recs))
	restored := 0

	var visit func(rec Record) error
	visit = func(rec Record) error {
		switch state[rec.ID] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("restore %s: containment cycle", rec.ID)
		}
		state[rec.ID] = visiting
		defer func() { state[rec.ID] = done }()

		if rec.Parent != "" {
			parent, ok := byID[rec.Parent]
			if !ok {
				logger.Warn("skipping record with unknown container",
					log.String("entity", rec.ID), log.String("container", rec.Parent))
				return nil
			}
			if err := visit(parent); err != nil {
				return err
			}
		}
		snap := element.CloneMap(rec.Snapshot)
		if snap == nil {
			snap = element.Map{}
		}
		snap["id"] = rec.ID
		if _, err := target.RestoreEntity(snap, rec.IntID); err != nil {
			logger.Warn("skipping unrestorable record", log.String("entity", rec.ID), log.Error(err))
			return nil
		}
		restored++
		return nil
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		if err := visit(rec); err != nil {
			return restored, err
		}
	}
	logger.Info("world restored", log.Int("entities", restored), log.Int("records", len(recs)))
	return restored, nil
}
