package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a long-running unit of work that stops when its context is done.
type Task func(ctx context.Context) error

// Run starts every task in its own goroutine and waits for all of them. The
// first task to fail cancels the context of the others; its error is returned.
// Nil tasks are skipped.
func Run(ctx context.Context, tasks ...Task) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		if task == nil {
			continue
		}
		group.Go(func() error {
			return task(groupCtx)
		})
	}
	return group.Wait()
}
