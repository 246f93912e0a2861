// Package parallel runs independent, index-addressed units of work.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn for every index in [0,n). With workers <= 1 the calls run in order on
// the calling goroutine; otherwise at most workers calls run at once. fn must write only
// to state owned by its index so callers can merge results by index afterwards.
// The first error cancels the remaining work and is returned.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
