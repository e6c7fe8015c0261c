package driver

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kushal-thakkar/facet/internal/model"
)

// streamBatchSize is the default hand-off batch size for streaming reads,
// per spec §5.
const streamBatchSize = 100

// workerCap bounds the number of in-flight blocking calls per driver
// instance, per spec §5 ("≈5 workers per driver instance").
const workerCap = 5

// workerPool dispatches blocking backend calls (bigquery, snowflake) onto
// a bounded number of goroutines so the gateway's scheduler is never
// blocked waiting on a native blocking client.
type workerPool struct {
	sem *semaphore.Weighted
}

func newWorkerPool() *workerPool {
	return &workerPool{sem: semaphore.NewWeighted(workerCap)}
}

// run dispatches a single blocking call through the pool, blocking the
// caller (not the gateway's scheduler) until a worker slot is free and the
// call completes.
func (p *workerPool) run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ = gctx
		return fn()
	})
	return g.Wait()
}

// streamViaBatches runs fetch repeatedly (each call pulling up to
// streamBatchSize rows) on a single producer goroutine feeding a bounded
// channel, per spec §5's producer/bounded-channel streaming shape. fetch
// returns a batch of rows and false once exhausted.
func streamViaBatches(ctx context.Context, pool *workerPool, fetch func() ([]model.Row, bool, error)) <-chan StreamBatch {
	out := make(chan StreamBatch, 1)

	go func() {
		defer close(out)
		for {
			var (
				rows []model.Row
				more bool
				err  error
			)
			runErr := pool.run(ctx, func() error {
				rows, more, err = fetch()
				return err
			})
			if runErr != nil {
				select {
				case out <- StreamBatch{Err: runErr}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				select {
				case out <- StreamBatch{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- StreamBatch{Rows: rows}:
			case <-ctx.Done():
				return
			}
			if !more {
				return
			}
		}
	}()

	return out
}
