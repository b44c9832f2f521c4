package search

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zipcrack/internal/candidate"
)

type job struct {
	index    int64
	password string
}

// parallel fans candidates out to cfg.Workers verifiers. Candidates are
// numbered in generator order; the terminal event (success or fatal error)
// with the lowest number wins, so the outcome matches a sequential run.
// After the first terminal event nothing new is dispatched and queued
// candidates numbered above it are dropped, while lower-numbered ones still
// run to completion.
func (c *Controller) parallel(ctx context.Context, gen candidate.Generator, target Target) result {
	verifiers := make([]Verifier, c.cfg.Workers)
	for i := range verifiers {
		v, err := target.NewVerifier()
		if err != nil {
			return result{err: err}
		}
		verifiers[i] = v
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		best = result{index: -1}
		// cutoff is best.index, readable without the lock; -1 means none yet.
		cutoff atomic.Int64
	)
	cutoff.Store(-1)
	record := func(r result) {
		mu.Lock()
		if best.index < 0 || r.index < best.index {
			best = r
			cutoff.Store(r.index)
		}
		mu.Unlock()
		cancel()
	}

	jobs := make(chan job, 4*len(verifiers))
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(jobs)
		var i int64
		for pwd := range candidate.Seq(gen) {
			c.observe(gen)
			select {
			case jobs <- job{index: i, password: pwd}:
			case <-gctx.Done():
				return nil
			}
			if gctx.Err() != nil {
				return nil
			}
			i++
		}
		return gen.Err()
	})

	for _, v := range verifiers {
		g.Go(func() error {
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if b := cutoff.Load(); b >= 0 && j.index > b {
					continue
				}
				if res, done := c.judge(j.index, j.password, v.Verify(j.password)); done {
					record(res)
				}
			}
			return nil
		})
	}

	genErr := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	switch {
	case best.index >= 0:
		if best.found {
			c.log.Debug("password found by worker", zap.Int64("index", best.index))
		}
		return best
	case genErr != nil:
		return result{err: genErr}
	case ctx.Err() != nil:
		return result{err: ctx.Err()}
	default:
		return result{}
	}
}
