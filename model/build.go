// SPDX-License-Identifier: MIT

package model

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/metrics"
)

type indexed struct {
	i int
	c Contribution
	d time.Duration
}

// Build folds every recording into a new model over ref.
//
// Implementation:
//   - Stage 1: Up to workers goroutines (GOMAXPROCS when ≤ 0) run Compute.
//   - Stage 2: One collector applies contributions strictly in input order,
//     so the sums are bit-identical to a sequential fold.
//
// Behavior highlights:
//   - The first Compute or Apply error cancels the remaining work.
//   - ctx cancellation stops scheduling and returns ctx.Err().
func Build(ctx context.Context, ref locs.Set, brains []*brain.Brain, workers int, opts ...Option) (*Model, error) {
	m, err := New(ref, opts...)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan indexed, workers)

	g.Go(func() error {
		pending := make(map[int]indexed, workers)
		next := 0
		for r := range results {
			pending[r.i] = r
			for {
				p, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				err := m.Apply(p.c)
				m.observeFold(brains[next], p.c, p.d, err)
				if err != nil {
					return fmt.Errorf("Build: subject %d: %w", next, err)
				}
				next++
			}
		}
		return nil
	})

	producers, pctx := errgroup.WithContext(gctx)
	producers.SetLimit(workers)
	for i, b := range brains {
		if pctx.Err() != nil {
			break
		}
		producers.Go(func() error {
			start := time.Now()
			c, err := Compute(b, ref, m.clip)
			if err != nil {
				m.observeFold(b, Contribution{}, time.Since(start), err)
				return fmt.Errorf("Build: subject %d: %w", i, err)
			}
			select {
			case results <- indexed{i: i, c: c, d: time.Since(start)}:
				return nil
			case <-pctx.Done():
				return pctx.Err()
			}
		})
	}
	g.Go(func() error {
		defer close(results)
		return producers.Wait()
	})

	if err = g.Wait(); err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if m.observe {
		metrics.SetModelSubjects(m.NSubs)
	}
	m.log.Info("model built", "locations", ref.Len(), "recordings", len(brains), "n_subs", m.NSubs)

	return m, nil
}
