package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// Pool executes many test cases concurrently. Each worker owns a loader, so
// no two executions share class state or coverage.
type Pool struct {
	engine    Engine
	workers   int
	newLoader func() classpath.Loader
}

// NewPool returns a pool of workers running engine, each with a loader built
// by newLoader.
func NewPool(engine Engine, workers int, newLoader func() classpath.Loader) *Pool {
	if workers < 1 {
		workers = 1
	}

	return &Pool{engine: engine, workers: workers, newLoader: newLoader}
}

// ExecuteAll runs every test case and returns the results in input order.
// The first loader or substitution failure cancels the remaining runs.
func (p *Pool) ExecuteAll(ctx context.Context, tests []*testcase.TestCase) ([]*Result, error) {
	loaders := make(chan classpath.Loader, p.workers)
	for range p.workers {
		loaders <- p.newLoader()
	}

	results := make([]*Result, len(tests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, tc := range tests {
		g.Go(func() error {
			loader := <-loaders

			result, err := p.engine.Execute(ctx, tc, loader)
			loaders <- loader

			if err != nil {
				slog.Error("Failed to execute test case", "index", i, "error", err)
				return fmt.Errorf("test case %d: %w", i, err)
			}

			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
