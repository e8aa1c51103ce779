package fitness

import (
	"context"
	"sync/atomic"

	"gooze.dev/pkg/testsynth/internal/engine"
	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
)

type countingEngine struct {
	engine.Engine

	calls atomic.Int32
}

func (c *countingEngine) Execute(ctx context.Context, tc *testcase.TestCase, loader classpath.Loader) (*engine.Result, error) {
	c.calls.Add(1)
	return c.Engine.Execute(ctx, tc, loader)
}
