package engine

import (
	"bytes"
	"context"
	"io"
	"sync"

	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
)

type job struct {
	ctx       context.Context
	statement testcase.Statement
	scope     *testcase.Scope
	out       io.Writer
	done      chan error
}

// worker executes the statements of one test case in order on its own
// goroutine, so the engine can stop waiting for a statement that hangs.
type worker struct {
	jobs chan job
}

func startWorker() *worker {
	w := &worker{jobs: make(chan job)}
	go w.loop()

	return w
}

func (w *worker) loop() {
	for j := range w.jobs {
		j.done <- execute(j)
	}
}

// stop lets the goroutine exit once its current statement, if any, returns.
func (w *worker) stop() {
	close(w.jobs)
}

func execute(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &classpath.InvocationError{Member: "statement", Cause: &classpath.PanicError{Value: r}, Panicked: true}
		}
	}()

	return j.statement.Execute(j.ctx, j.scope, j.out)
}

// syncBuffer collects output written by the worker and by abandoned workers
// that are still running.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
