package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/mlcommons/modelbench-runner/pkg/queue"
)

// HandleFunc processes one item taken from upstream. Call emit for each
// item that should continue downstream — zero, one, or many times (a
// fan-out stage like a SUT assigner calls it once per SUT). A returned
// error causes the item to be dropped and logged, exactly like
// original_source/pipeline.py's Pipe.run() catching any exception from
// handle_item and continuing rather than aborting the stage.
type HandleFunc func(ctx context.Context, item any, emit func(any)) error

// Pipe is a middle pipeline stage: it consumes from upstream and produces
// for downstream, running thread_count worker goroutines against the same
// upstream queue.
type Pipe struct {
	*segment
	workers   int
	handle    HandleFunc
	workersWG sync.WaitGroup
}

// NewPipe constructs a Pipe with workers concurrent worker goroutines
// (default 1 if workers <= 0), matching original_source/pipeline.py's
// `Pipe(thread_count=...)`.
func NewPipe(name string, capacity, workers int, handle HandleFunc) *Pipe {
	if workers <= 0 {
		workers = 1
	}
	return &Pipe{segment: newSegment(name, capacity), workers: workers, handle: handle}
}

// Start launches the worker goroutines and the completion-watcher
// goroutine that marks this stage done once every worker has exited.
func (p *Pipe) Start(ctx context.Context) {
	p.workDone.Store(false)
	for i := 0; i < p.workers; i++ {
		p.workersWG.Add(1)
		go p.runWorker(ctx)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.workersWG.Wait()
		p.workDone.Store(true)
	}()
}

func (p *Pipe) runWorker(ctx context.Context) {
	defer p.workersWG.Done()

	for !p.upstream.Done() {
		item, err := p.upstream.q.Get(0)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			continue
		}

		herr := p.handle(ctx, item, p.q.Put)
		p.upstream.q.TaskDone()
		if herr != nil {
			p.log.Warn("skipping item after handler error", "item", item, "error", herr)
			continue
		}
		p.completed.Add(1)
	}
}
