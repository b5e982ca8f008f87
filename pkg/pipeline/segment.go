// Package pipeline implements the staged, multi-threaded Source → Pipe(s)
// → Sink framework the prompt and annotator pipelines are built from
// (spec.md §4.3, §4.4). It mirrors original_source/pipeline.py's
// PipelineSegment/Source/Pipe/CachingPipe/Sink/Pipeline hierarchy, with
// Python's subclass-and-override shape replaced by Go composition: callers
// configure a Source/Pipe/Sink with plain handler functions instead of
// subclassing an abstract base.
package pipeline

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mlcommons/modelbench-runner/pkg/queue"
)

// segment is the shared state every stage (Source, Pipe, Sink) embeds:
// its own output queue, a link to the upstream stage's queue, the
// done-detection bookkeeping, and the goroutine-lifecycle WaitGroup Join
// waits on. It mirrors original_source/pipeline.py's PipelineSegment base
// class.
type segment struct {
	name     string
	log      *slog.Logger
	q        *queue.Queue
	upstream *segment

	workDone  atomic.Bool
	completed atomic.Int64
	wg        sync.WaitGroup
}

func newSegment(name string, capacity int) *segment {
	return &segment{
		name: name,
		log:  slog.With("stage", name),
		q:    queue.New(capacity),
	}
}

func (s *segment) setUpstream(up *segment) {
	s.upstream = up
}

func (s *segment) out() *segment {
	return s
}

// Done reports whether this stage and every stage upstream of it have
// finished producing, and this stage's own output queue has drained — the
// same recursive `upstream.done() and queue.empty()` predicate
// original_source/pipeline.py's PipelineSegment.done() uses.
func (s *segment) Done() bool {
	if s.upstream != nil && !s.upstream.Done() {
		return false
	}
	return s.workDone.Load() && s.q.Empty()
}

// Join blocks until every item this stage has put onto its own output
// queue has been acknowledged downstream, then waits for this stage's
// goroutines to exit.
func (s *segment) Join() {
	s.q.Join()
	s.wg.Wait()
}

// Completed returns the number of items this stage has successfully
// processed so far.
func (s *segment) Completed() int64 {
	return s.completed.Load()
}
