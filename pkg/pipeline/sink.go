package pipeline

import (
	"context"
	"errors"

	"github.com/mlcommons/modelbench-runner/pkg/queue"
)

// SinkFunc processes one item taken from upstream; it produces nothing
// further downstream. A returned error causes the item to be dropped and
// logged, matching original_source/pipeline.py's Sink.run().
type SinkFunc func(ctx context.Context, item any) error

// Sink is the tail of a pipeline: it only consumes.
type Sink struct {
	*segment
	handle SinkFunc
}

// NewSink constructs a Sink.
func NewSink(name string, handle SinkFunc) *Sink {
	// A sink's own output queue is never read from (nothing is downstream
	// of it), so its capacity is irrelevant; 0 (unbounded) avoids ever
	// blocking handle_item's caller on a queue nobody drains.
	return &Sink{segment: newSegment(name, 0), handle: handle}
}

// Start begins consuming from upstream in a goroutine.
func (s *Sink) Start(ctx context.Context) {
	s.workDone.Store(false)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Sink) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.workDone.Store(true)

	for !s.upstream.Done() {
		item, err := s.upstream.q.Get(0)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			continue
		}

		herr := s.handle(ctx, item)
		s.upstream.q.TaskDone()
		if herr != nil {
			s.log.Warn("sink failed to handle item", "item", item, "error", herr)
			continue
		}
		s.completed.Add(1)
	}
}
