package pipeline

import "context"

// ItemSource produces the items a Source stage feeds into the pipeline.
// Next returns ok=false once exhausted; a non-nil err stops iteration
// early and is logged, matching original_source/pipeline.py's
// Source.run() catching any exception from new_item_iterable and ending
// the run rather than propagating.
type ItemSource interface {
	Next() (item any, ok bool, err error)
}

// Source is the head of a pipeline: it only produces, feeding items from
// an ItemSource onto its output queue for the first Pipe/Sink to consume.
type Source struct {
	*segment
	items ItemSource
}

// NewSource constructs a Source with the given output queue capacity (0
// means unbounded).
func NewSource(name string, capacity int, items ItemSource) *Source {
	return &Source{segment: newSegment(name, capacity), items: items}
}

// Start begins feeding items from the underlying ItemSource in a
// goroutine.
func (s *Source) Start(ctx context.Context) {
	s.workDone.Store(false)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Source) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.workDone.Store(true)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("source stopping: context cancelled")
			return
		default:
		}

		item, ok, err := s.items.Next()
		if err != nil {
			s.log.Error("source iterator failed; ending early", "error", err)
			return
		}
		if !ok {
			return
		}
		s.q.Put(item)
	}
}
