package pipeline

import (
	"context"
	"time"
)

// Stage is any pipeline segment produced by NewSource/NewPipe/NewSink (or
// NewCachingPipe, which returns a *Pipe). It is implemented only by types
// in this package — unexported methods promoted from the embedded segment
// — since wiring stages together is this package's job, not a caller's.
type Stage interface {
	Start(ctx context.Context)
	Join()
	Done() bool
	Completed() int64
	setUpstream(*segment)
	out() *segment
}

// progressPollInterval is how often Run polls the sink for completion
// while reporting progress. original_source/pipeline.py's Pipeline.run()
// busy-loops report_progress() with no sleep at all, relying on Python's
// GIL to keep that affordable; a tight spin is wasteful for a goroutine, so
// Run sleeps briefly between polls instead.
const progressPollInterval = 50 * time.Millisecond

// Pipeline wires a Source, zero or more Pipes, and a Sink together and
// drives them to completion, matching original_source/pipeline.py's
// Pipeline.run(): start every stage, poll the sink until done while
// reporting progress, join every stage, report progress one last time.
type Pipeline struct {
	stages   []Stage
	progress func(completed int64)
}

// New wires stages in order (stages[0] must be a Source-shaped stage,
// stages[len-1] a Sink-shaped one) and returns a Pipeline ready to Run.
// progress may be nil to disable progress reporting.
func New(progress func(completed int64), stages ...Stage) *Pipeline {
	for i := 1; i < len(stages); i++ {
		stages[i].setUpstream(stages[i-1].out())
	}
	return &Pipeline{stages: stages, progress: progress}
}

// Run starts every stage, blocks until the sink has drained and every
// upstream stage is done, then joins all stages.
func (p *Pipeline) Run(ctx context.Context) {
	p.reportProgress()

	for _, s := range p.stages {
		s.Start(ctx)
	}

	sink := p.stages[len(p.stages)-1]
	for !sink.Done() {
		p.reportProgress()
		select {
		case <-ctx.Done():
		case <-time.After(progressPollInterval):
		}
		if ctx.Err() != nil {
			break
		}
	}

	for _, s := range p.stages {
		s.Join()
	}
	p.reportProgress()
}

func (p *Pipeline) reportProgress() {
	if p.progress != nil {
		p.progress(p.stages[len(p.stages)-1].Completed())
	}
}
