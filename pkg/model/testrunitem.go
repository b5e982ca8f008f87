package model

import "time"

// State is the lifecycle state of a TestRunItem, per spec.md §4.7's state
// machine diagram.
type State string

const (
	StateCreated            State = "created"
	StateQueued             State = "queued"
	StateResponded          State = "responded"
	StateSUTFailed          State = "sut_failed"
	StateAnnotated          State = "annotated"
	StatePartiallyAnnotated State = "partially_annotated"
	StateFinished           State = "finished"
	StateFailed             State = "failed"
)

// ItemException records one failure observed while processing a
// TestRunItem. Exceptions never abort the pipeline; they accumulate on the
// item and are surfaced through the journal and the sink's failed-item
// bucket (spec.md §7).
type ItemException struct {
	Stage   string // "sut" | "annotator" | "pipe"
	Cause   error
	Context string // e.g. annotator uid, for annotator exceptions
}

func (e ItemException) Error() string {
	if e.Context != "" {
		return e.Stage + "(" + e.Context + "): " + e.Cause.Error()
	}
	return e.Stage + ": " + e.Cause.Error()
}

// TestUID and SUTUID identify the test and SUT a TestRunItem belongs to.
// They are plain strings rather than pointers to other packages' types so
// that pkg/model has no dependency on pkg/sut or pkg/runner.

// TestRunItem is the mutable scratchpad that accompanies one
// (TestItem, SUT) pair through the pipeline: created by the source stage,
// enriched by the SUT worker, enriched by the annotator worker, delivered
// to the sink, then released.
type TestRunItem struct {
	TestUID string
	SUTUID  string
	Item    TestItem

	// SUTResponse is filled in by the SUT worker. Nil until then.
	SUTResponse *SUTResponse

	// Annotations is filled in, key by key, by the annotator worker.
	Annotations map[string]Annotation

	// Measurements holds scalar quality measurements computed from the
	// item's response and annotations (the measurement function itself is
	// out of this module's scope — see spec.md §1 non-goals on scoring
	// arithmetic).
	Measurements map[string]float64

	// Exceptions accumulates every failure recorded against this item.
	// A non-empty Exceptions disqualifies the item from FINISHED even if a
	// response and all annotations are present.
	Exceptions []ItemException

	State State

	QueuedAt    time.Time
	RespondedAt time.Time
}

// NewTestRunItem constructs a freshly CREATED TestRunItem for (test, sut).
func NewTestRunItem(testUID, sutUID string, item TestItem) *TestRunItem {
	return &TestRunItem{
		TestUID:      testUID,
		SUTUID:       sutUID,
		Item:         item,
		Annotations:  make(map[string]Annotation),
		Measurements: make(map[string]float64),
		State:        StateCreated,
	}
}

// Queued transitions CREATED → QUEUED; called by the source/assigner stage.
func (r *TestRunItem) Queued() {
	r.State = StateQueued
	r.QueuedAt = time.Now()
}

// RecordSUTResponse transitions QUEUED → RESPONDED.
func (r *TestRunItem) RecordSUTResponse(resp SUTResponse) {
	r.SUTResponse = &resp
	r.State = StateResponded
	r.RespondedAt = time.Now()
}

// RecordSUTFailure transitions QUEUED → SUT_FAILED and records the cause.
func (r *TestRunItem) RecordSUTFailure(err error) {
	r.Exceptions = append(r.Exceptions, ItemException{Stage: "sut", Cause: err})
	r.State = StateSUTFailed
}

// RecordAnnotation stores one annotator's result under its uid.
func (r *TestRunItem) RecordAnnotation(annotatorUID string, a Annotation) {
	r.Annotations[annotatorUID] = a
}

// RecordAnnotatorFailure logs a failed annotator without discarding the
// item — per spec.md §4.6, a missing annotation simply yields no entry
// for that annotator uid, and other annotators still run.
func (r *TestRunItem) RecordAnnotatorFailure(annotatorUID string, err error) {
	r.Exceptions = append(r.Exceptions, ItemException{Stage: "annotator", Cause: err, Context: annotatorUID})
}

// Finalize computes the terminal state (FINISHED or FAILED) given the full
// set of required annotator uids, per spec.md §4.7:
//
//	(ANNOTATED ∧ ∀required annotators present ∧ exceptions=∅) ⇒ FINISHED
//	otherwise ⇒ FAILED
func (r *TestRunItem) Finalize(requiredAnnotators []string) {
	if r.SUTResponse == nil {
		r.State = StateFailed
		return
	}
	for _, uid := range requiredAnnotators {
		if _, ok := r.Annotations[uid]; !ok {
			r.State = StatePartiallyAnnotated
			break
		}
	}
	if r.State != StatePartiallyAnnotated {
		r.State = StateAnnotated
	}
	if r.State == StateAnnotated && len(r.Exceptions) == 0 {
		r.State = StateFinished
	} else {
		r.State = StateFailed
	}
}

// Finished reports whether this item completed successfully: it has a
// response, every annotation, and no recorded exceptions.
func (r *TestRunItem) Finished() bool {
	return r.State == StateFinished
}

// Timer measures wall-clock duration around a unit of work, mirroring the
// original implementation's `with Timer() as timer: ...; timer.elapsed`
// idiom used to stamp journal entries.
type Timer struct {
	start   time.Time
	elapsed time.Duration
	running bool
}

// Start begins timing.
func (t *Timer) Start() *Timer {
	t.start = time.Now()
	t.running = true
	return t
}

// Stop ends timing and freezes Elapsed.
func (t *Timer) Stop() {
	if t.running {
		t.elapsed = time.Since(t.start)
		t.running = false
	}
}

// Elapsed returns the duration measured by the most recent Start/Stop
// pair. If the timer is still running, it returns the time elapsed so far.
func (t *Timer) Elapsed() time.Duration {
	if t.running {
		return time.Since(t.start)
	}
	return t.elapsed
}

// Time runs fn, timing it, and returns the elapsed duration.
func Time(fn func()) time.Duration {
	var t Timer
	t.Start()
	fn()
	t.Stop()
	return t.Elapsed()
}
