// Package model defines the data types that flow through the benchmark
// pipeline: prompts, SUT responses, annotations, and the mutable
// TestRunItem scratchpad that accompanies a (TestItem, SUT) pair from
// source to sink.
package model

import "hash/fnv"

// Prompt is the text sent to a System Under Test, plus any per-request
// options the SUT should honor (e.g. requesting per-token log
// probabilities).
type Prompt struct {
	Text    string
	Options PromptOptions
}

// PromptOptions carries SUT-agnostic request knobs.
type PromptOptions struct {
	MaxTokens     int
	Temperature   float64
	TopLogprobs   int // 0 means "not requested"
	StopSequences []string
}

// TestItem is the smallest testable unit: a prompt plus arbitrary,
// opaque context forwarded from the input source. TestItem is immutable
// after construction and its hash is stable over (SourceID, Prompt.Text),
// per spec.md §3.
type TestItem struct {
	SourceID string
	Prompt   Prompt
	// Context carries arbitrary per-row data forwarded from the input
	// source (e.g. extra CSV columns) without the pipeline interpreting it.
	Context map[string]string
}

// Hash returns a stable, process-independent hash over the fields spec.md
// names as the TestItem's identity.
func (t TestItem) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(t.SourceID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(t.Prompt.Text))
	return h.Sum64()
}

// TokenLogprob is one candidate token and its log-probability, part of
// the optional top-k per-token data a SUT may report.
type TokenLogprob struct {
	Token   string
	Logprob float64
}

// SUTResponse is the text a SUT produced for one TestItem, with optional
// top-k log-probabilities per output token.
type SUTResponse struct {
	Text        string
	TopLogprobs [][]TokenLogprob // outer slice: one entry per output token
}

// SUTInteraction is the triple (TestItem, SUT uid, SUTResponse) created by
// a SUT worker. Item, SUTUID and Response are immutable once constructed;
// their hash combines the source id and the SUT uid per spec.md §3.
//
// RunItem carries the TestRunItem that tracked this (item, sut) pair
// through the prompt stage, when the caller is the fused runner pipeline
// (pkg/runner) rather than a standalone CSV-driven tool. It is nil for
// interactions pkg/annotatorpipeline reads back from CSV, since no single
// process ties a prompt run to the annotator run reading its CSV back in,
// and is never part of Hash or Key.
type SUTInteraction struct {
	Item     TestItem
	SUTUID   string
	Response SUTResponse
	RunItem  *TestRunItem
}

// Hash implements the identity spec.md §3 assigns to a SUTInteraction:
// hash(source_id ⊕ sut_uid).
func (i SUTInteraction) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(i.Item.SourceID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(i.SUTUID))
	return h.Sum64()
}

// Key returns a stable map key for an interaction, for use in the
// annotator sink's partial-annotation buffer.
func (i SUTInteraction) Key() string {
	return i.Item.SourceID + "\x00" + i.SUTUID
}

// Annotation is a free-form per-annotator result: either a structured
// object or a raw string, stored by annotator uid on a TestRunItem.
type Annotation struct {
	AnnotatorUID string
	// Structured holds a JSON-serializable annotation object, when the
	// annotator produces one. Raw holds the annotator's raw string output
	// when it does not. Exactly one is populated.
	Structured any
	Raw        string
}
