// Package annotator defines the Annotator contract the pipeline drives
// after a SUT responds: translate the interaction into an annotator
// request, annotate it, translate the raw result back into the pipeline's
// Annotation shape (spec.md §4.7, non-goal: no concrete annotator client
// lives here — only the interface, registry usage, and ensemble voting).
package annotator

import (
	"context"

	"github.com/mlcommons/modelbench-runner/pkg/model"
)

// Annotator is the contract every annotator implements.
type Annotator interface {
	// UID returns this annotator's unique identifier.
	UID() string
	// TranslateInteraction converts a completed SUT interaction into this
	// annotator's native request shape.
	TranslateInteraction(interaction model.SUTInteraction) (any, error)
	// Annotate sends request to the annotator and returns its native
	// response. Like SUT.Evaluate, retries are the caller's responsibility.
	Annotate(ctx context.Context, request any) (any, error)
	// TranslateResponse converts the annotator's native response into the
	// pipeline's Annotation shape.
	TranslateResponse(request, response any) (model.Annotation, error)
}
