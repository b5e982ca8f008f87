package runner

import (
	"github.com/mlcommons/modelbench-runner/pkg/model"
	"github.com/mlcommons/modelbench-runner/pkg/pipeline"
)

// interactionSource replays a fixed, already-in-memory slice of
// SUTInteractions, feeding the prompt stage's bridged output into the
// annotator pipeline's source without a file round trip.
type interactionSource struct {
	interactions []model.SUTInteraction
	pos          int
}

func newInteractionSource(interactions []model.SUTInteraction) *interactionSource {
	return &interactionSource{interactions: interactions}
}

func (s *interactionSource) Next() (any, bool, error) {
	if s.pos >= len(s.interactions) {
		return nil, false, nil
	}
	i := s.interactions[s.pos]
	s.pos++
	return i, true, nil
}

var _ pipeline.ItemSource = (*interactionSource)(nil)
