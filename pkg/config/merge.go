package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeDefaults overlays user-provided defaults on top of the built-in
// ones: any field user leaves at its zero value keeps the built-in
// value, any field user sets overrides it. Mirrors the teacher's
// loader.go merging tarsyConfig.Queue onto DefaultQueueConfig() via
// mergo.WithOverride.
func mergeDefaults(builtin *Defaults, user *Defaults) (*Defaults, error) {
	merged := *builtin
	if user == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging defaults: %w", err)
	}
	return &merged, nil
}
