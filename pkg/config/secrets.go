package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mlcommons/modelbench-runner/pkg/errs"
)

// Secrets holds the environment-variable-sourced values SUTs and
// annotators need (API keys, endpoints), grounded on
// original_source/config.py's load_secrets_from_config /
// raise_if_missing_from_config, adapted from a TOML secrets file to plain
// process environment variables per spec.md §6's env-var-driven
// configuration style.
type Secrets struct {
	values map[string]string
}

// LoadSecretsFromEnv snapshots every name in names from the process
// environment. Missing names are simply absent from the result — call
// RaiseIfMissing to fail fast on the ones a component actually requires.
func LoadSecretsFromEnv(names []string) *Secrets {
	values := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok {
			values[name] = v
		}
	}
	return &Secrets{values: values}
}

// Get returns the value for name and whether it was present.
func (s *Secrets) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// RaiseIfMissing returns a *errs.ConfigurationError naming every entry of
// required not present in s, or nil if all are present. Mirrors
// raise_if_missing_from_config's fail-fast-with-a-listing behavior.
func (s *Secrets) RaiseIfMissing(required []string) error {
	var missing []string
	for _, name := range required {
		if _, ok := s.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &errs.ConfigurationError{
		Reason: fmt.Sprintf("missing required secret(s): %s", strings.Join(missing, ", ")),
	}
}
