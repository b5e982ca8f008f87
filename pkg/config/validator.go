package config

import "fmt"

// Validator validates configuration comprehensively with clear error
// messages, mirroring the teacher's Validator shape scaled down to this
// module's far smaller configuration surface.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation, fail-fast at the first
// error encountered: SUTs, then annotators, then tests, then benchmarks (dependents
// validated after their dependencies).
func (v *Validator) ValidateAll() error {
	if err := v.validateComponents("sut", v.cfg.SUTs); err != nil {
		return err
	}
	if err := v.validateComponents("annotator", v.cfg.Annotators); err != nil {
		return err
	}
	if err := v.validateTests(); err != nil {
		return err
	}
	if err := v.validateBenchmarks(); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateComponents(kind string, components map[string]ComponentConfig) error {
	for uid, c := range components {
		if c.Class == "" {
			return NewValidationError(kind, uid, "class", fmt.Errorf("%w", ErrMissingRequiredField))
		}
	}
	return nil
}

func (v *Validator) validateTests() error {
	for uid, test := range v.cfg.Tests {
		if test.PromptsPath == "" {
			return NewValidationError("test", uid, "prompts_path", fmt.Errorf("%w", ErrMissingRequiredField))
		}
		if len(test.SUTs) == 0 {
			return NewValidationError("test", uid, "suts", fmt.Errorf("%w", ErrMissingRequiredField))
		}
		for _, sutUID := range test.SUTs {
			if _, ok := v.cfg.SUTs[sutUID]; !ok {
				return NewValidationError("test", uid, "suts", fmt.Errorf("references unknown sut %q", sutUID))
			}
		}
		for _, annotatorUID := range test.Annotators {
			if _, ok := v.cfg.Annotators[annotatorUID]; !ok {
				return NewValidationError("test", uid, "annotators", fmt.Errorf("references unknown annotator %q", annotatorUID))
			}
		}
	}
	return nil
}

func (v *Validator) validateBenchmarks() error {
	for uid, b := range v.cfg.Benchmarks {
		if len(b.Tests) == 0 {
			return NewValidationError("benchmark", uid, "tests", fmt.Errorf("%w", ErrMissingRequiredField))
		}
		for _, testUID := range b.Tests {
			if _, ok := v.cfg.Tests[testUID]; !ok {
				return NewValidationError("benchmark", uid, "tests", fmt.Errorf("references unknown test %q", testUID))
			}
		}
	}
	return nil
}
