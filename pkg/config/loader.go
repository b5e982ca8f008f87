package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the single YAML file this package loads, analogous to
// the teacher's tarsy.yaml.
const ConfigFileName = "benchrunner.yaml"

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load benchrunner.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in defaults with user-supplied ones
//  5. Load secrets from the process environment
//  6. Validate all configuration
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"suts", stats.SUTs,
		"annotators", stats.Annotators,
		"benchmarks", stats.Benchmarks)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	var yamlCfg YAMLConfig
	yamlCfg.SUTs = make(map[string]ComponentConfig)
	yamlCfg.Annotators = make(map[string]ComponentConfig)
	yamlCfg.Tests = make(map[string]TestConfig)
	yamlCfg.Benchmarks = make(map[string]BenchmarkConfig)

	if err := loadYAML(configDir, ConfigFileName, &yamlCfg); err != nil {
		return nil, NewLoadError(ConfigFileName, err)
	}

	defaults, err := mergeDefaults(DefaultDefaults(), yamlCfg.Defaults)
	if err != nil {
		return nil, err
	}

	dataDir := yamlCfg.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	allSecretNames := collectSecretNames(yamlCfg.SUTs, yamlCfg.Annotators)

	return &Config{
		configDir:  configDir,
		DataDir:    dataDir,
		Defaults:   defaults,
		SUTs:       yamlCfg.SUTs,
		Annotators: yamlCfg.Annotators,
		Tests:      yamlCfg.Tests,
		Benchmarks: yamlCfg.Benchmarks,
		Secrets:    LoadSecretsFromEnv(allSecretNames),
	}, nil
}

func collectSecretNames(suts, annotators map[string]ComponentConfig) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(comps map[string]ComponentConfig) {
		for _, c := range comps {
			for _, name := range c.SecretsEnv {
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					names = append(names, name)
				}
			}
		}
	}
	add(suts)
	add(annotators)
	return names
}

func loadYAML(configDir, filename string, target any) error {
	path := filepath.Join(configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables before parsing, same as the teacher's
	// loader: missing variables expand to empty string, and validation
	// catches any required field that ends up empty.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}
