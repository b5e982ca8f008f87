// benchrunner drives a benchmark run from a benchrunner.yaml configuration
// directory: it builds every configured SUT and annotator, ready-checks
// them, runs every configured test's prompts through them, and prints a
// per-(test, sut) and per-(benchmark, sut) summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/mlcommons/modelbench-runner/pkg/annotator"
	"github.com/mlcommons/modelbench-runner/pkg/config"
	"github.com/mlcommons/modelbench-runner/pkg/errs"
	"github.com/mlcommons/modelbench-runner/pkg/progress"
	"github.com/mlcommons/modelbench-runner/pkg/promptpipeline"
	"github.com/mlcommons/modelbench-runner/pkg/readycheck"
	"github.com/mlcommons/modelbench-runner/pkg/registry"
	"github.com/mlcommons/modelbench-runner/pkg/runner"
	"github.com/mlcommons/modelbench-runner/pkg/sut"
	"github.com/mlcommons/modelbench-runner/pkg/version"
)

// sutWithUID overrides a registry-built SUT's UID with the config-level
// instance uid it was configured under, since a Registry key names a
// *class* of SUT (e.g. "echo-sut-v1") while spec.md's SUT identity is the
// uid a run's test/benchmark definitions reference (e.g. "demo-sut").
type sutWithUID struct {
	sut.SUT
	uid string
}

func (s *sutWithUID) UID() string { return s.uid }

// annotatorWithUID is sutWithUID's counterpart for annotators.
type annotatorWithUID struct {
	annotator.Annotator
	uid string
}

func (a *annotatorWithUID) UID() string { return a.uid }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	jsonProgress := flag.Bool("json-progress", false, "emit {\"progress\": ...} lines instead of human-readable ones")
	printVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Full())
		return
	}

	log.Printf("starting %s", version.Full())

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	stats := cfg.Stats()
	log.Printf("Configuration loaded: %d suts, %d annotators, %d tests, %d benchmarks",
		stats.SUTs, stats.Annotators, stats.Tests, stats.Benchmarks)

	suts, err := buildSUTs(cfg)
	if err != nil {
		log.Fatalf("Failed to build SUTs: %v", err)
	}
	annotators, err := buildAnnotators(cfg)
	if err != nil {
		log.Fatalf("Failed to build annotators: %v", err)
	}

	specs, err := buildRunSpecs(cfg)
	if err != nil {
		log.Fatalf("Failed to build test run specs: %v", err)
	}

	var tracker progress.Tracker
	if *jsonProgress {
		tracker = progress.NewJSON(os.Stdout, 0)
	} else {
		tracker = progress.NewText(os.Stdout, "benchrunner", 0)
	}

	r := runner.New(cfg, suts, annotators, tracker)
	run, err := r.Run(ctx, specs, cfg.Benchmarks)
	if err != nil {
		var failure *errs.ReadyCheckFailure
		if errors.As(err, &failure) {
			log.Fatalf("Ready check failed for: %v", readycheck.SortedFailedUIDs(failure))
		}
		log.Fatalf("Run failed: %v", err)
	}

	slog.Info("run finished", "run_id", run.RunID)
	for _, rec := range run.TestRecords {
		fmt.Printf("test=%s sut=%s finished=%d failed=%d\n", rec.TestUID, rec.SUTUID, rec.ItemsFinished, rec.ItemsFailed)
	}
	for _, score := range run.Benchmarks {
		fmt.Printf("benchmark=%s sut=%s test_records=%d\n", score.BenchmarkUID, score.SUTUID, len(score.TestRecords))
	}
}

// buildSUTs constructs one sut.SUT per configured uid via the registry of
// demo implementations this binary ships (no concrete production SUT
// client lives in this module, per the out-of-scope concrete-clients
// boundary — see demo_components.go).
func buildSUTs(cfg *config.Config) (map[string]sut.SUT, error) {
	reg := registry.New[sut.SUT]()
	registerDemoSUTs(reg)

	built := make(map[string]sut.SUT, len(cfg.SUTs))
	for uid, comp := range cfg.SUTs {
		if err := cfg.Secrets.RaiseIfMissing(comp.SecretsEnv); err != nil {
			return nil, fmt.Errorf("sut %q: %w", uid, err)
		}
		s, err := reg.Make(comp.Class)
		if err != nil {
			return nil, fmt.Errorf("sut %q: %w", uid, err)
		}
		built[uid] = &sutWithUID{SUT: s, uid: uid}
	}
	return built, nil
}

func buildAnnotators(cfg *config.Config) (map[string]annotator.Annotator, error) {
	reg := registry.New[annotator.Annotator]()
	registerDemoAnnotators(reg)

	built := make(map[string]annotator.Annotator, len(cfg.Annotators))
	for uid, comp := range cfg.Annotators {
		if err := cfg.Secrets.RaiseIfMissing(comp.SecretsEnv); err != nil {
			return nil, fmt.Errorf("annotator %q: %w", uid, err)
		}
		a, err := reg.Make(comp.Class)
		if err != nil {
			return nil, fmt.Errorf("annotator %q: %w", uid, err)
		}
		built[uid] = &annotatorWithUID{Annotator: a, uid: uid}
	}
	return built, nil
}

// buildRunSpecs turns every configured test into a runner.RunSpec, opening
// its prompts CSV relative to the configuration directory.
func buildRunSpecs(cfg *config.Config) ([]runner.RunSpec, error) {
	strategies := demoVoteStrategies()

	specs := make([]runner.RunSpec, 0, len(cfg.Tests))
	for uid, test := range cfg.Tests {
		promptsPath := test.PromptsPath
		if !filepath.IsAbs(promptsPath) {
			promptsPath = filepath.Join(cfg.ConfigDir(), promptsPath)
		}
		input, err := promptpipeline.OpenCSVPromptInput(promptsPath)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", uid, err)
		}

		var strategy annotator.VoteStrategy
		if test.EnsembleStrategy != "" {
			strategy, err = strategies.Make(test.EnsembleStrategy)
			if err != nil {
				return nil, fmt.Errorf("test %q: %w", uid, err)
			}
		}

		specs = append(specs, runner.RunSpec{
			TestUID:          uid,
			Input:            input,
			SUTUIDs:          test.SUTs,
			AnnotatorUIDs:    test.Annotators,
			MaxItems:         test.MaxItems,
			EnsembleStrategy: strategy,
		})
	}
	return specs, nil
}
