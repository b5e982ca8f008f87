package config

import (
	"time"

	"github.com/mlcommons/modelbench-runner/pkg/cache"
	"github.com/mlcommons/modelbench-runner/pkg/queue"
	"github.com/mlcommons/modelbench-runner/pkg/retry"
)

// Defaults holds the tunables every pipeline stage and cache falls back to
// when the YAML config doesn't override them.
type Defaults struct {
	// SUTWorkers is the worker-goroutine count for the SUT dispatch
	// stage (spec.md §4.3: "each stage owns N workers").
	SUTWorkers int `yaml:"sut_workers,omitempty" validate:"omitempty,min=1"`
	// AnnotatorWorkers is the worker-goroutine count for the annotator
	// dispatch stage.
	AnnotatorWorkers int `yaml:"annotator_workers,omitempty" validate:"omitempty,min=1"`
	// QueueCapacityMultiplier sizes each stage's bounded queue as
	// workers * multiplier, giving workers enough headroom to not starve
	// while downstream briefly backs up.
	QueueCapacityMultiplier int `yaml:"queue_capacity_multiplier,omitempty" validate:"omitempty,min=1"`
	// SUTRetryDelaySeconds is the fixed delay between SUT evaluate()
	// retries (spec.md §9: unbounded retry preserved verbatim).
	SUTRetryDelaySeconds int `yaml:"sut_retry_delay_seconds,omitempty" validate:"omitempty,min=0"`
	// CacheSizeLimitBytes caps each on-disk cache's approximate size
	// before oldest-stored eviction kicks in (spec.md §4.2).
	CacheSizeLimitBytes int64 `yaml:"cache_size_limit_bytes,omitempty" validate:"omitempty,min=1"`
	// PollTimeoutMillis is how long a pipeline worker waits for upstream
	// work before re-checking whether upstream is done (spec.md §4.1).
	PollTimeoutMillis int `yaml:"poll_timeout_millis,omitempty" validate:"omitempty,min=1"`
}

// DefaultDefaults returns the built-in values used for any field the YAML
// config leaves unset, mirroring the teacher's GetBuiltinConfig()
// fallback-supplying role.
func DefaultDefaults() *Defaults {
	return &Defaults{
		SUTWorkers:              8,
		AnnotatorWorkers:        8,
		QueueCapacityMultiplier: 10,
		SUTRetryDelaySeconds:    int(retry.DefaultSUTRetryDelay / time.Second),
		CacheSizeLimitBytes:     cache.DefaultSizeLimit,
		PollTimeoutMillis:       int(queue.DefaultPollTimeout / time.Millisecond),
	}
}

// SUTRetryDelay returns the configured SUT retry delay as a Duration.
func (d *Defaults) SUTRetryDelay() time.Duration {
	return time.Duration(d.SUTRetryDelaySeconds) * time.Second
}

// PollTimeout returns the configured poll timeout as a Duration.
func (d *Defaults) PollTimeout() time.Duration {
	return time.Duration(d.PollTimeoutMillis) * time.Millisecond
}

// SUTQueueCapacity returns the bounded queue capacity for the SUT stage.
func (d *Defaults) SUTQueueCapacity() int {
	return d.SUTWorkers * d.QueueCapacityMultiplier
}

// AnnotatorQueueCapacity returns the bounded queue capacity for the
// annotator stage.
func (d *Defaults) AnnotatorQueueCapacity() int {
	return d.AnnotatorWorkers * d.QueueCapacityMultiplier
}
