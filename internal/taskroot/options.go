package taskroot

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for loop options.
const (
	DefaultMaxIterations = 25
	DefaultMaxAttempts   = 5
	DefaultTimeout       = 30 * time.Minute
	DefaultPromiseText   = "COMPLETE"
)

// DefaultWorkerCommand is the agent binary invoked per iteration.
const DefaultWorkerCommand = "agent"

// defaultWorkerArgs are the base arguments passed before the prompt.
func defaultWorkerArgs() []string {
	return []string{"--print", "--force"}
}

// Duration wraps time.Duration with YAML round-tripping in the usual
// "30m" / "1h30m" notation.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// WorkerOptions configures how the external worker is spawned.
type WorkerOptions struct {
	// Command is the worker binary. Defaults to "agent".
	Command string `yaml:"command"`
	// Args are base arguments placed before the rendered prompt.
	Args []string `yaml:"args"`
	// PTY allocates a pseudo-terminal for the worker process.
	PTY bool `yaml:"pty,omitempty"`
}

// Options holds the per-task-root loop configuration, persisted as
// config.yaml at initialization and re-read on open.
type Options struct {
	// MaxIterations is the hard ceiling on total iterations, independent of
	// the attempt budget.
	MaxIterations int `yaml:"max_iterations"`
	// MaxAttempts is the consecutive-failure budget before the loop blocks.
	MaxAttempts int `yaml:"max_attempts"`
	// TimeoutPerIteration bounds a single worker invocation.
	TimeoutPerIteration Duration `yaml:"timeout_per_iteration"`
	// PromiseText is the literal the worker must emit inside the promise
	// delimiter to signal completion.
	PromiseText string `yaml:"promise_text"`
	// Worker configures the external worker process.
	Worker WorkerOptions `yaml:"worker"`
}

// DefaultOptions returns Options populated with the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:       DefaultMaxIterations,
		MaxAttempts:         DefaultMaxAttempts,
		TimeoutPerIteration: Duration(DefaultTimeout),
		PromiseText:         DefaultPromiseText,
		Worker: WorkerOptions{
			Command: DefaultWorkerCommand,
			Args:    defaultWorkerArgs(),
		},
	}
}

// normalize fills zero-valued fields with defaults so partially specified
// config files behave predictably.
func (o *Options) normalize() {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.TimeoutPerIteration <= 0 {
		o.TimeoutPerIteration = Duration(DefaultTimeout)
	}
	if o.PromiseText == "" {
		o.PromiseText = DefaultPromiseText
	}
	if o.Worker.Command == "" {
		o.Worker.Command = DefaultWorkerCommand
	}
	if len(o.Worker.Args) == 0 {
		o.Worker.Args = defaultWorkerArgs()
	}
}
