// Package console prints one line per finished test.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"yqhp/systest/pkg/types"
)

// Config holds configuration for the console reporter.
type Config struct {
	// ShowOutput prints the captured output of failed and crashed tests.
	ShowOutput bool `yaml:"show_output"`
	// ShowSkipped prints skipped tests.
	ShowSkipped bool `yaml:"show_skipped"`
	// Writer is the output writer (defaults to os.Stderr, stdout belongs
	// to the worker protocol).
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns the default console reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		ShowOutput: true,
		Writer:     os.Stderr,
	}
}

// Reporter implements the console reporter.
type Reporter struct {
	config *Config
	writer io.Writer

	mu          sync.Mutex
	suite       types.Suite
	tally       types.Tally
	initialized bool
}

// New creates a new console reporter.
func New(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	return &Reporter{
		config: config,
		writer: config.Writer,
	}
}

// NewFromMap creates a console reporter from a config map.
func NewFromMap(config map[string]any) *Reporter {
	cfg := DefaultConfig()
	if config != nil {
		if v, ok := config["show_output"].(bool); ok {
			cfg.ShowOutput = v
		}
		if v, ok := config["show_skipped"].(bool); ok {
			cfg.ShowSkipped = v
		}
		if v, ok := config["writer"].(io.Writer); ok {
			cfg.Writer = v
		}
	}
	return New(cfg)
}

// Name returns the reporter name.
func (r *Reporter) Name() string {
	return "console"
}

// Init initializes the reporter.
func (r *Reporter) Init(ctx context.Context, suite types.Suite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.suite = suite
	r.initialized = true
	return nil
}

// Report prints the result line.
func (r *Reporter) Report(ctx context.Context, result *types.CaseResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tally.Add(result.Outcome)
	if result.Outcome == types.OutcomeSkipped && !r.config.ShowSkipped {
		return nil
	}

	line := fmt.Sprintf("[%s] %-8s %s (%.2fs)", r.suite.Key, strings.ToUpper(string(result.Outcome)), result.Name, result.Duration.Seconds())
	if result.Message != "" && result.Outcome != types.OutcomePassed {
		line += ": " + result.Message
	}
	if _, err := fmt.Fprintln(r.writer, line); err != nil {
		return err
	}

	if r.config.ShowOutput && result.Outcome.CountsAsFailure() && result.Output != "" {
		for _, l := range strings.Split(strings.TrimRight(result.Output, "\n"), "\n") {
			if _, err := fmt.Fprintf(r.writer, "    | %s\n", l); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush is a no-op, lines are written immediately.
func (r *Reporter) Flush(ctx context.Context) error {
	return nil
}

// Close prints the worker tally.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	_, err := fmt.Fprintf(r.writer, "[%s] done: %d passed, %d failed, %d crashed, %d skipped\n",
		r.suite.Key, r.tally.Passed, r.tally.Failed, r.tally.Crashed, r.tally.Skipped)
	r.initialized = false
	return err
}
