package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateRunConfig(&cfg.Run)
	v.validateRunnerConfig(&cfg.Runner)
	v.validateCorpusConfig(&cfg.Corpus)
	v.validateReportConfig(&cfg.Report)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// Validate is a shorthand for NewValidator().Validate(c).
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

func (v *Validator) validateRunConfig(cfg *RunConfig) {
	if cfg.Parallel < 1 {
		v.addError("run.parallel", "worker count must be at least 1")
	}
	switch cfg.ShardStrategy {
	case ShardModulo, ShardBlock:
	default:
		v.addError("run.shard_strategy", fmt.Sprintf("unknown shard strategy %q, expected modulo or block", cfg.ShardStrategy))
	}
	switch cfg.Isolation {
	case IsolationProcess, IsolationGoroutine:
	default:
		v.addError("run.isolation", fmt.Sprintf("unknown isolation %q, expected process or goroutine", cfg.Isolation))
	}
	if cfg.WorkerTimeout < 0 {
		v.addError("run.worker_timeout", "worker timeout must be non-negative")
	}
	if cfg.JoinGrace < 0 {
		v.addError("run.join_grace", "join grace must be non-negative")
	}
}

func (v *Validator) validateRunnerConfig(cfg *RunnerConfig) {
	if strings.TrimSpace(cfg.Executable) == "" {
		v.addError("runner.executable", "executable is required")
	}
	if cfg.TestTimeout < 0 {
		v.addError("runner.test_timeout", "test timeout must be non-negative")
	}
	if cfg.SkipExitCode < 0 || cfg.SkipExitCode > 255 {
		v.addError("runner.skip_exit_code", "skip exit code must be in [0, 255]")
	}
	if cfg.SkipExitCode == 0 {
		v.addError("runner.skip_exit_code", "skip exit code cannot be 0, it means passed")
	}
}

func (v *Validator) validateCorpusConfig(cfg *CorpusConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		v.addError("corpus.path", "corpus path is required")
	}
}

func (v *Validator) validateReportConfig(cfg *ReportConfig) {
	switch cfg.Format {
	case FormatJUnit, FormatJSON:
	default:
		v.addError("report.format", fmt.Sprintf("unknown report format %q, expected junit or json", cfg.Format))
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		v.addError("report.prefix", "report prefix is required")
	}
}

func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid log level %q", cfg.Level))
	}
	switch cfg.Format {
	case "json", "console", "text":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid log format %q", cfg.Format))
	}
	switch cfg.Output {
	case "stdout", "stderr", "file", "both":
	default:
		v.addError("logging.output", fmt.Sprintf("invalid log output %q", cfg.Output))
	}
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "file path is required when output is file")
	}
}
