package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/systest/pkg/logger"
	"yqhp/systest/pkg/types"
)

// Shard strategies.
const (
	ShardModulo = "modulo"
	ShardBlock  = "block"
)

// Worker isolation modes.
const (
	IsolationProcess   = "process"
	IsolationGoroutine = "goroutine"
)

// Report formats.
const (
	FormatJUnit = "junit"
	FormatJSON  = "json"
)

// Config represents the complete configuration of a system-test run.
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Runner  RunnerConfig  `yaml:"runner"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
}

// RunConfig holds orchestration settings.
type RunConfig struct {
	Parallel      int           `yaml:"parallel" env:"SYSTEST_PARALLEL"`
	Include       string        `yaml:"include" env:"SYSTEST_INCLUDE"`
	Exclude       string        `yaml:"exclude" env:"SYSTEST_EXCLUDE"`
	ExcludeInPR   bool          `yaml:"exclude_in_pr" env:"SYSTEST_EXCLUDE_IN_PR"`
	ShardStrategy string        `yaml:"shard_strategy" env:"SYSTEST_SHARD_STRATEGY"`
	Isolation     string        `yaml:"isolation" env:"SYSTEST_ISOLATION"`
	WorkerTimeout time.Duration `yaml:"worker_timeout" env:"SYSTEST_WORKER_TIMEOUT"`
	JoinGrace     time.Duration `yaml:"join_grace" env:"SYSTEST_JOIN_GRACE"`
}

// RunnerConfig describes how each test is invoked.
type RunnerConfig struct {
	Executable   string            `yaml:"executable" env:"SYSTEST_EXECUTABLE"`
	ExecArgs     []string          `yaml:"exec_args" env:"SYSTEST_EXEC_ARGS"`
	TestTimeout  time.Duration     `yaml:"test_timeout" env:"SYSTEST_TEST_TIMEOUT"`
	SkipExitCode int               `yaml:"skip_exit_code" env:"SYSTEST_SKIP_EXIT_CODE"`
	Env          map[string]string `yaml:"env"`
	LogLevel     string            `yaml:"log_level" env:"SYSTEST_TEST_LOG_LEVEL"`
	DataPaths    string            `yaml:"data_paths" env:"SYSTEST_DATA_PATHS"`
	SaveDir      string            `yaml:"save_dir" env:"SYSTEST_SAVE_DIR"`
}

// CorpusConfig locates the tests.
type CorpusConfig struct {
	Path    string `yaml:"path" env:"SYSTEST_CORPUS"`
	Pattern string `yaml:"pattern" env:"SYSTEST_PATTERN"`
}

// ReportConfig controls per-worker report artifacts and the run summary.
// An empty Dir follows runner.save_dir, then the working directory.
type ReportConfig struct {
	Dir         string `yaml:"dir" env:"SYSTEST_REPORT_DIR"`
	Format      string `yaml:"format" env:"SYSTEST_REPORT_FORMAT"`
	Prefix      string `yaml:"prefix" env:"SYSTEST_REPORT_PREFIX"`
	ShowSkipped bool   `yaml:"show_skipped" env:"SYSTEST_SHOW_SKIPPED"`
	SummaryJSON string `yaml:"summary_json" env:"SYSTEST_SUMMARY_JSON"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"SYSTEST_LOG_LEVEL"`
	Format     string `yaml:"format" env:"SYSTEST_LOG_FORMAT"`
	Output     string `yaml:"output" env:"SYSTEST_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"SYSTEST_LOG_FILE"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Parallel:      1,
			ShardStrategy: ShardModulo,
			Isolation:     IsolationProcess,
			JoinGrace:     30 * time.Second,
		},
		Runner: RunnerConfig{
			Executable:   "python3",
			ExecArgs:     []string{},
			SkipExitCode: 77,
			Env:          make(map[string]string),
			LogLevel:     "information",
		},
		Corpus: CorpusConfig{
			Path:    "tests/analysis",
			Pattern: "*.py",
		},
		Report: ReportConfig{
			Dir:    "",
			Format: FormatJUnit,
			Prefix: "TEST-systemtests",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Filters returns the test filters shared by every worker.
func (c *Config) Filters() types.Filters {
	return types.Filters{
		Include:     c.Run.Include,
		Exclude:     c.Run.Exclude,
		ExcludeInPR: c.Run.ExcludeInPR,
	}
}

// LoggerConfig converts the logging section for pkg/logger.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Output:     c.Logging.Output,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// TestEnv returns the environment exported to every test process.
func (c *Config) TestEnv() map[string]string {
	env := make(map[string]string, len(c.Runner.Env)+3)
	for k, v := range c.Runner.Env {
		env[k] = v
	}
	if c.Runner.LogLevel != "" {
		env["SYSTEST_TEST_LOG_LEVEL"] = c.Runner.LogLevel
	}
	if c.Runner.DataPaths != "" {
		env["SYSTEST_DATA_PATHS"] = c.Runner.DataPaths
	}
	if c.Runner.SaveDir != "" {
		env["SYSTEST_SAVE_DIR"] = c.Runner.SaveDir
	}
	return env
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	cmdArgs    map[string]string
	lookupEnv  func(string) string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		cmdArgs:   make(map[string]string),
		lookupEnv: os.Getenv,
	}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithCmdArgs sets command-line overrides keyed by dot-notation path,
// e.g. "run.parallel" -> "4".
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// WithEnv replaces the environment lookup, used by tests.
func (l *Loader) WithEnv(lookup func(string) string) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables < command-line flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("从文件加载配置失败: %w", err)
		}
	}

	if err := l.applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("应用环境变量覆盖失败: %w", err)
	}

	for key, value := range l.cmdArgs {
		if err := setConfigValue(cfg, key, value); err != nil {
			return nil, fmt.Errorf("设置配置值 %s 失败: %w", key, err)
		}
	}

	cfg.resolveReportDir()
	return cfg, nil
}

// resolveReportDir defaults the report directory to the test save directory.
func (c *Config) resolveReportDir() {
	if c.Report.Dir != "" {
		return
	}
	c.Report.Dir = c.Runner.SaveDir
	if c.Report.Dir == "" {
		c.Report.Dir = "."
	}
}

// loadFromFile loads configuration from a YAML file.
// A missing file is not an error, defaults are used.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := l.lookupEnv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("从环境变量 %s 设置字段 %s 失败: %w", envTag, fieldType.Name, err)
		}
	}

	return nil
}

// setConfigValue sets a configuration value by dot-notation path.
// Path segments match either the yaml tag or the field name.
func setConfigValue(cfg *Config, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(cfg).Elem()

	for i, part := range parts {
		field, ok := fieldByKey(v, part)
		if !ok {
			return fmt.Errorf("未知的配置路径: %s", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("期望 %s 是结构体，实际是 %s", part, field.Kind())
		}
		v = field
	}

	return nil
}

func fieldByKey(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if tag == key || strings.EqualFold(f.Name, strings.ReplaceAll(key, "_", "")) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("无法设置字段")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("无效的时间格式: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("无效的整数: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("无效的布尔值: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		// 字符串切片按空白分隔，与 --exec-args 的写法一致
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(strings.Fields(value)))
		} else {
			return fmt.Errorf("不支持的切片类型: %s", field.Type().Elem().Kind())
		}

	case reflect.Map:
		if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.String {
			m := make(map[string]string)
			for _, pair := range strings.Split(value, ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) == 2 {
					m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
				}
			}
			field.Set(reflect.ValueOf(m))
		} else {
			return fmt.Errorf("不支持的 map 类型")
		}

	default:
		return fmt.Errorf("不支持的字段类型: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.resolveReportDir()
	return cfg, nil
}
