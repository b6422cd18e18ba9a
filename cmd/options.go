package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"yqhp/systest/internal/config"
	"yqhp/systest/pkg/logger"
)

// flagKeys 把命令行 flag 映射到配置路径，只有显式设置的 flag 才会覆盖配置
var flagKeys = map[string]string{
	"parallel":                 "run.parallel",
	"tests-regex":              "run.include",
	"excluderegex":             "run.exclude",
	"exclude-in-pull-requests": "run.exclude_in_pr",
	"shard-strategy":           "run.shard_strategy",
	"isolation":                "run.isolation",
	"worker-timeout":           "run.worker_timeout",
	"join-grace":               "run.join_grace",
	"executable":               "runner.executable",
	"exec-args":                "runner.exec_args",
	"test-timeout":             "runner.test_timeout",
	"skip-exit-code":           "runner.skip_exit_code",
	"loglevel":                 "runner.log_level",
	"datapaths":                "runner.data_paths",
	"savedir":                  "runner.save_dir",
	"corpus":                   "corpus.path",
	"pattern":                  "corpus.pattern",
	"report-dir":               "report.dir",
	"format":                   "report.format",
	"showskipped":              "report.show_skipped",
	"out-json":                 "report.summary_json",
}

// addSelectionFlags 注册决定分片和过滤的 flags，run 和 list 共用
func addSelectionFlags(flags *pflag.FlagSet) {
	def := config.DefaultConfig()
	flags.IntP("parallel", "j", def.Run.Parallel, "worker 数量")
	flags.StringP("tests-regex", "R", "", "只运行名称包含该字符串的测试")
	flags.StringP("excluderegex", "E", "", "排除名称包含该字符串的测试")
	flags.Bool("exclude-in-pull-requests", false, "跳过标记为不在 pull request 中运行的测试")
	flags.String("shard-strategy", def.Run.ShardStrategy, "分片策略 (modulo, block)")
	flags.String("corpus", def.Corpus.Path, "测试目录或 YAML 清单")
	flags.String("pattern", def.Corpus.Pattern, "测试目录中的文件匹配模式")
}

// cmdArgs 收集显式设置的 flags
func cmdArgs(flags *pflag.FlagSet) map[string]string {
	args := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			args[key] = f.Value.String()
		}
	})
	return args
}

// loadConfig 按 默认值 < 配置文件 < 环境变量 < flags 的顺序解析配置
func loadConfig(opts *rootOptions, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.NewLoader().
		WithConfigPath(opts.cfgFile).
		WithCmdArgs(cmdArgs(flags)).
		Load()
	if err != nil {
		return nil, err
	}
	opts.applyLogLevel(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) applyLogLevel(cfg *config.Config) {
	switch {
	case o.debug:
		cfg.Logging.Level = "debug"
	case o.quiet:
		cfg.Logging.Level = "warn"
	}
}

// newLogger 按配置初始化全局日志并返回命名子日志
func newLogger(cfg *config.Config, name string) *zap.Logger {
	logger.Init(cfg.LoggerConfig())
	return logger.Named(name)
}
